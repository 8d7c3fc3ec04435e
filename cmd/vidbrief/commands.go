package main

import (
	"encoding/json"
	"strings"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/services/media/brand"
	"vidbrief/internal/services/media/domain"

	"github.com/spf13/cobra"
)

func newSummarize() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize {youtube-url|video-url|video-id}",
		Short: "Summarize a video",
		Example: strings.TrimSpace(`
vidbrief summarize https://youtu.be/dQw4w9WgXcQ
vidbrief summarize https://cdn.example.com/clip.mp4 --provider cloudglue --style detailed -o yaml
`),
		Args: exactlyOneReference,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mediaFromArg(args[0])
			if err != nil {
				return err
			}
			mod, closeFn, err := media(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			out, err := mod.Service().Summarize(cmd.Context(), domain.SummarizeRequest{Media: m, Options: requestOptions(cmd)})
			if err != nil {
				return err
			}
			return render(cmd, out)
		},
	}
	addRequestFlags(cmd)
	return cmd
}

func newAnalyze() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyze {youtube-url|video-url|video-id} --brand NAME",
		Short:   "Brand analysis of a video",
		Example: `vidbrief analyze dQw4w9WgXcQ --brand "Acme Coffee"`,
		Args:    exactlyOneReference,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mediaFromArg(args[0])
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString(FlagBrand)
			if strings.TrimSpace(name) == "" {
				return perr.WithField(perr.InvalidRequestf("--brand is required"), "brand")
			}
			mod, closeFn, err := media(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			out, err := mod.Service().Analyze(cmd.Context(), analyzeRequest(cmd, m, name))
			if err != nil {
				return err
			}
			return render(cmd, out)
		},
	}
	addRequestFlags(cmd)
	cmd.Flags().String(FlagBrand, "", "brand to look for")
	cmd.Flags().Float64(FlagTemperature, 0, "sampling temperature, 0 to 1; unset keeps the provider default")
	cmd.Flags().Int(FlagMaxTokens, 0, "generation token cap; 0 keeps the provider default")
	return cmd
}

func analyzeRequest(cmd *cobra.Command, m domain.Media, brandName string) domain.AnalyzeRequest {
	f := cmd.Flags()
	req := domain.AnalyzeRequest{Media: m, Options: requestOptions(cmd), Brand: brandName}
	if f.Changed(FlagTemperature) {
		v, _ := f.GetFloat64(FlagTemperature)
		req.Temperature = &v
	}
	req.MaxTokens, _ = f.GetInt(FlagMaxTokens)
	return req
}

// resolveOutput is what the resolve command prints
type resolveOutput struct {
	Reference domain.VideoReference `json:"reference"`
	Source    domain.ResolvedSource `json:"source"`
	MIME      string                `json:"mime,omitempty"`
	Size      int64                 `json:"size,omitempty"`
}

func newResolve() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve {youtube-url|video-url|youtube-id}",
		Short: "Run the resolve chain only and print the ingestible source",
		Long: strings.TrimSpace(`
Runs the rapid, probe and local strategies in order and prints the first source
that works. A local download is removed again before the command exits.
`),
		Args: exactlyOneReference,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := referenceFromArg(args[0])
			if err != nil {
				return err
			}
			allow, _ := cmd.Flags().GetBool(FlagAllowDownload)
			mod, closeFn, err := media(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			src, err := mod.Resolver().Resolve(cmd.Context(), ref, allow)
			if err != nil {
				return err
			}
			defer src.Release()
			out := resolveOutput{Reference: ref, Source: src}
			if src.Local != nil {
				out.MIME, out.Size = src.Local.MIME, src.Local.Size
			}
			return render(cmd, out)
		},
	}
	cmd.Flags().Bool(FlagAllowDownload, true, "allow the local download fallback")
	return cmd
}

func referenceFromArg(arg string) (domain.VideoReference, error) {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "://") {
		return domain.ParseURL(arg)
	}
	if domain.IsYouTubeID(arg) {
		return domain.YouTube(arg), nil
	}
	return domain.VideoReference{}, perr.InvalidRequestf("%q is neither a url nor a youtube id", arg)
}

func newSchema() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the brand analysis json schema sent to providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := brand.Schema()
			if err != nil {
				return err
			}
			return render(cmd, json.RawMessage(b))
		},
	}
}
