package main

import (
	"context"
	"fmt"
	"strings"

	"vidbrief/internal/modkit"
	"vidbrief/internal/platform/config"
	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/platform/store"
	"vidbrief/internal/services/media/domain"
	mediamod "vidbrief/internal/services/media/module"

	"github.com/spf13/cobra"
)

// Flag names shared by the subcommands
const (
	FlagOutput        = "output"
	FlagProvider      = "provider"
	FlagStyle         = "style"
	FlagLanguage      = "language"
	FlagBrand         = "brand"
	FlagTemperature   = "temperature"
	FlagMaxTokens     = "max-tokens"
	FlagAllowDownload = "allow-download"
	FlagEnvFile       = "env-file"
)

// New builds the root command
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidbrief",
		Short: "Summaries and brand analyses of online videos",
		Long: strings.TrimSpace(`
vidbrief resolves a video reference, hands it to a video understanding provider
and prints the result. Providers and resolve strategies are configured through
the same environment as the API (TWELVELABS_*, CLOUDGLUE_*, RAPIDAPI_*, YTDLP_*, MEDIA_*).
`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			files, _ := cmd.Flags().GetStringSlice(FlagEnvFile)
			config.LoadDotEnv(files...)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringP(FlagOutput, "o", outputJSON, "output format, json or yaml")
	cmd.PersistentFlags().StringSlice(FlagEnvFile, []string{".env"}, "dotenv files loaded before reading the environment")

	cmd.AddCommand(newSummarize(), newAnalyze(), newResolve(), newSchema())
	return cmd
}

// media opens the optional stores and builds a started media module. close
// releases the stores
func media(ctx context.Context) (*mediamod.Module, func(), error) {
	root := config.New()
	log := logger.Named("cli")
	st, err := store.Open(ctx, store.ConfigFromEnv(root, "vidbrief", "cli"), store.WithLogger(*log))
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := st.Close(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}
	m := mediamod.New(modkit.DepsFrom(root, *log, st), mediamod.FromConfig(root))
	if err := m.Start(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return m, closeFn, nil
}

// mediaFromArg places a positional reference in the matching request field
func mediaFromArg(arg string) (domain.Media, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return domain.Media{}, perr.InvalidRequestf("missing video reference")
	case strings.Contains(arg, "://"):
		ref, err := domain.ParseURL(arg)
		if err != nil {
			return domain.Media{}, err
		}
		if ref.Kind == domain.RefYouTube {
			return domain.Media{YouTubeURL: arg}, nil
		}
		return domain.Media{VideoURL: arg}, nil
	default:
		return domain.Media{VideoID: arg}, nil
	}
}

// requestOptions reads the shared request flags. allow-download is only sent
// when given so the configured default applies otherwise
func requestOptions(cmd *cobra.Command) domain.Options {
	f := cmd.Flags()
	o := domain.Options{}
	o.Provider, _ = f.GetString(FlagProvider)
	o.Style, _ = f.GetString(FlagStyle)
	o.Language, _ = f.GetString(FlagLanguage)
	if f.Changed(FlagAllowDownload) {
		v, _ := f.GetBool(FlagAllowDownload)
		o.AllowDownload = &v
	}
	return o
}

func addRequestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(FlagProvider, "", "provider to use, twelvelabs or cloudglue; empty picks the default")
	f.String(FlagStyle, "", "concise, detailed or a free text instruction")
	f.String(FlagLanguage, "", "output language")
	f.Bool(FlagAllowDownload, true, "allow the local download fallback")
}

func exactlyOneReference(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one video reference (url or id), got %d", len(args))
	}
	return nil
}
