package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	perr "vidbrief/internal/platform/errors"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func render(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString(FlagOutput)
	return write(cmd.OutOrStdout(), format, v)
}

// write prints v as indented json or as yaml. yaml keys follow the json tags
func write(w io.Writer, format string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode output")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", outputJSON:
		_, err = fmt.Fprintln(w, string(b))
		return err
	case outputYAML, "yml":
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return perr.Wrap(err, perr.ErrorCodeJSON, "encode output")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return perr.WithField(perr.InvalidRequestf("unknown output format %q, want json or yaml", format), FlagOutput)
	}
}

// printError writes project errors in their wire shape and anything else as text
func printError(w io.Writer, err error) {
	if _, ok := perr.As(err); ok {
		_ = write(w, outputJSON, map[string]any{"error": perr.WireFrom(err)})
		return
	}
	_, _ = fmt.Fprintln(w, "error:", err)
}

// exitCode is 2 for caller mistakes and 1 for everything else
func exitCode(err error) int {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeInvalidRequest, perr.ErrorCodeValidation, perr.ErrorCodeJSON:
		return 2
	}
	return 1
}
