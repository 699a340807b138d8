package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var outputFormats = []string{outputTable, outputJSON, outputYAML}

// printOutput writes v in the given format. The table is only rendered if requested.
func printOutput(w io.Writer, format string, v any, table func() string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case outputTable:
		_, err := fmt.Fprintln(w, table())
		return err
	default:
		return fmt.Errorf("unsupported output format %q, must be one of %v", format, outputFormats)
	}
}

func validOutput(format string) error {
	if !slices.Contains(outputFormats, format) {
		return fmt.Errorf("unsupported output format %q, must be one of %v", format, outputFormats)
	}
	return nil
}
