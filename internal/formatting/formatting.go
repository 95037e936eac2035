// Package formatting renders command results as a table for people or as
// JSON or YAML for scripts.
package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// Formats lists the accepted values of --output.
var Formats = []OutputFormat{FormatTable, FormatJSON, FormatYAML}

// ParseFormat converts a flag value into an OutputFormat. The empty string
// selects FormatTable.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected one of %v", s, Formats)
	}
}

// Write renders v in format. For FormatTable the caller draws the table.
func Write(w io.Writer, format OutputFormat, v any, table func(io.Writer)) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		table(w)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
