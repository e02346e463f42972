package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatYAML outputs as YAML (default for terminal)
	FormatYAML OutputFormat = "yaml"
	// FormatJSON outputs as JSON
	FormatJSON OutputFormat = "json"
	// FormatTable outputs lists as a table, one row per item
	FormatTable OutputFormat = "table"
	// FormatRaw outputs strings unquoted, anything else as YAML
	FormatRaw OutputFormat = "raw"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON, FormatTable, FormatRaw:
		return f, nil
	case "":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// OutputOptions configures output behavior
type OutputOptions struct {
	// Format is the output format (yaml, json, table, raw)
	Format OutputFormat

	// Query is a jq expression applied to the result before formatting.
	// Multiple query results are output as a list.
	Query string

	// Columns selects and orders table columns. Default is all fields,
	// sorted by name.
	Columns []string

	// File is the output file path (empty for stdout)
	File string

	// Indent is the indentation for JSON output
	Indent string

	// Writer is an optional custom writer (overrides File)
	Writer io.Writer
}

// Output writes the result to the configured destination
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout

	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if opts.Query != "" {
		v, err := RunQuery(opts.Query, result)
		if err != nil {
			return err
		}
		result = v
	}

	switch opts.Format {
	case FormatJSON:
		return outputJSON(w, result, opts.Indent)
	case FormatYAML, "":
		return outputYAML(w, result)
	case FormatTable:
		return outputTable(w, result, opts.Columns)
	case FormatRaw:
		return outputRaw(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// RunQuery applies the jq expression query to v. The value is first
// converted to its JSON form so struct tags decide the field names.
func RunQuery(query string, v any) (any, error) {
	q, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", query, err)
	}
	input, err := toJSONValue(v)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := q.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		results = append(results, out)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// toJSONValue converts v to the generic maps and slices encoding/json
// produces.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return out, nil
}

func outputJSON(w io.Writer, result any, indent string) error {
	enc := json.NewEncoder(w)
	if indent == "" {
		indent = "  "
	}
	enc.SetIndent("", indent)
	return enc.Encode(result)
}

func outputYAML(w io.Writer, result any) error {
	// Go through the JSON form so output uses the API's field names.
	v, err := toJSONValue(result)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func outputRaw(w io.Writer, result any) error {
	switch v := result.(type) {
	case []byte:
		_, err := w.Write(v)
		return err
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []any:
		for _, item := range v {
			if err := outputRaw(w, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return outputYAML(w, result)
	}
}

// outputTable renders a list of objects as rows, or a single object as
// field/value pairs.
func outputTable(w io.Writer, result any, columns []string) error {
	v, err := toJSONValue(result)
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(DefaultStyles.Border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return DefaultStyles.Label.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	switch v := v.(type) {
	case []any:
		if len(columns) == 0 {
			columns = tableColumns(v)
		}
		t.Headers(columns...)
		for _, item := range v {
			obj, _ := item.(map[string]any)
			row := make([]string, len(columns))
			for i, col := range columns {
				if obj == nil {
					if i == 0 {
						row[i] = cell(item)
					}
					continue
				}
				row[i] = cell(obj[col])
			}
			t.Row(row...)
		}
	case map[string]any:
		if len(columns) == 0 {
			columns = slices.Sorted(maps.Keys(v))
		}
		t.Headers("FIELD", "VALUE")
		for _, col := range columns {
			t.Row(col, cell(v[col]))
		}
	default:
		t.Row(cell(v))
	}

	_, err = fmt.Fprintln(w, t.Render())
	return err
}

// tableColumns returns the union of the field names of all objects in
// items, sorted.
func tableColumns(items []any) []string {
	seen := make(map[string]bool)
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			for k := range obj {
				seen[k] = true
			}
		}
	}
	if len(seen) == 0 {
		return []string{"VALUE"}
	}
	return slices.Sorted(maps.Keys(seen))
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

// Print helpers for terminal output

// PrintSuccess prints a success message with checkmark
func PrintSuccess(format string, args ...any) {
	fmt.Println(DefaultStyles.Success.Render("✓") + " " + fmt.Sprintf(format, args...))
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, DefaultStyles.Error.Render("Error:")+" "+fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	fmt.Println(DefaultStyles.Help.Render("ℹ") + " " + fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message to stderr
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, DefaultStyles.Warning.Render("⚠")+" "+fmt.Sprintf(format, args...))
}
