package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Exporter is implemented by types that can export a route document.
// TreeExporter implements this interface.
type Exporter interface {
	Export() (*Document, error)
}

// Format selects the output encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ExportOptions configures the export behavior.
type ExportOptions struct {
	// Format is json or yaml (default: json)
	Format Format

	// PrettyPrint enables indented JSON output
	PrettyPrint bool

	// Indent is the string used for JSON indentation (default: "  ")
	Indent string

	// Output is where the document will be written (default: os.Stdout)
	Output io.Writer

	// Name filters to a specific named tree (empty = export all)
	Name string
}

// DefaultExportOptions returns options with sensible defaults.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format: FormatJSON,
		Indent: "  ",
		Output: os.Stdout,
	}
}

// ExportTree exports a single tree.
func ExportTree(exporter Exporter, opts ExportOptions) error {
	doc, err := exporter.Export()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	return write(doc, opts)
}

// ExportAll exports multiple named trees.
// The output is an object with tree names as keys.
func ExportAll(trees map[string]Exporter, opts ExportOptions) error {
	if opts.Name != "" {
		exporter, ok := trees[opts.Name]
		if !ok {
			return fmt.Errorf("tree %q not found", opts.Name)
		}
		return ExportTree(exporter, opts)
	}

	result := make(map[string]*Document, len(trees))
	for name, exporter := range trees {
		doc, err := exporter.Export()
		if err != nil {
			return fmt.Errorf("export %q failed: %w", name, err)
		}
		result[name] = doc
	}

	return write(result, opts)
}

// write encodes a value in the configured format to the configured output.
func write(v any, opts ExportOptions) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("YAML encode failed: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		return writeJSON(v, out, opts)
	default:
		return fmt.Errorf("unknown format %q", opts.Format)
	}
}

func writeJSON(v any, out io.Writer, opts ExportOptions) error {
	var data []byte
	var err error

	if opts.PrettyPrint {
		indent := opts.Indent
		if indent == "" {
			indent = "  "
		}
		data, err = json.MarshalIndent(v, "", indent)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("JSON marshal failed: %w", err)
	}

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	// Add trailing newline for terminal output
	if _, err := out.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write newline failed: %w", err)
	}

	return nil
}

// Source supplies the named trees an export command works on. It is called
// once per command run, after flags are parsed.
type Source func() (map[string]Exporter, error)

// Static returns a Source over a fixed set of named trees
func Static(trees map[string]Exporter) Source {
	return func() (map[string]Exporter, error) {
		return trees, nil
	}
}

// NewCommand returns an "export" command over the trees of source.
//
// Usage: export [--format=json|yaml] [--pretty] [--indent=STR] [--name=NAME] [-o FILE] [--list]
func NewCommand(source Source) *cobra.Command {
	var (
		format string
		pretty bool
		indent string
		name   string
		output string
		list   bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export route trees as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trees, err := source()
			if err != nil {
				return err
			}

			if list {
				names := make([]string, 0, len(trees))
				for n := range trees {
					names = append(names, n)
				}
				sort.Strings(names)
				fmt.Fprintln(cmd.OutOrStdout(), "Available trees:")
				for _, n := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", n)
				}
				return nil
			}

			opts := ExportOptions{
				Format:      Format(format),
				PrettyPrint: pretty,
				Indent:      indent,
				Name:        name,
				Output:      cmd.OutOrStdout(),
			}

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer func() { _ = f.Close() }()
				opts.Output = f
			}

			return ExportAll(trees, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&format, "format", string(FormatJSON), "Output format: json or yaml")
	flags.BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	flags.StringVar(&indent, "indent", "  ", "Indentation string (used with --pretty)")
	flags.StringVar(&name, "name", "", "Export only this tree")
	flags.StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	flags.BoolVar(&list, "list", false, "List available trees")

	return cmd
}
