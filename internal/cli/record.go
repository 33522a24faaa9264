package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutkit/internal/catalog"
	"github.com/roach88/layoutkit/internal/record"
)

// RecordOptions holds flags for the record commands.
type RecordOptions struct {
	*RootOptions
	Database string
}

// InspectedProperty is one named property value of a record.
type InspectedProperty struct {
	Position int             `json:"position"`
	Name     string          `json:"name"`
	GoType   string          `json:"go_type"`
	Value    json.RawMessage `json:"value"`
}

// Inspection is a record decoded against its catalogued layout.
type Inspection struct {
	Layout     string              `json:"layout"`
	Name       string              `json:"name"`
	GoType     string              `json:"go_type"`
	Properties []InspectedProperty `json:"properties"`
}

// NewRecordCommand creates the record command and its subcommands.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Work with encoded layout records",
	}

	inspect := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Label a record's values with its layout's property names",
		Long: `Inspect an encoded record using the layout catalog.

The record's layout hash is looked up in the catalog and each positional
value is printed next to the property it belongs to. Use "-" to read the
record from stdin.

Examples:
  layoutctl record inspect --db ./layouts.db order.json
  cat order.json | layoutctl record inspect --db ./layouts.db -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordInspect(opts, args[0], cmd)
		},
	}
	inspect.Flags().StringVar(&opts.Database, "db", "", "path to SQLite catalog (required)")
	_ = inspect.MarkFlagRequired("db")

	cmd.AddCommand(inspect)
	return cmd
}

func runRecordInspect(opts *RecordOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}

	raw, err := record.Parse(data)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeInvalidRecord, err.Error(), nil)
	}
	f.VerboseLog("Record has layout %s with %d values", raw.Layout, len(raw.Properties))

	c, err := openCatalog(f, opts.Database)
	if err != nil {
		return err
	}
	defer c.Close()

	entry, err := c.Get(context.Background(), raw.Layout)
	if errors.Is(err, catalog.ErrNotFound) {
		return f.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("layout %s is not catalogued", raw.Layout), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}

	result, err := inspectRecord(raw, entry)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeLayoutMismatch, err.Error(), nil)
	}

	if f.JSON() {
		return f.Success(result)
	}

	fmt.Fprintf(f.Writer, "%s (%s)\n", result.Name, result.GoType)
	fmt.Fprintf(f.Writer, "  layout: %s\n", result.Layout)
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 1, ' ', 0)
	for _, p := range result.Properties {
		fmt.Fprintf(tw, "  %s\t= %s\n", p.Name, p.Value)
	}
	return tw.Flush()
}

func inspectRecord(raw record.Raw, entry catalog.Entry) (Inspection, error) {
	if len(raw.Properties) != len(entry.Properties) {
		return Inspection{}, fmt.Errorf("record has %d values, layout %s has %d properties",
			len(raw.Properties), entry.Name, len(entry.Properties))
	}

	out := Inspection{
		Layout:     entry.Hash,
		Name:       entry.Name,
		GoType:     entry.GoType,
		Properties: make([]InspectedProperty, len(entry.Properties)),
	}
	for i, p := range entry.Properties {
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw.Properties[i]); err != nil {
			return Inspection{}, fmt.Errorf("property %q: %w", p.Name, err)
		}
		out.Properties[i] = InspectedProperty{
			Position: p.Position,
			Name:     p.Name,
			GoType:   p.GoType,
			Value:    compact.Bytes(),
		}
	}
	return out, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
