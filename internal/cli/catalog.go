package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutkit/internal/catalog"
)

// CatalogOptions holds flags for the catalog commands.
type CatalogOptions struct {
	*RootOptions
	Database string
	Name     string
}

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the layout catalog",
		Long: `Query a layout catalog database.

The catalog records every layout a program derived, keyed by layout hash,
in the order the layouts were first seen.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite catalog (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	list := &cobra.Command{
		Use:   "list",
		Short: "List catalogued layouts",
		Long: `List catalogued layouts in the order they were recorded.

Examples:
  layoutctl catalog list --db ./layouts.db
  layoutctl catalog list --db ./layouts.db --name orders/Order --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Name, "name", "", "only layouts with this name")

	show := &cobra.Command{
		Use:   "show <hash>",
		Short: "Show one catalogued layout",
		Long: `Show the properties of the layout with the given hash.

Examples:
  layoutctl catalog show --db ./layouts.db 3f1c...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogShow(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

// openCatalog opens an existing catalog. A missing file is reported rather
// than created.
func openCatalog(f *OutputFormatter, path string) (*catalog.Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", path), nil)
	}
	c, err := catalog.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	f.VerboseLog("Opened catalog %s", path)
	return c, nil
}

func runCatalogList(opts *CatalogOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	c, err := openCatalog(f, opts.Database)
	if err != nil {
		return err
	}
	defer c.Close()

	var entries []catalog.Entry
	if opts.Name != "" {
		entries, err = c.FindByName(ctx, opts.Name)
	} else {
		entries, err = c.List(ctx)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}

	if f.JSON() {
		return f.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(f.Writer, "No layouts catalogued")
		return nil
	}
	writeEntryTable(f.Writer, entries)
	return nil
}

func runCatalogShow(opts *CatalogOptions, hash string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, err := openCatalog(f, opts.Database)
	if err != nil {
		return err
	}
	defer c.Close()

	entry, err := c.Get(context.Background(), hash)
	if errors.Is(err, catalog.ErrNotFound) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no layout with hash %s", hash), nil)
	}
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}

	if f.JSON() {
		return f.Success(entry)
	}
	writeEntry(f.Writer, entry)
	return nil
}

func writeEntryTable(w io.Writer, entries []catalog.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tHASH\tNAME\tBACKEND\tPROPERTIES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", e.Seq, shortHash(e.Hash), e.Name, e.Backend, len(e.Properties))
	}
	tw.Flush()
}

func writeEntry(w io.Writer, e catalog.Entry) {
	fmt.Fprintf(w, "%s (%s)\n", e.Name, e.GoType)
	fmt.Fprintf(w, "  hash:    %s\n", e.Hash)
	fmt.Fprintf(w, "  backend: %s\n", e.Backend)
	fmt.Fprintf(w, "  seq:     %d\n", e.Seq)
	if len(e.Properties) == 0 {
		fmt.Fprintln(w, "  no properties")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range e.Properties {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", p.Position, p.Name, p.GoType, p.Fingerprint)
	}
	tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
