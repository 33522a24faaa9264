package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/layoutkit/internal/config"
	"github.com/roach88/layoutkit/internal/layout"
)

// SettingsReport is the result of checking a settings file.
type SettingsReport struct {
	Valid          bool           `json:"valid"`
	DefaultBackend string         `json:"default_backend"`
	Layouts        []config.Entry `json:"layouts"`
}

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with layout settings files",
	}

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a layout settings file",
		Long: `Validate a YAML (.yaml, .yml) or CUE (.cue) layout settings file.

Reports the effective default backend and the marker declared for
each type.

Examples:
  layoutctl config check ./layouts.yaml
  layoutctl config check ./layouts.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigCheck(rootOpts, args[0], cmd)
		},
	}

	cmd.AddCommand(check)
	return cmd
}

func runConfigCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	file, err := config.LoadFile(path)
	if err == nil {
		_, err = file.Settings()
	}
	if err != nil {
		return settingsFailure(f, err)
	}
	f.VerboseLog("Loaded %d layout entries from %s", len(file.Layouts), path)

	report := SettingsReport{
		Valid:          true,
		DefaultBackend: file.DefaultBackend,
		Layouts:        file.Layouts,
	}
	if report.DefaultBackend == "" {
		report.DefaultBackend = layout.StructBackend
	}
	if report.Layouts == nil {
		report.Layouts = []config.Entry{}
	}

	if f.JSON() {
		return f.Success(report)
	}

	fmt.Fprintf(f.Writer, "✓ %s is valid\n", path)
	fmt.Fprintf(f.Writer, "  default backend: %s\n", report.DefaultBackend)
	byType := make(map[string]config.Entry, len(report.Layouts))
	for _, e := range report.Layouts {
		byType[e.Type] = e
	}
	for _, typ := range slices.Sorted(maps.Keys(byType)) {
		e := byType[typ]
		fmt.Fprintf(f.Writer, "  %s", typ)
		if e.Name != "" {
			fmt.Fprintf(f.Writer, " name=%s", e.Name)
		}
		if e.Backend != "" {
			fmt.Fprintf(f.Writer, " backend=%s", e.Backend)
		}
		fmt.Fprintln(f.Writer)
	}
	return nil
}

// settingsFailure maps a settings error to its exit code. Unreadable files
// are command errors; files that fail validation are failures.
func settingsFailure(f *OutputFormatter, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), nil)
	}

	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		details := map[string]any{"field": cfgErr.Field}
		if cfgErr.Pos.IsValid() {
			details["line"] = cfgErr.Pos.Line()
			details["column"] = cfgErr.Pos.Column()
		}
		return f.Fail(ExitFailure, ErrCodeInvalidSettings, cfgErr.Error(), details)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
