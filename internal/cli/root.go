package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/orcsym/internal/engine"
	"github.com/roach88/orcsym/internal/opcode"
	"github.com/roach88/orcsym/internal/plugin"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to a .yaml, .yml or .toml config file

	// IDGenerator overrides engine instance IDs (for testing).
	// If nil, engines use UUIDv7Generator.
	IDGenerator engine.IDGenerator

	// Clock overrides the engine wall clock (for testing).
	Clock func() time.Time

	// LoaderFactory overrides the plugin loader (for testing).
	// If nil, libraries are opened with plugin.GoLoader.
	LoaderFactory func(*opcode.Table) plugin.Loader
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the orcsym CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orcsym",
		Short: "orcsym - orchestra symbol tables",
		Long: `Inspect how an orchestra manifest is laid out by the engine.

orcsym compiles CUE orchestra manifests, assigns instrument numbers,
builds the channel bus and reports plugin opcode libraries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (.yaml, .yml or .toml)")

	cmd.AddCommand(NewAssignCommand(opts))
	cmd.AddCommand(NewChannelsCommand(opts))
	cmd.AddCommand(NewOpcodesCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))

	return cmd
}
