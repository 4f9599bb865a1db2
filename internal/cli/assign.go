package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orcsym/internal/engine"
	"github.com/roach88/orcsym/internal/store"
)

// AssignOptions holds flags for the assign command.
type AssignOptions struct {
	*RootOptions
	Database string
}

// AssignResult is the instrument-number table of an applied manifest.
type AssignResult struct {
	Seq         int64                  `json:"seq"`
	Instruments []engine.InstrumentRow `json:"instruments"`
	Database    string                 `json:"database,omitempty"`
	Stored      bool                   `json:"stored,omitempty"`
}

// Text renders the instrument table and the snapshot status.
func (r AssignResult) Text() (string, error) {
	rows := [][]string{{"NUMBER", "NAME", "REQUEST"}}
	for _, in := range r.Instruments {
		rows = append(rows, []string{strconv.Itoa(in.Number), in.Name, in.Request})
	}
	table, err := renderTable(rows)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(table)
	if r.Database != "" {
		if r.Stored {
			fmt.Fprintf(&b, "\nSnapshot %d written to %s", r.Seq, r.Database)
		} else {
			fmt.Fprintf(&b, "\nSnapshot %d already in %s", r.Seq, r.Database)
		}
	}
	return b.String(), nil
}

// NewAssignCommand creates the assign command.
func NewAssignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssignOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assign <manifest>",
		Short: "Assign instrument numbers for a manifest",
		Long: `Compile an orchestra manifest, apply it to a fresh engine and print
the resulting instrument-number table.

Explicitly numbered instruments keep their numbers. The remaining
instruments are numbered in the configured assignment order, and each
user-defined opcode takes the next slot above the highest instrument.

With --db the engine snapshot is also written to a SQLite database.

Example:
  orcsym assign ./orchestra.cue
  orcsym assign --db ./orcsym.db --format json ./orchestra`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "write the snapshot to this SQLite database")

	return cmd
}

func runAssign(opts *AssignOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	e, err := s.applyManifest(path)
	if err != nil {
		return err
	}

	snap := e.Snapshot()
	result := AssignResult{Seq: snap.Seq, Instruments: snap.Instruments}
	if result.Instruments == nil {
		result.Instruments = []engine.InstrumentRow{}
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return s.out.Fail(ExitCommandError, ErrCodeStore, "failed to open database", nil, err)
		}
		defer st.Close()

		inserted, err := st.WriteSnapshot(cmd.Context(), snap)
		if err != nil {
			return s.out.Fail(ExitCommandError, ErrCodeStore, "failed to write snapshot", nil, err)
		}
		result.Database = opts.Database
		result.Stored = inserted
		s.log.Info("snapshot written", "db", opts.Database, "seq", snap.Seq, "inserted", inserted)
	}

	return s.out.Success(result)
}
