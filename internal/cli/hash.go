package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/namehash"
)

// HashRow is the bucket of one name.
type HashRow struct {
	Name   string `json:"name"`
	Bucket uint8  `json:"bucket"`
	Valid  bool   `json:"valid"`
}

// HashResult lists name buckets.
type HashResult struct {
	Names []HashRow `json:"names"`
}

// Text renders the bucket table.
func (r HashResult) Text() (string, error) {
	rows := [][]string{{"NAME", "BUCKET", "VALID"}}
	for _, n := range r.Names {
		rows = append(rows, []string{n.Name, strconv.Itoa(int(n.Bucket)), strconv.FormatBool(n.Valid)})
	}
	return renderTable(rows)
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <name>...",
		Short: "Print the symbol-table bucket of each name",
		Long: `Print the 8-bit bucket every symbol table files a name under, and
whether the name is a valid instrument name. Names that share a bucket
are chained in each table.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runHash(opts *RootOptions, names []string, cmd *cobra.Command) error {
	s, err := newSession(opts, cmd)
	if err != nil {
		return err
	}
	result := HashResult{Names: make([]HashRow, len(names))}
	for i, name := range names {
		result.Names[i] = HashRow{Name: name, Bucket: namehash.Hash(name), Valid: instr.ValidName(name)}
	}
	return s.out.Success(result)
}
