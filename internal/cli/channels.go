package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/orcsym/internal/engine"
)

// ChannelsResult lists the channel bus of an applied manifest.
type ChannelsResult struct {
	Channels []engine.ChannelRow `json:"channels"`
}

// Text renders the channel table.
func (r ChannelsResult) Text() (string, error) {
	if len(r.Channels) == 0 {
		return "No channels", nil
	}
	rows := [][]string{{"NAME", "TYPE", "KIND", "DEFAULT", "MIN", "MAX"}}
	for _, ch := range r.Channels {
		row := []string{ch.Name, ch.Type, "", "", "", ""}
		if m := ch.Meta; m != nil {
			row[2] = m.Kind
			row[3] = formatFloat(m.Default)
			row[4] = formatFloat(m.Min)
			row[5] = formatFloat(m.Max)
		}
		rows = append(rows, row)
	}
	return renderTable(rows)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// NewChannelsCommand creates the channels command.
func NewChannelsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels <manifest>",
		Short: "List the channel bus of a manifest",
		Long: `Compile an orchestra manifest, apply it to a fresh engine and list
every channel on the bus with its type and control metadata.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChannels(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runChannels(opts *RootOptions, path string, cmd *cobra.Command) error {
	s, err := newSession(opts, cmd)
	if err != nil {
		return err
	}
	e, err := s.applyManifest(path)
	if err != nil {
		return err
	}

	result := ChannelsResult{Channels: e.Snapshot().Channels}
	if result.Channels == nil {
		result.Channels = []engine.ChannelRow{}
	}
	return s.out.Success(result)
}
