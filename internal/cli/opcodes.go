package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/orcsym/internal/engine"
	"github.com/roach88/orcsym/internal/opcode"
	"github.com/roach88/orcsym/internal/plugin"
	"github.com/roach88/orcsym/internal/regerr"
)

// OpcodesOptions holds flags for the opcodes command.
type OpcodesOptions struct {
	*RootOptions
	LoadAll bool
}

// OpcodesResult lists the libraries of a plugin directory.
type OpcodesResult struct {
	Dir        string             `json:"dir"`
	Descriptor bool               `json:"descriptor"`
	Libraries  []engine.PluginRow `json:"libraries"`
	Registered []string           `json:"registered,omitempty"`
}

// Text renders the library table.
func (r OpcodesResult) Text() (string, error) {
	if !r.Descriptor {
		return fmt.Sprintf("No %s in %s", plugin.DescriptorName, r.Dir), nil
	}
	rows := [][]string{{"LIBRARY", "STATE", "OPCODES"}}
	for _, lib := range r.Libraries {
		state := lib.State
		if lib.Error != "" {
			state += " (" + lib.Error + ")"
		}
		rows = append(rows, []string{lib.Library, state, strings.Join(lib.Opcodes, ", ")})
	}
	out, err := renderTable(rows)
	if err != nil {
		return "", err
	}
	if len(r.Registered) > 0 {
		out += "\nRegistered: " + strings.Join(r.Registered, ", ")
	}
	return out, nil
}

// NewOpcodesCommand creates the opcodes command.
func NewOpcodesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpcodesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "opcodes <plugin-dir>",
		Short: "List the opcode libraries of a plugin directory",
		Long: `Parse the opcodes.dir descriptor of a plugin directory and list every
library with the opcodes it provides.

Libraries are not loaded unless --load-all is given, in which case every
listed library is opened and its registered opcodes are reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpcodes(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.LoadAll, "load-all", false, "load every listed library")

	return cmd
}

func runOpcodes(opts *OpcodesOptions, dir string, cmd *cobra.Command) error {
	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return s.out.Fail(ExitCommandError, ErrCodeNotFound, "plugin directory not found: "+dir, nil, nil)
	}

	table := opcode.NewTable()
	var loader plugin.Loader = plugin.NewGoLoader(table)
	if opts.LoaderFactory != nil {
		loader = opts.LoaderFactory(table)
	}

	reg, err := plugin.LoadDir(dir,
		plugin.WithLibraryPattern(s.cfg.LibraryPattern),
		plugin.WithCaseInsensitive(s.cfg.CaseInsensitiveFiles),
		plugin.WithLoader(loader),
		plugin.WithOpcodeTable(table),
		plugin.WithLogger(s.log),
	)
	if err != nil {
		var details interface{}
		var perr *plugin.ParseError
		if errors.As(err, &perr) {
			details = ErrorDetails{File: perr.File, Line: perr.Line, Column: perr.Column}
		}
		return s.out.Fail(ExitFailure, ErrCodePlugin, "failed to read plugin directory", details, err)
	}

	result := OpcodesResult{Dir: dir, Descriptor: reg != nil, Libraries: []engine.PluginRow{}}
	if reg == nil {
		return s.out.Success(result)
	}
	s.out.VerboseLog("Found %d library(ies) and %d opcode(s) in %s", reg.NumFiles(), reg.NumOpcodes(), dir)

	var loadErr error
	if opts.LoadAll {
		scanErr := plugin.ScanDir(dir, reg)
		loadErr = reg.LoadAll()
		if scanErr != nil && (loadErr == nil || regerr.IsOutOfMemory(scanErr)) {
			loadErr = scanErr
		}
		result.Registered = table.Names()
	} else if err := markPresent(dir, reg); err != nil {
		return s.out.Fail(ExitCommandError, ErrCodePlugin, "failed to read plugin directory", nil, err)
	}
	for _, f := range reg.Files() {
		result.Libraries = append(result.Libraries, engine.PluginRow{
			Name:    f.Name,
			Library: f.Library,
			Path:    f.Path,
			State:   f.State.String(),
			Opcodes: f.Opcodes,
			Error:   errString(f.Err),
		})
	}

	if loadErr != nil {
		exit := ExitFailure
		if regerr.IsOutOfMemory(loadErr) {
			exit = ExitCommandError
		}
		return s.out.Fail(exit, ErrCodePlugin, "plugin libraries failed to load", result, loadErr)
	}
	return s.out.Success(result)
}

// markPresent marks the listed libraries found in dir as loadable without
// loading anything.
func markPresent(dir string, reg *plugin.Registry) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == plugin.DescriptorName {
			continue
		}
		reg.CheckFile(e.Name())
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
