package cli

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/orcsym/internal/config"
	"github.com/roach88/orcsym/internal/engine"
	"github.com/roach88/orcsym/internal/manifest"
)

// session is the per-invocation state shared by the commands.
type session struct {
	opts *RootOptions
	cfg  config.Config
	log  *slog.Logger
	out  *OutputFormatter
}

func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
	s := &session{opts: opts, cfg: config.Default(), out: out}

	if opts.Config != "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load config",
				map[string]string{"path": opts.Config}, err)
		}
		s.cfg = cfg
		out.VerboseLog("Loaded config %s", opts.Config)
	}

	level, err := config.ParseLevel(s.cfg.LogLevel)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "invalid log level", nil, err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	s.log = slog.New(slog.NewTextHandler(out.GetErrWriter(), &slog.HandlerOptions{Level: level}))
	return s, nil
}

// newEngine creates an engine from the session config.
func (s *session) newEngine() (*engine.Engine, error) {
	opts := []engine.Option{engine.WithLogger(s.log)}
	if s.opts.IDGenerator != nil {
		opts = append(opts, engine.WithIDGenerator(s.opts.IDGenerator))
	}
	if s.opts.Clock != nil {
		opts = append(opts, engine.WithClock(s.opts.Clock))
	}
	if s.opts.LoaderFactory != nil {
		opts = append(opts, engine.WithLoaderFactory(s.opts.LoaderFactory))
	}

	e, err := engine.New(s.cfg, opts...)
	if err != nil {
		return nil, s.out.Fail(ExitCommandError, ErrCodeEngine, "failed to create engine", nil, err)
	}
	s.out.EngineID = e.ID()
	return e, nil
}

// applyManifest compiles the manifest at path and applies it to a new engine.
func (s *session) applyManifest(path string) (*engine.Engine, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, s.out.Fail(ExitCommandError, ErrCodeNotFound, "manifest not found: "+path, nil, nil)
	}

	orc, err := manifest.LoadFile(path)
	if err != nil {
		return nil, s.out.Fail(ExitFailure, ErrCodeManifest, "manifest failed to compile", compileDetails(err), err)
	}
	s.out.VerboseLog("Compiled %s: %d instrument(s), %d numbered, %d opcode(s), %d channel(s), %d global(s)",
		path, len(orc.Instruments), len(orc.Numbered), len(orc.Opcodes), len(orc.Channels), len(orc.Globals))

	e, err := s.newEngine()
	if err != nil {
		return nil, err
	}
	if err := orc.Apply(e); err != nil {
		return nil, s.out.Fail(ExitFailure, ErrCodeApply, "manifest rejected", compileDetails(err), err)
	}
	return e, nil
}

// ErrorDetails locates a manifest error for JSON output.
type ErrorDetails struct {
	Field  string `json:"field,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func compileDetails(err error) interface{} {
	var cerr *manifest.CompileError
	if !errors.As(err, &cerr) {
		return nil
	}
	d := ErrorDetails{Field: cerr.Field}
	if cerr.Pos.IsValid() {
		d.File = cerr.Pos.Filename()
		d.Line = cerr.Pos.Line()
		d.Column = cerr.Pos.Column()
	}
	return d
}
