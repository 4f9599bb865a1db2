package engine

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/orcsym/internal/budget"
	"github.com/roach88/orcsym/internal/channel"
	"github.com/roach88/orcsym/internal/config"
	"github.com/roach88/orcsym/internal/globals"
	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/opcode"
	"github.com/roach88/orcsym/internal/plugin"
	"github.com/roach88/orcsym/internal/resolve"
	"github.com/roach88/orcsym/internal/strpool"
)

// Bootstrap global variables created by every engine.
const (
	// GlobalRTAudio holds the name of the real-time audio module.
	GlobalRTAudio = "_RTAUDIO"
	// GlobalRTClock holds the engine's start time stamps.
	GlobalRTClock = "csRtClock"
	// GlobalCleanup is a one-byte flag set once teardown has started.
	GlobalCleanup = "#CLEANUP"
)

const (
	rtAudioSize    = 21
	rtAudioDefault = "PortAudio"
	rtClockSize    = 16
)

// Engine is one engine instance.
type Engine struct {
	id    string
	cfg   config.Config
	log   *slog.Logger
	ids   IDGenerator
	clock *Clock
	now   func() time.Time

	pool     *strpool.Pool
	budget   *budget.Budget
	instr    *instr.Registry
	opcodes  *opcode.Table
	udos     *resolve.UserOpcodes
	resolver *resolve.Resolver
	globals  *globals.Store
	bus      *channel.Bus

	loader      plugin.Loader
	plugins     *plugin.Registry
	pluginFinal []plugin.FileInfo // file states after LoadAllPlugins
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the base logger. The engine adds an engine_id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithIDGenerator sets the instance ID source.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLoader sets the plugin library loader.
//
// Default: plugin.GoLoader registering into the engine's opcode table.
func WithLoader(l plugin.Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLoaderFactory builds the loader from the engine's opcode table. Use it
// when the loader has to register opcodes into the engine being created.
func WithLoaderFactory(f func(*opcode.Table) plugin.Loader) Option {
	return func(e *Engine) {
		e.loader = f(e.opcodes)
	}
}

// WithClock sets the time source used for the bootstrap clock variable.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine from cfg.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		log:     slog.Default(),
		ids:     UUIDv7Generator{},
		clock:   NewClockAt(0),
		now:     time.Now,
		opcodes: opcode.NewTable(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.id = e.ids.Generate()
	e.log = e.log.With("engine_id", e.id)
	if e.loader == nil {
		e.loader = plugin.NewGoLoader(e.opcodes)
	}

	e.pool = strpool.New()
	e.budget = budget.New(cfg.MemoryLimit)
	e.instr = instr.NewRegistry(
		instr.WithGrowth(cfg.InstrumentGrowth),
		instr.WithMaxNumber(cfg.MaxInstrument),
		instr.WithOrder(cfg.Order()),
		instr.WithPool(e.pool),
		instr.WithLogger(e.log),
	)
	e.udos = resolve.NewUserOpcodes()
	e.resolver = resolve.New(e.instr, e.udos)
	e.globals = globals.New(e.budget)
	e.bus = channel.NewBus(cfg.BlockSize, cfg.StringMaxLen, channel.WithBudget(e.budget))

	if err := e.setup(); err != nil {
		e.teardown()
		return nil, err
	}
	e.log.Debug("engine created",
		"block_size", cfg.BlockSize,
		"assignment_order", cfg.AssignmentOrder,
		"plugin_dir", cfg.PluginDir,
		"memory_limit", cfg.MemoryLimit)
	return e, nil
}

// setup creates the bootstrap globals and loads the plugin directory, in
// the order a fresh instance expects them.
func (e *Engine) setup() error {
	if err := e.globals.Create(GlobalRTAudio, rtAudioSize); err != nil {
		return fmt.Errorf("create %s: %w", GlobalRTAudio, err)
	}
	copy(e.globals.QueryUnchecked(GlobalRTAudio), rtAudioDefault)

	if err := e.loadPluginDir(); err != nil {
		return err
	}

	if err := e.globals.Create(GlobalRTClock, rtClockSize); err != nil {
		return fmt.Errorf("create %s: %w", GlobalRTClock, err)
	}
	binary.LittleEndian.PutUint64(e.globals.QueryUnchecked(GlobalRTClock), uint64(e.now().UnixNano()))
	if err := e.globals.Create(GlobalCleanup, 1); err != nil {
		return fmt.Errorf("create %s: %w", GlobalCleanup, err)
	}
	return nil
}

// loadPluginDir parses the descriptor of the configured plugin directory
// and loads every library it does not defer.
func (e *Engine) loadPluginDir() error {
	dir := e.cfg.PluginDir
	if dir == "" {
		return nil
	}
	opts := []plugin.Option{
		plugin.WithLibraryPattern(e.cfg.LibraryPattern),
		plugin.WithCaseInsensitive(e.cfg.CaseInsensitiveFiles),
		plugin.WithLoader(e.loader),
		plugin.WithOpcodeTable(e.opcodes),
		plugin.WithLogger(e.log),
	}
	reg, err := plugin.LoadDir(dir, opts...)
	if err != nil {
		return fmt.Errorf("load plugin descriptor: %w", err)
	}
	e.plugins = reg
	if err := plugin.ScanDir(dir, reg, opts...); err != nil {
		return fmt.Errorf("scan plugin directory: %w", err)
	}
	if reg != nil {
		e.log.Info("deferred plugin registry ready", "dir", dir, "libraries", reg.NumFiles(), "opcodes", reg.NumOpcodes())
	}
	return nil
}

// ID returns the instance ID.
func (e *Engine) ID() string { return e.id }

// Config returns the configuration the engine was built from.
func (e *Engine) Config() config.Config { return e.cfg }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.log }

// Pool returns the string intern pool.
func (e *Engine) Pool() *strpool.Pool { return e.pool }

// Budget returns the memory budget shared by globals and channels.
func (e *Engine) Budget() *budget.Budget { return e.budget }

// Instruments returns the named instrument registry.
func (e *Engine) Instruments() *instr.Registry { return e.instr }

// Opcodes returns the live opcode table.
func (e *Engine) Opcodes() *opcode.Table { return e.opcodes }

// UserOpcodes returns the user-defined opcode table.
func (e *Engine) UserOpcodes() *resolve.UserOpcodes { return e.udos }

// Resolver returns the instrument reference resolver.
func (e *Engine) Resolver() *resolve.Resolver { return e.resolver }

// Globals returns the global variable store.
func (e *Engine) Globals() *globals.Store { return e.globals }

// Channels returns the channel bus.
func (e *Engine) Channels() *channel.Bus { return e.bus }

// Plugins returns the deferred plugin registry, nil when there is none or
// after LoadAllPlugins.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// FindOpcode returns the live table index of name, loading a deferred
// plugin library on demand. 0 means not found. A non-nil error is fatal
// for the current compilation.
func (e *Engine) FindOpcode(name string) (int, error) {
	if e.plugins == nil {
		return e.opcodes.Find(name), nil
	}
	return e.plugins.Resolve(name)
}

// LoadAllPlugins loads every pending plugin library and drops the deferred
// registry. It returns the most severe load failure.
func (e *Engine) LoadAllPlugins() error {
	if e.plugins == nil {
		return nil
	}
	err := e.plugins.LoadAll()
	e.pluginFinal = e.plugins.Files()
	e.plugins = nil
	return err
}

// teardown destroys every component: plugins, channels and globals first,
// since opcodes may reference them, then instruments and the names they
// point into.
func (e *Engine) teardown() {
	if e.plugins != nil {
		e.plugins.Close()
		e.plugins = nil
	}
	e.pluginFinal = nil
	if q := e.globals.Query(GlobalCleanup); q != nil {
		q[0] = 1
	}
	e.bus.Reset()
	e.globals.ClearAll()
	e.instr.Reset()
	e.udos.Reset()
	e.opcodes.Reset()
	e.pool.Reset()
}

// Reset tears down all state and recreates the bootstrap state. The
// instance ID is kept.
func (e *Engine) Reset() error {
	e.teardown()
	e.log.Debug("engine reset", "budget_used", e.budget.Used())
	return e.setup()
}
