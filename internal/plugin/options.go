package plugin

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/orcsym/internal/opcode"
	"github.com/roach88/orcsym/internal/regerr"
)

// DescriptorName is the descriptor file read by LoadDir.
const DescriptorName = "opcodes.dir"

// DefaultLibraryPattern returns the library file name pattern of the host
// platform. The single %s is replaced by the library's short name.
func DefaultLibraryPattern() string {
	switch runtime.GOOS {
	case "windows":
		return "%s.dll"
	case "darwin", "ios":
		return "lib%s.dylib"
	}
	return "lib%s.so"
}

// DefaultCaseInsensitive reports whether library file names are case
// insensitive on the host platform.
func DefaultCaseInsensitive() bool {
	return runtime.GOOS == "windows"
}

// ValidatePattern checks that p contains exactly one %s and no other verb.
func ValidatePattern(p string) error {
	if strings.Count(p, "%s") != 1 || strings.Count(p, "%") != 1 {
		return fmt.Errorf("library pattern %q must contain exactly one %%s", p)
	}
	return nil
}

// pattern is a library file name pattern split around its %s.
type pattern struct {
	prefix string
	suffix string
}

func parsePattern(p string) (pattern, error) {
	if err := ValidatePattern(p); err != nil {
		return pattern{}, err
	}
	prefix, suffix, _ := strings.Cut(p, "%s")
	return pattern{prefix: prefix, suffix: suffix}, nil
}

// stem strips the pattern's prefix and suffix from name when present,
// never reducing it to the empty string.
func (p pattern) stem(name string) string {
	if p.suffix != "" && len(name) > len(p.suffix) && strings.HasSuffix(name, p.suffix) {
		name = name[:len(name)-len(p.suffix)]
	}
	if p.prefix != "" && len(name) > len(p.prefix) && strings.HasPrefix(name, p.prefix) {
		name = name[len(p.prefix):]
	}
	return name
}

// matches reports whether name looks like a library file.
func (p pattern) matches(name string) bool {
	return len(name) > len(p.prefix)+len(p.suffix) &&
		strings.HasPrefix(name, p.prefix) && strings.HasSuffix(name, p.suffix)
}

// Option configures Parse, LoadDir and ScanDir.
type Option func(*settings)

// WithLibraryPattern sets the library file name pattern, e.g. "lib%s.so".
func WithLibraryPattern(p string) Option {
	return func(s *settings) {
		s.rawPattern = p
	}
}

// WithCaseInsensitive folds library names before comparing them.
func WithCaseInsensitive(fold bool) Option {
	return func(s *settings) {
		s.fold = fold
	}
}

// WithLoader sets the loader used for library files. The default is a
// GoLoader registering into the live opcode table.
func WithLoader(l Loader) Option {
	return func(s *settings) {
		s.loader = l
	}
}

// WithOpcodeTable sets the live opcode table opcodes are resolved in.
func WithOpcodeTable(t *opcode.Table) Option {
	return func(s *settings) {
		s.table = t
	}
}

// WithLogger sets the logger for load reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// settings is the configuration shared by the registry and the scanner.
type settings struct {
	rawPattern string
	pattern    pattern
	fold       bool
	caser      cases.Caser
	loader     Loader
	table      *opcode.Table
	log        *slog.Logger
}

func newSettings(op string, opts []Option) (settings, error) {
	s := settings{
		rawPattern: DefaultLibraryPattern(),
		fold:       DefaultCaseInsensitive(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	p, err := parsePattern(s.rawPattern)
	if err != nil {
		return settings{}, regerr.Wrap(regerr.InvalidArgument, op, s.rawPattern, err)
	}
	if s.fold {
		s.caser = cases.Fold()
		p.prefix = s.caser.String(p.prefix)
		p.suffix = s.caser.String(p.suffix)
	}
	s.pattern = p
	if s.table == nil {
		s.table = opcode.NewTable()
	}
	if s.loader == nil {
		s.loader = NewGoLoader(s.table)
	}
	return s, nil
}

// normalize folds name on case-insensitive platforms.
func (s *settings) normalize(name string) string {
	if s.fold {
		return s.caser.String(name)
	}
	return name
}

// shortName maps a descriptor token or a file name to a library short name.
func (s *settings) shortName(name string) string {
	return s.pattern.stem(s.normalize(name))
}
