package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/regerr"
)

// token is one whitespace-delimited word of a descriptor.
type token struct {
	text   string
	line   int
	column int
	file   bool // ended in ':', which is stripped from text
}

// scanner splits a descriptor into tokens and validates their characters.
type scanner struct {
	data   []byte
	pos    int
	line   int
	column int
}

func newScanner(data []byte) *scanner {
	return &scanner{data: data, line: 1, column: 1}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isTokenChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '.' || c == '-' || c == '_'
}

func (s *scanner) advance() {
	if s.data[s.pos] == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	s.pos++
}

// next returns the next token, or ok == false at end of input.
// The token text aliases the input.
func (s *scanner) next() (tok token, ok bool, err *ParseError) {
	for s.pos < len(s.data) && isSpace(s.data[s.pos]) {
		s.advance()
	}
	if s.pos >= len(s.data) {
		return token{}, false, nil
	}
	start := s.pos
	tok.line, tok.column = s.line, s.column
	for s.pos < len(s.data) && !isSpace(s.data[s.pos]) {
		s.advance()
	}
	text := s.data[start:s.pos]
	for i, c := range text {
		if isTokenChar(c) {
			continue
		}
		if c == ':' && i == len(text)-1 && i > 0 {
			tok.file = true
			text = text[:i]
			continue
		}
		pe := &ParseError{Line: tok.line, Column: tok.column + i, Token: string(text)}
		switch {
		case c == ':':
			pe.Detail = "misplaced ':'"
		case c >= 0x80:
			pe.Detail = fmt.Sprintf("invalid byte 0x%02x", c)
		default:
			pe.Detail = fmt.Sprintf("invalid character %q", rune(c))
		}
		return token{}, false, pe
	}
	tok.text = unsafe.String(unsafe.SliceData(text), len(text))
	return tok, true, nil
}

// arena is the exactly sized string area of a registry.
type arena struct {
	buf []byte
}

// add appends the concatenation of parts and returns it as a string that
// aliases the arena.
func (a *arena) add(parts ...string) string {
	start := len(a.buf)
	for _, p := range parts {
		a.buf = append(a.buf, p...)
	}
	if len(a.buf) == start {
		return ""
	}
	return unsafe.String(&a.buf[start], len(a.buf)-start)
}

// libraryPath joins dir and the library file name of short.
func (s *settings) libraryPath(dir, short string) (path, lib string) {
	lib = s.pattern.prefix + short + s.pattern.suffix
	if dir == "" {
		return lib, lib
	}
	return dir + string(filepath.Separator) + lib, lib
}

// Parse builds a registry from descriptor data. Library paths are
// resolved relative to dir.
//
// Parsing runs in two passes. The first validates the syntax and counts
// libraries, opcodes and string bytes; the record arrays and the string
// area are then allocated at their exact size and the second pass fills
// and links them. On any error no registry is returned.
func Parse(dir string, data []byte, opts ...Option) (*Registry, error) {
	s, err := newSettings("plugin.Parse", opts)
	if err != nil {
		return nil, err
	}
	dir = strings.TrimRight(dir, string(filepath.Separator))
	dirLen := 0
	if dir != "" {
		dirLen = len(dir) + 1
	}

	var nFiles, nOps, nBytes int
	sc := newScanner(data)
	for {
		tok, ok, perr := sc.next()
		if perr != nil {
			return nil, perr
		}
		if !ok {
			break
		}
		if tok.file {
			short := s.shortName(tok.text)
			nFiles++
			nBytes += len(short) + dirLen + len(s.pattern.prefix) + len(short) + len(s.pattern.suffix)
			continue
		}
		if nFiles == 0 {
			return nil, &ParseError{Line: tok.line, Column: tok.column, Token: tok.text, Detail: "opcode listed before any library"}
		}
		nOps++
		nBytes += len(tok.text)
	}

	r := &Registry{
		settings: s,
		dir:      dir,
		files:    make([]fileRecord, nFiles),
		ops:      make([]opRecord, nOps),
		strs:     arena{buf: make([]byte, 0, nBytes)},
	}

	var cur *fileRecord
	fi, oi := 0, 0
	sc = newScanner(data)
	for {
		tok, ok, _ := sc.next()
		if !ok {
			break
		}
		if tok.file {
			short := s.shortName(tok.text)
			if r.findFile(short) != nil {
				return nil, &ParseError{Line: tok.line, Column: tok.column, Token: tok.text, Detail: "duplicate library name"}
			}
			f := &r.files[fi]
			fi++
			f.short = r.strs.add(short)
			path, lib := s.libraryPath(dir, f.short)
			f.path = r.strs.add(path)
			f.lib = f.path[len(f.path)-len(lib):]
			f.first = oi
			h := namehash.Hash(f.short)
			f.next = r.fileIdx[h]
			r.fileIdx[h] = f
			cur = f
			continue
		}
		if r.findOpcode(tok.text) != nil {
			return nil, &ParseError{Line: tok.line, Column: tok.column, Token: tok.text, Detail: "duplicate opcode name"}
		}
		o := &r.ops[oi]
		oi++
		o.name = r.strs.add(tok.text)
		o.file = cur
		cur.count++
		h := namehash.Hash(o.name)
		o.next = r.opIdx[h]
		r.opIdx[h] = o
	}
	return r, nil
}

// LoadDir reads dir/opcodes.dir and parses it. A missing or empty
// descriptor means there is nothing to defer: LoadDir returns nil, nil.
func LoadDir(dir string, opts ...Option) (*Registry, error) {
	if dir == "" {
		return nil, nil
	}
	path := filepath.Join(dir, DescriptorName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, regerr.Wrap(regerr.ParseError, "plugin.LoadDir", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	r, err := Parse(dir, data, opts...)
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.File = path
	}
	if err != nil {
		return nil, err
	}
	r.settings.log.Debug("plugin descriptor loaded", "path", path, "libraries", len(r.files), "opcodes", len(r.ops))
	return r, nil
}
