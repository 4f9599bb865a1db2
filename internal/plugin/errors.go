package plugin

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/orcsym/internal/regerr"
)

// ErrLibraryNotFound is returned by a Loader when the library file does not
// exist. Loaders may also return errors wrapping fs.ErrNotExist. Both are
// benign: the file is marked Failed but resolution carries on.
var ErrLibraryNotFound = errors.New("plugin library not found")

// ParseError reports a malformed opcodes.dir descriptor.
type ParseError struct {
	// File is the descriptor path, or empty when parsing raw bytes.
	File string

	// Line and Column locate the offending token, both 1-based.
	Line   int
	Column int

	// Token is the offending token.
	Token string

	// Detail describes the problem.
	Detail string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	file := e.File
	if file == "" {
		file = DescriptorName
	}
	if e.Token != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %q", file, e.Line, e.Column, e.Detail, e.Token)
	}
	return fmt.Sprintf("%s:%d:%d: %s", file, e.Line, e.Column, e.Detail)
}

// ErrorCode implements regerr.Coder.
func (e *ParseError) ErrorCode() regerr.Code {
	return regerr.ParseError
}

// IsParseError returns true if err is a descriptor parse error.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// benign reports whether a loader error only means the library is absent.
func benign(err error) bool {
	return errors.Is(err, ErrLibraryNotFound) || errors.Is(err, fs.ErrNotExist)
}

// severity ranks loader failures: 0 benign, 1 load failure, 2 out of memory.
func severity(err error) int {
	switch {
	case err == nil || benign(err):
		return 0
	case regerr.IsOutOfMemory(err):
		return 2
	default:
		return 1
	}
}

// loadError classifies a non-benign loader failure for path.
func loadError(op, path string, err error) error {
	if regerr.IsOutOfMemory(err) {
		return regerr.Wrap(regerr.OutOfMemory, op, path, err)
	}
	return regerr.Wrap(regerr.LoadFailure, op, path, err)
}
