package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/leed_phase_go/internal/diag"
)

// HeaderFormat describes the expected header line of a phase-shift file.
const HeaderFormat = "<number of energies> <lmax> [eV|Ry|H]"

// FileAccessError reports a phase-shift file that could not be opened or read.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("could not open file %q: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// FormatError reports a missing or improper header line.
type FormatError struct {
	Path     string
	LineNo   int
	Line     string
	Expected string
	Err      error
}

func (e *FormatError) Error() string {
	if errors.Is(e.Err, io.ErrUnexpectedEOF) {
		return fmt.Sprintf("unexpected EOF found while reading file %q (expected %s)", e.Path, e.Expected)
	}
	return fmt.Sprintf("improper input line %d in file %q (expected %s): %q", e.LineNo, e.Path, e.Expected, e.Line)
}

func (e *FormatError) Unwrap() error { return e.Err }

// MalformedNumberError is returned when a line holds fewer numeric fields
// than required.
type MalformedNumberError struct {
	Path   string
	LineNo int
	Line   string
	Want   int
	Got    int
	Err    error
}

func (e *MalformedNumberError) Error() string {
	where := "line"
	if e.Path != "" {
		where = fmt.Sprintf("line %d of %q", e.LineNo, e.Path)
	}
	return fmt.Sprintf("%s: expected %d numeric fields, found %d: %q", where, e.Want, e.Got, e.Line)
}

func (e *MalformedNumberError) Unwrap() error { return e.Err }

// TruncatedDataWarning is the non-fatal diagnostic emitted when a file ends
// before all declared energies were read.
type TruncatedDataWarning struct {
	Path     string
	Declared int
	Found    int
}

func (w TruncatedDataWarning) String() string {
	return fmt.Sprintf("EOF found before reading all phase shifts: expected energies: %3d, found: %3d, file: %s",
		w.Declared, w.Found, w.Path)
}

// Event converts the warning into a diagnostic event.
func (w TruncatedDataWarning) Event() diag.Event {
	return diag.Event{
		Severity: diag.Warning,
		Message:  w.String(),
		Path:     w.Path,
		Fields:   map[string]any{"declared": w.Declared, "found": w.Found},
	}
}
