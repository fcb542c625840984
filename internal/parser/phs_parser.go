package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/user/leed_phase_go/internal/diag"
)

// maxLineLength bounds a single input line.
const maxLineLength = 1 << 20

// MaxTableCells bounds declared energies times channels in a header. Tables
// are allocated in full up front, so larger headers are rejected as format
// errors.
const MaxTableCells = 1 << 24

// openFile is os.Open; tests replace it to watch the file being closed.
var openFile = func(name string) (io.ReadCloser, error) { return os.Open(name) }

// lineReader hands out lines and counts them for error messages.
type lineReader struct {
	scanner *bufio.Scanner
	lineNo  int
}

func newLineReader(r io.Reader) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineLength)
	return &lineReader{scanner: s}
}

// next returns the following line without its terminator, or false at EOF
// or on a read error.
func (lr *lineReader) next() (string, bool) {
	if !lr.scanner.Scan() {
		return "", false
	}
	lr.lineNo++
	return strings.TrimRight(lr.scanner.Text(), "\r"), true
}

func (lr *lineReader) err() error { return lr.scanner.Err() }

// ParseFile opens path and parses it as a phase-shift file. The file is
// closed before ParseFile returns.
func ParseFile(path string, opts ...Option) (*Table, error) {
	o := newOptions(opts)

	file, err := openFile(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	defer file.Close()

	o.Sink.Emit(diag.Event{Severity: diag.Info, Message: fmt.Sprintf("reading file %q", path), Path: path})

	return parse(file, path, o)
}

// Parse reads a phase-shift table from r. name is recorded as the table's
// source path and used in diagnostics.
func Parse(r io.Reader, name string, opts ...Option) (*Table, error) {
	return parse(r, name, newOptions(opts))
}

func parse(r io.Reader, path string, o Options) (*Table, error) {
	digest := xxhash.New()
	src := io.TeeReader(r, digest)
	lines := newLineReader(src)
	bits := o.Precision.BitSize()

	header, ok := lines.next()
	for ok && strings.HasPrefix(header, "#") {
		header, ok = lines.next()
	}
	if !ok {
		if err := lines.err(); err != nil {
			return nil, &FileAccessError{Path: path, Err: err}
		}
		return nil, &FormatError{Path: path, LineNo: lines.lineNo, Expected: HeaderFormat, Err: io.ErrUnexpectedEOF}
	}

	declared, lmax, unitTag, err := parseHeader(header)
	if err != nil {
		return nil, &FormatError{Path: path, LineNo: lines.lineNo, Line: header, Expected: HeaderFormat, Err: err}
	}

	unit := unitFromTag(unitTag)
	scale := unit.Scale()
	o.Sink.Emit(diag.Event{Severity: diag.Info, Message: fmt.Sprintf("Energy input in %s", unit), Path: path})

	t := newTable(path, declared, lmax)
	t.displacement = o.Displacement
	t.unit = unit
	t.actual = declared

	nl := lmax + 1
	for i := 0; i < declared; i++ {
		line, ok := lines.next()
		if !ok || strings.TrimSpace(line) == "" {
			t.actual = i
			break
		}
		eng, err := ParseFields(line, 1, bits)
		if err != nil {
			return nil, locate(err, path, lines.lineNo)
		}
		t.energies[i] = o.Precision.round(eng[0] * scale)

		if i == 0 {
			t.minEnergy = t.energies[i]
		} else {
			t.maxEnergy = t.energies[i]
		}

		line, ok = lines.next()
		var row []float64
		if ok {
			row, err = ParseFields(line, nl, bits)
			if err != nil {
				o.Sink.Emit(diag.Event{
					Severity: diag.Warning,
					Message:  fmt.Sprintf("unreadable phase shifts for energy %d: %v", i, err),
					Path:     path,
					Line:     line,
				})
			}
		}
		if !ok || err != nil {
			t.energies[i] = 0.
			if i > 0 {
				t.maxEnergy = t.energies[i-1]
			} else {
				t.maxEnergy = 0.
			}
			t.actual = i
			break
		}
		copy(t.phaseShifts[i], row)
	}
	if err := lines.err(); err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}

	// Hash whatever follows the last record too.
	if _, err := io.Copy(io.Discard, src); err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	t.checksum = digest.Sum64()

	o.Sink.Emit(diag.Event{
		Severity: diag.Info,
		Message:  fmt.Sprintf("Number of energies = %d, lmax = %d", t.actual, t.lmax),
		Path:     path,
	})

	if t.Truncated() {
		o.Sink.Emit(TruncatedDataWarning{Path: path, Declared: declared, Found: t.actual}.Event())
	}

	return t, nil
}

// parseHeader splits "<n_eng> <lmax> [unit]".
func parseHeader(line string) (declared, lmax int, unitTag string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, 0, "", fmt.Errorf("expected at least 2 fields, found %d", len(fields))
	}
	declared, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("number of energies: %w", err)
	}
	lmax, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("lmax: %w", err)
	}
	if declared < 0 || lmax < 0 {
		return 0, 0, "", fmt.Errorf("negative count in header (%d energies, lmax %d)", declared, lmax)
	}
	if lmax >= MaxTableCells || declared > MaxTableCells/(lmax+1) {
		return 0, 0, "", fmt.Errorf("table of %d energies with lmax %d exceeds %d values", declared, lmax, MaxTableCells)
	}
	if len(fields) > 2 {
		unitTag = fields[2]
	}
	return declared, lmax, unitTag, nil
}

// unitFromTag looks at the first two characters of the tag only, ignoring
// case. Anything unrecognised means atomic units.
func unitFromTag(tag string) EnergyUnit {
	if len(tag) < 2 {
		return UnitHartree
	}
	switch strings.ToLower(tag[:2]) {
	case "ev":
		return UnitElectronVolt
	case "ry":
		return UnitRydberg
	default:
		return UnitHartree
	}
}

// locate fills in the file position of a tokenizer error.
func locate(err error, path string, lineNo int) error {
	var mne *MalformedNumberError
	if errors.As(err, &mne) {
		mne.Path = path
		mne.LineNo = lineNo
		return mne
	}
	return fmt.Errorf("%s:%d: %w", path, lineNo, err)
}
