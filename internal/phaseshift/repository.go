// Package phaseshift keeps the phase-shift tables of a simulation run. Each
// distinct (file, displacement) pair is parsed once; callers hold on to the
// returned index instead of the table.
package phaseshift

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/user/leed_phase_go/internal/diag"
	"github.com/user/leed_phase_go/internal/parser"
)

// DefaultTolerance is the largest per-axis displacement difference, in
// Angstrom, under which two displacements are the same cache key.
const DefaultTolerance = 1e-4

// Loader parses one phase-shift file. The repository passes the displacement
// it was asked for among opts, but keys its cache on the requested path and
// displacement whatever the returned table reports.
type Loader func(path string, opts ...parser.Option) (*parser.Table, error)

// entry is one cached table and the key it was loaded under.
type entry struct {
	path  string
	dr    parser.Vec3
	table *parser.Table
}

// Repository is an append-only list of phase-shift tables. It is safe for
// concurrent use.
type Repository struct {
	resolver  PathResolver
	load      Loader
	tolerance float64
	precision parser.Precision
	sink      diag.Sink

	mu      sync.Mutex
	entries []entry
}

// Option configures a Repository.
type Option func(*Repository)

// WithResolver sets how relative identifiers become file paths.
func WithResolver(r PathResolver) Option {
	return func(repo *Repository) { repo.resolver = r }
}

// WithSearchDir resolves relative identifiers against dir.
func WithSearchDir(dir string) Option {
	return WithResolver(DirResolver{Dir: dir})
}

// WithTolerance sets the per-axis displacement tolerance. The default is
// DefaultTolerance.
func WithTolerance(tol float64) Option {
	return func(repo *Repository) { repo.tolerance = tol }
}

// WithPrecision sets the precision tables are parsed with.
func WithPrecision(p parser.Precision) Option {
	return func(repo *Repository) { repo.precision = p }
}

// WithSink receives the events of every load.
func WithSink(s diag.Sink) Option {
	return func(repo *Repository) { repo.sink = s }
}

// WithLoader replaces parser.ParseFile.
func WithLoader(l Loader) Option {
	return func(repo *Repository) { repo.load = l }
}

// New creates an empty repository. Without WithResolver or WithSearchDir,
// relative identifiers are resolved against $CLEED_PHASE.
func New(opts ...Option) *Repository {
	repo := &Repository{
		load:      parser.ParseFile,
		tolerance: DefaultTolerance,
		precision: parser.Precision64,
		sink:      diag.Discard,
	}
	for _, opt := range opts {
		opt(repo)
	}
	if repo.resolver == nil {
		repo.resolver = EnvResolver()
	}
	if repo.sink == nil {
		repo.sink = diag.Discard
	}
	return repo
}

// LookupOrLoad returns the index of the table for id and dr, parsing the file
// if no table with the same path and a displacement within tolerance on every
// axis exists yet. Parser errors are returned unchanged.
func (r *Repository) LookupOrLoad(id string, dr parser.Vec3) (int, error) {
	path, err := r.resolve(id)
	if err != nil {
		return -1, err
	}

	// Held across the parse so concurrent misses on one key load it once.
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.find(path, dr); i >= 0 {
		return i, nil
	}

	index := len(r.entries)
	r.sink.Emit(diag.Event{
		Severity: diag.Info,
		Message:  fmt.Sprintf("loading phase shifts %q as index %d", id, index),
		Path:     path,
	})

	table, err := r.load(path,
		parser.WithDisplacement(dr),
		parser.WithPrecision(r.precision),
		parser.WithSink(r.sink))
	if err != nil {
		return -1, err
	}

	r.entries = append(r.entries, entry{path: path, dr: dr, table: table})
	return index, nil
}

// LoadPhaseShifts is LookupOrLoad under the name the solver uses.
func (r *Repository) LoadPhaseShifts(id string, dr parser.Vec3) (int, error) {
	return r.LookupOrLoad(id, dr)
}

// Table returns the table behind a handle returned by LookupOrLoad.
func (r *Repository) Table(index int) (*parser.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.entries) {
		return nil, &IndexOutOfRangeError{Index: index, Len: len(r.entries)}
	}
	return r.entries[index].table, nil
}

// GetTable is Table under the name the solver uses.
func (r *Repository) GetTable(index int) (*parser.Table, error) {
	return r.Table(index)
}

// Len returns the number of tables loaded so far.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Tables returns the loaded tables in index order.
func (r *Repository) Tables() []*parser.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*parser.Table, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.table
	}
	return out
}

func (r *Repository) resolve(id string) (string, error) {
	if filepath.IsAbs(id) {
		return id, nil
	}
	return r.resolver.Resolve(id)
}

// find returns the first table matching path and dr, or -1. r.mu must be held.
func (r *Repository) find(path string, dr parser.Vec3) int {
	for i, e := range r.entries {
		if e.path == path && r.sameDisplacement(e.dr, dr) {
			return i
		}
	}
	return -1
}

func (r *Repository) sameDisplacement(a, b parser.Vec3) bool {
	for k := range a {
		if math.Abs(a[k]-b[k]) >= r.tolerance {
			return false
		}
	}
	return true
}
