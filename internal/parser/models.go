package parser

import "github.com/user/leed_phase_go/internal/diag"

// Hartree is the energy, in eV, of one atomic energy unit as used by the
// phase-shift files.
const Hartree = 27.18

// Vec3 is a displacement vector (x, y, z).
type Vec3 [3]float64

// Precision selects the floating-point width numbers are parsed with.
type Precision int

const (
	Precision64 Precision = 64
	Precision32 Precision = 32
)

// BitSize returns the strconv bit size for p, defaulting to 64.
func (p Precision) BitSize() int {
	if p == Precision32 {
		return 32
	}
	return 64
}

// round brings v to the configured precision.
func (p Precision) round(v float64) float64 {
	if p == Precision32 {
		return float64(float32(v))
	}
	return v
}

// EnergyUnit is the unit the energies of a file were written in.
type EnergyUnit int

const (
	UnitHartree EnergyUnit = iota
	UnitElectronVolt
	UnitRydberg
)

func (u EnergyUnit) String() string {
	switch u {
	case UnitElectronVolt:
		return "eV"
	case UnitRydberg:
		return "Rydberg"
	default:
		return "Hartree"
	}
}

// Scale is the factor converting energies in u into atomic units.
func (u EnergyUnit) Scale() float64 {
	switch u {
	case UnitElectronVolt:
		return 1. / Hartree
	case UnitRydberg:
		return 2. / Hartree
	default:
		return 1.
	}
}

// Table holds the phase shifts of one (file, displacement) combination.
// A Table is never modified after Parse returns it; accessors hand out copies.
type Table struct {
	sourcePath   string
	displacement Vec3
	lmax         int
	unit         EnergyUnit
	checksum     uint64

	declared int
	actual   int

	// energies and phaseShifts always have declared rows; rows at and beyond
	// actual are zero.
	energies    []float64
	phaseShifts [][]float64

	minEnergy float64
	maxEnergy float64
}

func newTable(path string, declared, lmax int) *Table {
	t := &Table{
		sourcePath:  path,
		lmax:        lmax,
		declared:    declared,
		energies:    make([]float64, declared),
		phaseShifts: make([][]float64, declared),
	}
	for i := range t.phaseShifts {
		t.phaseShifts[i] = make([]float64, lmax+1)
	}
	return t
}

// SourcePath is the file the table was read from.
func (t *Table) SourcePath() string { return t.sourcePath }

// Displacement is the displacement the table was loaded for.
func (t *Table) Displacement() Vec3 { return t.displacement }

// LMax is the highest angular momentum quantum number in the table.
func (t *Table) LMax() int { return t.lmax }

// Channels is the number of phase shifts per energy, LMax+1.
func (t *Table) Channels() int { return t.lmax + 1 }

// Unit is the energy unit named in the file header.
func (t *Table) Unit() EnergyUnit { return t.unit }

// Checksum is the xxhash64 of the file contents.
func (t *Table) Checksum() uint64 { return t.checksum }

// DeclaredEnergyCount is the number of energies the header announced.
func (t *Table) DeclaredEnergyCount() int { return t.declared }

// ActualEnergyCount is the number of complete energy records read.
func (t *Table) ActualEnergyCount() int { return t.actual }

// MinEnergy is the first energy read from the file.
func (t *Table) MinEnergy() float64 { return t.minEnergy }

// MaxEnergy is the last energy read from the file, which is only the maximum
// for files listed in increasing energy order.
func (t *Table) MaxEnergy() float64 { return t.maxEnergy }

// Truncated reports whether fewer energies were read than the header declared.
func (t *Table) Truncated() bool { return t.actual < t.declared }

// Energy returns energy i in atomic units.
func (t *Table) Energy(i int) float64 { return t.energies[i] }

// Energies returns a copy of all declared energies, zero-filled past
// ActualEnergyCount.
func (t *Table) Energies() []float64 {
	out := make([]float64, len(t.energies))
	copy(out, t.energies)
	return out
}

// PhaseShift returns the phase shift of channel l at energy index i.
func (t *Table) PhaseShift(i, l int) float64 { return t.phaseShifts[i][l] }

// PhaseShifts returns a copy of the row for energy index i.
func (t *Table) PhaseShifts(i int) []float64 {
	out := make([]float64, len(t.phaseShifts[i]))
	copy(out, t.phaseShifts[i])
	return out
}

// Options control a single parse.
type Options struct {
	Precision    Precision
	Displacement Vec3
	Sink         diag.Sink
}

// Option configures Options.
type Option func(*Options)

// WithPrecision sets the float size numbers are parsed with.
func WithPrecision(p Precision) Option {
	return func(o *Options) { o.Precision = p }
}

// WithDisplacement records the displacement the table is loaded for.
func WithDisplacement(dr Vec3) Option {
	return func(o *Options) { o.Displacement = dr }
}

// WithSink receives the parse's INFO and WARNING events.
func WithSink(s diag.Sink) Option {
	return func(o *Options) { o.Sink = s }
}

func newOptions(opts []Option) Options {
	o := Options{Precision: Precision64, Sink: diag.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Sink == nil {
		o.Sink = diag.Discard
	}
	return o
}
