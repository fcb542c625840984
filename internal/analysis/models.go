package analysis

// ChannelStats holds the statistics of one angular-momentum channel over the
// energies actually read.
type ChannelStats struct {
	L          int
	NumSamples int
	Mean       float64
	StdDev     float64 // population standard deviation
	Min        float64
	Max        float64
	Range      float64
	ZeroCount  int // energies at which the shift is exactly zero
}

// RankedChannel is used for ranking channels by a single value.
type RankedChannel struct {
	L     int
	Value float64
}

// TableAnalysis summarises one phase-shift table.
type TableAnalysis struct {
	SourcePath          string
	LMax                int
	DeclaredEnergyCount int
	ActualEnergyCount   int

	// EnergyMin and EnergyMax span the energies read, in atomic units.
	EnergyMin float64
	EnergyMax float64
	// LegacyMaxEnergy is Table.MaxEnergy, the last energy read.
	LegacyMaxEnergy float64
	// Monotonic is true when energies strictly increase.
	Monotonic bool

	Channels      []ChannelStats
	RankedByRange []RankedChannel // descending
	Warnings      []string
}

func NewTableAnalysis() *TableAnalysis {
	return &TableAnalysis{
		Channels:      make([]ChannelStats, 0),
		RankedByRange: make([]RankedChannel, 0),
		Warnings:      make([]string, 0),
	}
}
