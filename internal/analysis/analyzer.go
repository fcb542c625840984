package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/user/leed_phase_go/internal/parser"
)

// channelColumn collects the shifts of channel l over the first n energies.
func channelColumn(t *parser.Table, l, n int) []float64 {
	col := make([]float64, n)
	for i := 0; i < n; i++ {
		col[i] = t.PhaseShift(i, l)
	}
	return col
}

// channelStats computes the statistics of one column. An empty column gives
// NaN for every value.
func channelStats(l int, col []float64) ChannelStats {
	cs := ChannelStats{
		L:          l,
		NumSamples: len(col),
		Mean:       math.NaN(),
		StdDev:     math.NaN(),
		Min:        math.NaN(),
		Max:        math.NaN(),
		Range:      math.NaN(),
	}
	if len(col) == 0 {
		return cs
	}
	cs.Mean, cs.StdDev = stat.PopMeanStdDev(col, nil)
	cs.Min = floats.Min(col)
	cs.Max = floats.Max(col)
	cs.Range = cs.Max - cs.Min
	for _, v := range col {
		if v == 0 {
			cs.ZeroCount++
		}
	}
	return cs
}

// AnalyzeTable computes per-channel statistics and energy-range checks for t.
func AnalyzeTable(t *parser.Table) (*TableAnalysis, error) {
	if t == nil {
		return nil, fmt.Errorf("table is nil, cannot analyze")
	}

	n := t.ActualEnergyCount()
	res := NewTableAnalysis()
	res.SourcePath = t.SourcePath()
	res.LMax = t.LMax()
	res.DeclaredEnergyCount = t.DeclaredEnergyCount()
	res.ActualEnergyCount = n
	res.LegacyMaxEnergy = t.MaxEnergy()
	res.EnergyMin = math.NaN()
	res.EnergyMax = math.NaN()

	if t.Truncated() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Only %d of %d declared energies were read.", n, t.DeclaredEnergyCount()))
	}
	if n == 0 {
		res.Warnings = append(res.Warnings, "No energies read, nothing to analyze.")
		for l := 0; l < t.Channels(); l++ {
			res.Channels = append(res.Channels, channelStats(l, nil))
		}
		return res, nil
	}

	energies := t.Energies()[:n]
	res.EnergyMin = floats.Min(energies)
	res.EnergyMax = floats.Max(energies)
	res.Monotonic = true
	for i := 1; i < n; i++ {
		if energies[i] <= energies[i-1] {
			res.Monotonic = false
			break
		}
	}
	if !res.Monotonic {
		res.Warnings = append(res.Warnings, "Energies are not strictly increasing.")
	}
	if n > 1 && res.LegacyMaxEnergy != res.EnergyMax {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Last energy read (%.4f) is not the largest energy (%.4f).", res.LegacyMaxEnergy, res.EnergyMax))
	}

	for l := 0; l < t.Channels(); l++ {
		cs := channelStats(l, channelColumn(t, l, n))
		res.Channels = append(res.Channels, cs)
		res.RankedByRange = append(res.RankedByRange, RankedChannel{L: l, Value: cs.Range})
		if cs.ZeroCount == n {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Channel l=%d is zero at every energy.", l))
		}
	}

	sort.SliceStable(res.RankedByRange, func(i, j int) bool {
		return res.RankedByRange[i].Value > res.RankedByRange[j].Value // Descending
	})

	return res, nil
}
