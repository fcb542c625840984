package phaseshift

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/user/leed_phase_go/internal/diag"
	"github.com/user/leed_phase_go/internal/parser"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const niPhases = `# Ni
3 1 eV
1.0
-0.1000 0.0500
2.0
-0.2000 0.1000
3.0
-0.3000 0.1500
`

// writePhaseDir creates a search directory holding <name>.phs files.
func writePhaseDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name+Extension)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// countingLoader wraps parser.ParseFile and counts calls.
func countingLoader(calls *atomic.Int32) Loader {
	return func(path string, opts ...parser.Option) (*parser.Table, error) {
		calls.Add(1)
		return parser.ParseFile(path, opts...)
	}
}

func TestLookupOrLoadDedup(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	var calls atomic.Int32
	repo := New(WithSearchDir(dir), WithLoader(countingLoader(&calls)))

	first, err := repo.LookupOrLoad("Ni", parser.Vec3{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, first)

	again, err := repo.LookupOrLoad("Ni", parser.Vec3{0.00005, -0.00005, 0.00009})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	abs, err := repo.LookupOrLoad(filepath.Join(dir, "Ni.phs"), parser.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, first, abs)

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, repo.Len())
}

func TestLookupOrLoadGrowsOnMiss(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases, "O": niPhases})
	var calls atomic.Int32
	repo := New(WithSearchDir(dir), WithLoader(countingLoader(&calls)))

	base, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)

	for axis := 0; axis < 3; axis++ {
		dr := parser.Vec3{}
		dr[axis] = 0.0002
		before := repo.Len()

		idx, err := repo.LookupOrLoad("Ni", dr)
		require.NoError(t, err)
		assert.Equal(t, before, idx, "axis %d", axis)
		assert.NotEqual(t, base, idx)

		table, err := repo.Table(idx)
		require.NoError(t, err)
		assert.Equal(t, dr, table.Displacement())
	}

	other, err := repo.LookupOrLoad("O", parser.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, 4, other)
	assert.EqualValues(t, 5, calls.Load())
}

func TestLookupOrLoadToleranceBoundary(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	repo := New(WithSearchDir(dir), WithTolerance(0.5))

	_, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)

	idx, err := repo.LookupOrLoad("Ni", parser.Vec3{0.5, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "a difference equal to the tolerance is a miss")
}

func TestLookupOrLoadFirstMatchWins(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	repo := New(WithSearchDir(dir), WithTolerance(0.1))

	_, err := repo.LookupOrLoad("Ni", parser.Vec3{0, 0, 0})
	require.NoError(t, err)
	_, err = repo.LookupOrLoad("Ni", parser.Vec3{0.15, 0, 0})
	require.NoError(t, err)

	// Within tolerance of both entries.
	idx, err := repo.LookupOrLoad("Ni", parser.Vec3{0.07, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestLookupOrLoadTableContents(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	repo := New(WithSearchDir(dir))

	idx, err := repo.LoadPhaseShifts("Ni", parser.Vec3{})
	require.NoError(t, err)
	table, err := repo.GetTable(idx)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "Ni.phs"), table.SourcePath())
	assert.Equal(t, 3, table.ActualEnergyCount())
	assert.InDelta(t, 1/27.18, table.MinEnergy(), 1e-12)
	assert.Equal(t, []float64{-0.1, 0.05}, table.PhaseShifts(0))
}

func TestLookupOrLoadConfigurationError(t *testing.T) {
	repo := New(WithResolver(DirResolver{}))

	idx, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	assert.Equal(t, -1, idx)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, EnvPhaseDir, ce.Setting)
	assert.Equal(t, "Ni", ce.Identifier)
	assert.Equal(t, 0, repo.Len())
}

func TestLookupOrLoadUsesEnvironment(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	t.Setenv(EnvPhaseDir, dir)

	idx, err := New().LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestLookupOrLoadUnsetEnvironment(t *testing.T) {
	t.Setenv(EnvPhaseDir, "")

	_, err := New().LookupOrLoad("Ni", parser.Vec3{})
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestLookupOrLoadAbsolutePathNeedsNoSearchDir(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	repo := New(WithResolver(DirResolver{}))

	idx, err := repo.LookupOrLoad(filepath.Join(dir, "Ni.phs"), parser.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestLookupOrLoadParserErrorsPropagate(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"bad": "not a header\n"})
	repo := New(WithSearchDir(dir))

	_, err := repo.LookupOrLoad("missing", parser.Vec3{})
	var fae *parser.FileAccessError
	assert.ErrorAs(t, err, &fae)

	_, err = repo.LookupOrLoad("bad", parser.Vec3{})
	var fe *parser.FormatError
	assert.ErrorAs(t, err, &fe)

	assert.Equal(t, 0, repo.Len(), "failed loads must not be cached")
}

func TestLookupOrLoadLoaderErrorUnchanged(t *testing.T) {
	sentinel := errors.New("boom")
	repo := New(WithSearchDir("/phases"), WithLoader(func(string, ...parser.Option) (*parser.Table, error) {
		return nil, sentinel
	}))

	_, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	assert.Same(t, sentinel, err)
}

func TestTableIndexOutOfRange(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	repo := New(WithSearchDir(dir))
	_, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)

	for _, idx := range []int{-1, 1, 42} {
		_, err := repo.Table(idx)
		var ie *IndexOutOfRangeError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, idx, ie.Index)
		assert.Equal(t, 1, ie.Len)
	}
}

func TestLookupOrLoadTruncatedIsUsable(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Fe": "5 1\n1.0\n0.1 0.2\n2.0\n0.3 0.4\n3.0\n0.5 0.6\n"})
	var rec diag.Recorder
	repo := New(WithSearchDir(dir), WithSink(&rec))

	idx, err := repo.LookupOrLoad("Fe", parser.Vec3{})
	require.NoError(t, err)
	table, err := repo.Table(idx)
	require.NoError(t, err)

	assert.Equal(t, 3, table.ActualEnergyCount())
	assert.Equal(t, 5, table.DeclaredEnergyCount())

	warnings := rec.BySeverity(diag.Warning)
	require.Len(t, warnings, 1)
	assert.Equal(t, 5, warnings[0].Fields["declared"])
	assert.Equal(t, 3, warnings[0].Fields["found"])
}

func TestLookupOrLoadConcurrent(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases, "O": niPhases})
	var calls atomic.Int32
	repo := New(WithSearchDir(dir), WithLoader(countingLoader(&calls)))

	const workers = 32
	results := make([]int, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := "Ni"
			if w%2 == 1 {
				id = "O"
			}
			idx, err := repo.LookupOrLoad(id, parser.Vec3{0, 0, float64(w%4) * 1e-5})
			assert.NoError(t, err)
			results[w] = idx
		}(w)
	}
	wg.Wait()

	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, 2, repo.Len())
	for w := 2; w < workers; w++ {
		assert.Equal(t, results[w%2], results[w], "worker %d", w)
	}
}

func TestTablesSnapshot(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	repo := New(WithSearchDir(dir))
	_, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)

	tables := repo.Tables()
	require.Len(t, tables, 1)
	tables[0] = nil

	table, err := repo.Table(0)
	require.NoError(t, err)
	assert.NotNil(t, table)
}

// chdir switches the working directory for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLookupOrLoadRelativeSearchDir(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.Mkdir("phases", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("phases", "Ni"+Extension), []byte(niPhases), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	abs := filepath.Join(wd, "phases", "Ni"+Extension)

	var calls atomic.Int32
	repo := New(WithSearchDir("phases"), WithLoader(countingLoader(&calls)))

	byName, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)
	byPath, err := repo.LookupOrLoad(abs, parser.Vec3{})
	require.NoError(t, err)

	assert.Equal(t, byName, byPath)
	assert.Equal(t, int32(1), calls.Load())

	table, err := repo.Table(byName)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(table.SourcePath()))
}

func TestLookupOrLoadKeyIgnoresLoaderDisplacement(t *testing.T) {
	dir := writePhaseDir(t, map[string]string{"Ni": niPhases})
	var calls atomic.Int32
	// Drops every option, so the table always reports a zero displacement.
	loader := func(path string, _ ...parser.Option) (*parser.Table, error) {
		calls.Add(1)
		return parser.ParseFile(path)
	}
	repo := New(WithSearchDir(dir), WithLoader(loader))
	dr := parser.Vec3{0.5, 0, 0}

	first, err := repo.LookupOrLoad("Ni", dr)
	require.NoError(t, err)
	again, err := repo.LookupOrLoad("Ni", dr)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int32(1), calls.Load())

	zero, err := repo.LookupOrLoad("Ni", parser.Vec3{})
	require.NoError(t, err)
	assert.NotEqual(t, first, zero)
	assert.Equal(t, int32(2), calls.Load())
}
