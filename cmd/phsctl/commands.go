package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/leed_phase_go/internal/analysis"
	"github.com/user/leed_phase_go/internal/parser"
	"github.com/user/leed_phase_go/internal/phaseshift"
	"github.com/user/leed_phase_go/internal/report"
)

var (
	showDR   []float64
	loadDR   []float64
	reportDR []float64

	reportOutput  string
	reportHeatmap bool
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the phase-shift table for one identifier",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var loadCmd = &cobra.Command{
	Use:   "load <id>...",
	Short: "Load identifiers into one repository and print their indices",
	Long: `Each identifier is loaded with the displacement given by --dr. Repeating an
identifier returns the index of the table already loaded for it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

var reportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Write a PDF report with statistics and plots for one table",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	showCmd.Flags().Float64SliceVar(&showDR, "dr", []float64{0, 0, 0}, "displacement x,y,z")
	loadCmd.Flags().Float64SliceVar(&loadDR, "dr", []float64{0, 0, 0}, "displacement x,y,z")
	reportCmd.Flags().Float64SliceVar(&reportDR, "dr", []float64{0, 0, 0}, "displacement x,y,z")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "report path (default: <id>.pdf)")
	reportCmd.Flags().BoolVar(&reportHeatmap, "heatmap", true, "include the phase-shift heatmap")
}

func loadTable(repo *phaseshift.Repository, id string, dr parser.Vec3) (*parser.Table, error) {
	idx, err := repo.LookupOrLoad(id, dr)
	if err != nil {
		return nil, err
	}
	return repo.GetTable(idx)
}

func runShow(cmd *cobra.Command, args []string) error {
	dr, err := toVec3(showDR)
	if err != nil {
		return err
	}
	repo, err := newRepository()
	if err != nil {
		return err
	}
	table, err := loadTable(repo, args[0], dr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s (%s, checksum %016x)\n", table.SourcePath(), table.Unit(), table.Checksum())
	return report.WriteListing(out, table)
}

func runLoad(cmd *cobra.Command, args []string) error {
	dr, err := toVec3(loadDR)
	if err != nil {
		return err
	}
	repo, err := newRepository()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, id := range args {
		idx, err := repo.LookupOrLoad(id, dr)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		t, err := repo.Table(idx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%s\t%d/%d\n", idx, t.SourcePath(), t.ActualEnergyCount(), t.DeclaredEnergyCount())
	}
	logger.Debug("repository populated", zap.Int("tables", repo.Len()))
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	dr, err := toVec3(reportDR)
	if err != nil {
		return err
	}
	repo, err := newRepository()
	if err != nil {
		return err
	}
	table, err := loadTable(repo, args[0], dr)
	if err != nil {
		return err
	}

	res, err := analysis.AnalyzeTable(table)
	if err != nil {
		return err
	}

	plots := make(map[string][]byte)
	if img, err := report.CreatePhaseShiftPlot(table, nil); err != nil {
		logger.Warn("line plot skipped", zap.Error(err))
	} else {
		plots[report.PlotLines] = img
	}
	if reportHeatmap {
		title := strings.TrimSuffix(filepath.Base(table.SourcePath()), filepath.Ext(table.SourcePath()))
		if img, err := report.CreatePhaseShiftHeatmap(table, title); err != nil {
			logger.Warn("heatmap skipped", zap.Error(err))
		} else {
			plots[report.PlotHeatmap] = img
		}
	}

	path := reportOutput
	if path == "" {
		path = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + ".pdf"
	}
	if err := report.BuildPDFReport(path, table, res, plots); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("report written", zap.String("path", path), zap.Int("warnings", len(res.Warnings)))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
