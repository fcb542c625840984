package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/user/leed_phase_go/internal/parser"
)

// WriteListing prints the energies and phase shifts of t, one energy per row.
// Shifts that are exactly zero are shown as "--".
func WriteListing(w io.Writer, t *parser.Table) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Number of energies = %d, lmax = %d\n", t.ActualEnergyCount(), t.LMax())
	fmt.Fprintf(bw, "\n\t  E(H)")
	for l := 0; l < t.Channels(); l++ {
		fmt.Fprintf(bw, "\t  l=%2d", l)
	}
	fmt.Fprintf(bw, "\n\n")

	for i := 0; i < t.ActualEnergyCount(); i++ {
		fmt.Fprintf(bw, "\t%7.4f", t.Energy(i))
		for l := 0; l < t.Channels(); l++ {
			if v := t.PhaseShift(i, l); v != 0 {
				fmt.Fprintf(bw, "\t%7.4f", v)
			} else {
				fmt.Fprintf(bw, "\t   --  ")
			}
		}
		fmt.Fprintf(bw, "\n")
	}
	fmt.Fprintf(bw, "\n")

	return bw.Flush()
}
