// Package summary reports on a finished polishing run: draft statistics,
// counts read back from the produced artifacts, and a per-stage wall-clock
// profile.
package summary

import (
	"fmt"
	"os"
	"strings"

	"github.com/arun-sub/medaka/fai"
	"github.com/guptarohit/asciigraph"
	"github.com/vertgenlab/gonomics/bed"
	"github.com/vertgenlab/gonomics/fasta"
	"github.com/vertgenlab/gonomics/vcf"
)

// StageTime is the measured wall time of one executed pipeline stage.
type StageTime struct {
	Stage   string
	Seconds float64
}

// DraftStats returns the contig count and total length of the draft assembly.
// When the aligner left a .fai index beside the draft it is used instead of
// reading the whole fasta. The index must be stat'd before ReadIndex sees it:
// fileio exits the process on files it cannot open.
func DraftStats(draftFile string) (contigs, bases int) {
	if index := draftFile + ".fai"; fileExists(index) {
		if idx, err := fai.ReadIndex(index); err == nil && len(idx.Contigs) > 0 {
			return len(idx.Contigs), idx.TotalLen()
		}
	}
	records := fasta.Read(draftFile)
	for i := range records {
		bases += len(records[i].Seq)
	}
	return len(records), bases
}

// VariantCount returns the number of records in a vcf file.
func VariantCount(vcfFile string) int {
	var n int
	records, _ := vcf.GoReadToChan(vcfFile)
	for range records {
		n++
	}
	return n
}

// BedBases returns the total bases covered by records of a bed file, without
// collapsing overlaps.
func BedBases(bedFile string) int {
	var total int
	for _, b := range bed.Read(bedFile) {
		total += b.ChromEnd - b.ChromStart
	}
	return total
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Profile renders the stage wall times as a small terminal graph followed by
// one line per stage.
func Profile(times []StageTime) string {
	if len(times) == 0 {
		return "no stages ran"
	}
	vals := make([]float64, len(times))
	for i := range times {
		vals[i] = times[i].Seconds
	}
	s := new(strings.Builder)
	s.WriteString(asciigraph.Plot(vals, asciigraph.Height(5), asciigraph.Precision(1), asciigraph.Caption("stage wall time (s)")))
	s.WriteByte('\n')
	for i := range times {
		fmt.Fprintf(s, "%12s  %.1fs\n", times[i].Stage, times[i].Seconds)
	}
	return s.String()
}
