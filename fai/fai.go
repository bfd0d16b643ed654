// Package fai reads fasta index files. The aligner indexes the draft assembly
// as a side effect, so a .fai is usually available for cheap contig stats
// without reading the assembly itself.
package fai

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// Contig is one reference sequence described by an index line.
type Contig struct {
	Name         string
	Len          int // total length in bases
	Offset       int // byte offset of the first base
	BasesPerLine int
	BytesPerLine int // including the newline
}

// Index holds the contigs of an indexed fasta in file order.
type Index struct {
	Contigs []Contig
	nameMap map[string]int
}

// Size returns the length of the named contig, or -1 when absent.
func (idx Index) Size(name string) int {
	i, ok := idx.nameMap[name]
	if !ok {
		return -1
	}
	return idx.Contigs[i].Len
}

// TotalLen returns the summed length of all contigs.
func (idx Index) TotalLen() int {
	var total int
	for i := range idx.Contigs {
		total += idx.Contigs[i].Len
	}
	return total
}

// ReadIndex parses filename as a 5-column fai file.
func ReadIndex(filename string) (Index, error) {
	file := fileio.EasyOpen(filename)
	answer := Index{nameMap: make(map[string]int)}
	var line string
	var done bool
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		col := strings.Split(line, "\t")
		if len(col) != 5 {
			return answer, errors.Errorf("malformed index file %s on line: %s", filename, line)
		}
		var curr Contig
		curr.Name = col[0]
		var err error
		curr.Len, err = strconv.Atoi(col[1])
		if err != nil {
			return answer, errors.Wrapf(err, "malformed index file %s on line: %s", filename, line)
		}
		for i, dst := range []*int{&curr.Offset, &curr.BasesPerLine, &curr.BytesPerLine} {
			*dst, err = strconv.Atoi(col[2+i])
			if err != nil {
				return answer, errors.Wrapf(err, "malformed index file %s on line: %s", filename, line)
			}
		}
		answer.nameMap[curr.Name] = len(answer.Contigs)
		answer.Contigs = append(answer.Contigs, curr)
	}
	err := file.Close()
	exception.PanicOnErr(err)
	return answer, nil
}
