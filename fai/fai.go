package fai

import (
	"log"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// Index stores reference sequence lengths parsed from a fasta .fai file,
// used to bounds-check context windows before seeking into the fasta.
type Index struct {
	chroms  []chromLen
	nameMap map[string]int // maps chr name to index in chroms
}

type chromLen struct {
	name string
	len  int
}

// Size returns the length of chr in bases, or -1 if chr is not indexed.
func (idx Index) Size(chr string) int {
	i, found := idx.nameMap[chr]
	if !found {
		return -1
	}
	return idx.chroms[i].len
}

// InBounds reports whether the 0-based half-open window start:end lies
// entirely within chr.
func (idx Index) InBounds(chr string, start, end int) bool {
	size := idx.Size(chr)
	return size != -1 && start >= 0 && end <= size && start < end
}

// ReadIndex reads a fai index file. Only the name and length columns are
// retained; byte offsets are left to the fasta seeker.
func ReadIndex(filename string) Index {
	file := fileio.EasyOpen(filename)
	var answer Index
	var curr chromLen
	var line string
	var col []string
	var done bool
	var err error
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		col = strings.Split(line, "\t")
		if len(col) != 5 {
			log.Fatalf("ERROR: malformed index file: %s\nerror on line:\n%s\n", filename, line)
		}
		curr.name = col[0]
		curr.len, err = strconv.Atoi(col[1])
		exception.PanicOnErr(err)
		answer.chroms = append(answer.chroms, curr)
	}
	err = file.Close()
	exception.PanicOnErr(err)

	answer.nameMap = make(map[string]int)
	for i := range answer.chroms {
		answer.nameMap[answer.chroms[i].name] = i
	}
	return answer
}
