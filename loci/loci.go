// Package loci holds the table of candidate mutation sites that fragments
// are resolved against. Each site is a single genomic coordinate with a
// known reference and alternate base.
package loci

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/vcf"
)

// Key identifies a genomic site. Pos is 1-based.
type Key struct {
	Chrom string
	Pos   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Chrom, k.Pos)
}

// Locus is one candidate mutation site.
type Locus struct {
	Chrom string
	Pos   int // 1-based
	Ref   dna.Base
	Alt   dna.Base
}

func (l Locus) Key() Key {
	return Key{Chrom: l.Chrom, Pos: l.Pos}
}

// TargetKey identifies the site together with the targeted substitution.
func (l Locus) TargetKey() string {
	return fmt.Sprintf("%s:%d:%c:%c", l.Chrom, l.Pos, dna.BaseToRune(l.Ref), dna.BaseToRune(l.Alt))
}

// Table is an ordered collection of loci indexed for O(1) lookup by site.
// Duplicate sites keep the first entry seen.
type Table struct {
	loci  []Locus
	index map[Key]int
}

func NewTable() *Table {
	return &Table{index: make(map[Key]int)}
}

// Add appends l to the table. Returns false if the site was already present.
func (t *Table) Add(l Locus) bool {
	if _, found := t.index[l.Key()]; found {
		return false
	}
	t.index[l.Key()] = len(t.loci)
	t.loci = append(t.loci, l)
	return true
}

func (t *Table) Lookup(k Key) (Locus, bool) {
	i, found := t.index[k]
	if !found {
		return Locus{}, false
	}
	return t.loci[i], true
}

func (t *Table) Loci() []Locus {
	return t.loci
}

func (t *Table) Len() int {
	return len(t.loci)
}

// FromVcf builds a table from the variant calls in filename, keeping only
// biallelic substitutions. Records at position 1 are excluded since the
// 5' flanking base needed for context derivation does not exist.
func FromVcf(filename string) *Table {
	t := NewTable()
	records, _ := vcf.GoReadToChan(filename)
	for v := range records {
		if !vcf.IsBiallelic(v) || !vcf.IsSubstitution(v) || v.Pos == 1 {
			continue
		}
		t.Add(Locus{
			Chrom: v.Chr,
			Pos:   v.Pos,
			Ref:   dna.StringToBase(strings.ToUpper(v.Ref)),
			Alt:   dna.StringToBase(strings.ToUpper(v.Alt[0])),
		})
	}
	return t
}

// Read parses a 4-column tsv of chrom, 1-based position, ref base, alt base.
func Read(filename string) *Table {
	t := NewTable()
	file := fileio.EasyOpen(filename)
	var line string
	var col []string
	var done bool
	var pos int
	var err error
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		col = strings.Split(line, "\t")
		if len(col) != 4 || len(col[2]) != 1 || len(col[3]) != 1 {
			log.Fatalf("ERROR: malformed locus file: %s\nerror on line:\n%s\n", filename, line)
		}
		pos, err = strconv.Atoi(col[1])
		exception.PanicOnErr(err)
		t.Add(Locus{
			Chrom: col[0],
			Pos:   pos,
			Ref:   dna.StringToBase(strings.ToUpper(col[2])),
			Alt:   dna.StringToBase(strings.ToUpper(col[3])),
		})
	}
	err = file.Close()
	exception.PanicOnErr(err)
	return t
}

// Write stores the table in the format expected by Read.
func Write(filename string, t *Table) {
	out := fileio.EasyCreate(filename)
	for _, l := range t.loci {
		fmt.Fprintf(out, "%s\t%d\t%c\t%c\n", l.Chrom, l.Pos, dna.BaseToRune(l.Ref), dna.BaseToRune(l.Alt))
	}
	err := out.Close()
	exception.PanicOnErr(err)
}
