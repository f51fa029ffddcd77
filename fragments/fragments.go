// Package fragments holds the store of paired-end cfDNA fragments with
// per-mate base observations at candidate mutation sites.
package fragments

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// Mate observation placeholders. RefMatch is the pileup-style encoding for
// "covers the site and matches reference"; the literal reference base is
// substituted downstream during status resolution. NoCoverage marks a mate
// that does not span the site.
const (
	RefMatch   byte = '.'
	NoCoverage byte = '-'
)

// Annotation records what each mate of a fragment observed at one site.
// Mate1 and Mate2 are RefMatch, NoCoverage, or a literal base character.
type Annotation struct {
	Chrom string
	Pos   int // 1-based
	Mate1 byte
	Mate2 byte
}

func (a Annotation) Key() loci.Key {
	return loci.Key{Chrom: a.Chrom, Pos: a.Pos}
}

func (a Annotation) String() string {
	return fmt.Sprintf("%s:%d=%c%c", a.Chrom, a.Pos, a.Mate1, a.Mate2)
}

// Fragment is the genomic interval spanned by one sequenced read pair.
// Start and End are 0-based half-open.
type Fragment struct {
	Id          string
	Chrom       string
	Start       int
	End         int
	Strand      byte
	Annotations []Annotation
}

func (f Fragment) Length() int {
	return f.End - f.Start
}

// Store is the fragment collection with first-seen-wins de-duplication of
// fragment identifiers. Identifiers that were disambiguated upstream by a
// numeric suffix (readX, readX.1, ...) collapse to the same fragment.
type Store struct {
	frags []Fragment
	index map[string]int
	dups  int
}

func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Add appends f to the store unless its logical identifier was already
// seen. Returns false for dropped duplicates.
func (s *Store) Add(f Fragment) bool {
	f.Id = logicalId(f.Id)
	if _, found := s.index[f.Id]; found {
		s.dups++
		return false
	}
	s.index[f.Id] = len(s.frags)
	s.frags = append(s.frags, f)
	return true
}

func (s *Store) Fragments() []Fragment {
	return s.frags
}

func (s *Store) Len() int {
	return len(s.frags)
}

// Duplicates reports how many fragments were dropped by de-duplication.
func (s *Store) Duplicates() int {
	return s.dups
}

// logicalId strips a trailing ".N" duplicate-name disambiguation suffix.
func logicalId(id string) string {
	dot := strings.LastIndexByte(id, '.')
	if dot < 1 || dot == len(id)-1 {
		return id
	}
	for i := dot + 1; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return id
		}
	}
	return id[:dot]
}

// Read parses a fragment store from tsv. Columns are id, chrom, start, end,
// strand, and a semicolon-joined annotation list ("*" when empty).
func Read(filename string) *Store {
	s := NewStore()
	file := fileio.EasyOpen(filename)
	var line string
	var done bool
	for line, done = fileio.EasyNextRealLine(file); !done; line, done = fileio.EasyNextRealLine(file) {
		s.Add(parseFragment(filename, line))
	}
	err := file.Close()
	exception.PanicOnErr(err)
	return s
}

func parseFragment(filename, line string) Fragment {
	col := strings.Split(line, "\t")
	if len(col) != 6 || len(col[4]) != 1 {
		log.Fatalf("ERROR: malformed fragment file: %s\nerror on line:\n%s\n", filename, line)
	}
	var f Fragment
	var err error
	f.Id = col[0]
	f.Chrom = col[1]
	f.Start, err = strconv.Atoi(col[2])
	exception.PanicOnErr(err)
	f.End, err = strconv.Atoi(col[3])
	exception.PanicOnErr(err)
	f.Strand = col[4][0]
	if col[5] == "*" {
		return f
	}
	for _, field := range strings.Split(col[5], ";") {
		f.Annotations = append(f.Annotations, parseAnnotation(filename, line, field))
	}
	return f
}

func parseAnnotation(filename, line, field string) Annotation {
	var a Annotation
	eq := strings.IndexByte(field, '=')
	colon := strings.LastIndexByte(field, ':')
	if eq < 0 || colon < 0 || colon > eq || eq != len(field)-3 {
		log.Fatalf("ERROR: malformed locus annotation in %s: %s\nerror on line:\n%s\n", filename, field, line)
	}
	a.Chrom = field[:colon]
	pos, err := strconv.Atoi(field[colon+1 : eq])
	exception.PanicOnErr(err)
	a.Pos = pos
	a.Mate1 = field[eq+1]
	a.Mate2 = field[eq+2]
	return a
}

// Write stores the fragment collection in the format expected by Read.
func Write(filename string, s *Store) {
	out := fileio.EasyCreate(filename)
	sb := new(strings.Builder)
	for _, f := range s.frags {
		sb.Reset()
		for i := range f.Annotations {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(f.Annotations[i].String())
		}
		if len(f.Annotations) == 0 {
			sb.WriteByte('*')
		}
		fmt.Fprintf(out, "%s\t%s\t%d\t%d\t%c\t%s\n", f.Id, f.Chrom, f.Start, f.End, f.Strand, sb.String())
	}
	err := out.Close()
	exception.PanicOnErr(err)
}
