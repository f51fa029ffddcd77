package consensus

import (
	"math/rand"
	"testing"

	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
	"github.com/vertgenlab/gonomics/dna"
	"golang.org/x/exp/slices"
)

func testTable() *loci.Table {
	tbl := loci.NewTable()
	tbl.Add(loci.Locus{Chrom: "chr1", Pos: 1000000, Ref: dna.C, Alt: dna.T})
	tbl.Add(loci.Locus{Chrom: "chr2", Pos: 500, Ref: dna.G, Alt: dna.A})
	return tbl
}

func addFragment(s *fragments.Store, id string, pos int, chrom string, mate1, mate2 byte) {
	s.Add(fragments.Fragment{Id: id, Chrom: chrom, Start: pos - 80, End: pos + 80, Strand: '+',
		Annotations: []fragments.Annotation{{Chrom: chrom, Pos: pos, Mate1: mate1, Mate2: mate2}}})
}

func TestPriorityInvariant(t *testing.T) {
	// 3 fragments CO_MUT, 1 SO_REF: consensus must be CO_MUT
	s := fragments.NewStore()
	addFragment(s, "a", 1000000, "chr1", 'T', 'T')
	addFragment(s, "b", 1000000, "chr1", 'T', 'T')
	addFragment(s, "c", 1000000, "chr1", 'T', 'T')
	addFragment(s, "d", 1000000, "chr1", '.', '-')

	var audit Audit
	groups, outer := Group(s, testTable(), &audit)
	if len(groups) != 1 || outer != 0 {
		t.Fatal("expected 1 supported site, got", len(groups), outer)
	}

	rec, ok := Select(groups[0], rand.New(rand.NewSource(1)))
	if !ok {
		t.Fatal("site with mutant support must be emitted")
	}
	if rec.Category != MutConcordant {
		t.Error("consensus category must be MUT:concordant, got", rec.Category)
	}
	expected := Tally{CoMut: 3, SoRef: 1}
	if rec.Tally != expected {
		t.Error("wrong support tally:", rec.Tally)
	}
	if rec.Tally.Total() != 4 {
		t.Error("tally total must equal supporting fragments:", rec.Tally.Total())
	}
	if rec.Mismatch() != "chr1:1000000:C>T" {
		t.Error("wrong consensus mismatch:", rec.Mismatch())
	}
	if rec.Medians.CoMut != 160 || rec.Medians.SoRef != 160 || rec.Medians.Do != 0 {
		t.Error("wrong median lengths:", rec.Medians)
	}

	// SO_MUT must win over any number of discordant fragments
	s = fragments.NewStore()
	addFragment(s, "a", 1000000, "chr1", 'T', '-')
	addFragment(s, "b", 1000000, "chr1", '.', 'T')
	addFragment(s, "c", 1000000, "chr1", '.', 'T')
	addFragment(s, "d", 1000000, "chr1", '.', 'T')
	groups, _ = Group(s, testTable(), &audit)
	rec, _ = Select(groups[0], rand.New(rand.NewSource(1)))
	if rec.Category != MutSingle {
		t.Error("consensus category must be MUT:single_read, got", rec.Category)
	}
}

func TestNoSupportDropped(t *testing.T) {
	s := fragments.NewStore()
	addFragment(s, "a", 1000000, "chr1", '.', '.')
	addFragment(s, "b", 1000000, "chr1", '.', '-')

	var audit Audit
	groups, _ := Group(s, testTable(), &audit)
	_, ok := Select(groups[0], rand.New(rand.NewSource(1)))
	if ok {
		t.Error("site with only reference support must not be emitted")
	}
}

func TestUnresolvedLocusExcluded(t *testing.T) {
	s := fragments.NewStore()
	addFragment(s, "a", 12345, "chr9", 'T', 'T') // chr9 not in table
	addFragment(s, "b", 1000000, "chr1", 'T', 'T')

	var audit Audit
	groups, _ := Group(s, testTable(), &audit)
	if audit.UnresolvedLocus != 1 {
		t.Error("expected 1 unresolved locus, got", audit.UnresolvedLocus)
	}
	if len(groups) != 1 {
		t.Error("unresolved site must not form a group:", len(groups))
	}
}

func TestOuterFragmentsPreserved(t *testing.T) {
	s := fragments.NewStore()
	addFragment(s, "a", 1000000, "chr1", 'T', 'T')
	s.Add(fragments.Fragment{Id: "outer", Chrom: "chr5", Start: 100, End: 260, Strand: '-'})

	var audit Audit
	_, outer := Group(s, testTable(), &audit)
	if outer != 1 {
		t.Error("expected 1 outer fragment, got", outer)
	}
}

func TestDisambiguation(t *testing.T) {
	alt := dna.T
	rng := rand.New(rand.NewSource(1))

	// concordant call is already unambiguous; disambiguation is a no-op
	r := Resolved{Mate1: dna.T, Mate2: dna.T}
	if disambiguate(r, alt, rng) != dna.T {
		t.Error("concordant call must keep its base")
	}
	if disambiguate(r, alt, rng) != dna.T {
		t.Error("disambiguation must be idempotent")
	}

	// conflicting mates where one matches alt: alt wins, never random
	r = Resolved{Mate1: dna.C, Mate2: dna.T}
	for i := 0; i < 20; i++ {
		if disambiguate(r, alt, rng) != dna.T {
			t.Fatal("base matching the alternate allele must win")
		}
	}

	// single covered mate
	r = Resolved{Mate1: dna.Gap, Mate2: dna.G}
	if disambiguate(r, alt, rng) != dna.G {
		t.Error("single covered mate must supply the base")
	}

	// conflict with no alt match falls back to one of the two mates
	r = Resolved{Mate1: dna.G, Mate2: dna.A}
	b := disambiguate(r, alt, rng)
	if b != dna.G && b != dna.A {
		t.Error("fallback must choose one of the observed bases:", b)
	}
}

func TestDominantCategoryTieBreak(t *testing.T) {
	// DO and SO_OTHER tied: both must be reachable, CO_OTHER never
	seen := make(map[Status]bool)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		cat, any := dominantCategory(Tally{Do: 2, SoOther: 2, CoOther: 1}, rng)
		if !any {
			t.Fatal("tally with support must yield a category")
		}
		seen[cat] = true
	}
	if !seen[MutDiscordant] || !seen[OtherSingle] {
		t.Error("tied categories must both be reachable:", seen)
	}
	if seen[OtherConcordant] {
		t.Error("lower-count category must never win a tie")
	}

	if _, any := dominantCategory(Tally{CoRef: 5, SoRef: 2}, rng); any {
		t.Error("reference-only tally must yield no category")
	}
}

func TestGoSelectDeterministic(t *testing.T) {
	s := fragments.NewStore()
	// chr1 site: discordant fragments only, forcing random draws
	addFragment(s, "a", 1000000, "chr1", 'G', 'A')
	addFragment(s, "b", 1000000, "chr1", '.', 'G')
	addFragment(s, "c", 1000000, "chr1", 'G', '-')
	addFragment(s, "d", 1000000, "chr1", 'A', '-')
	// chr2 site: clean mutant support
	addFragment(s, "e", 500, "chr2", 'A', 'A')
	addFragment(s, "f", 500, "chr2", 'A', '-')

	collect := func(threads int) []Record {
		var audit Audit
		groups, _ := Group(s, testTable(), &audit)
		var records []Record
		for rec := range GoSelect(groups, 42, threads, &audit) {
			records = append(records, rec)
		}
		slices.SortFunc(records, func(a, b Record) int {
			switch {
			case a.Locus.Chrom < b.Locus.Chrom:
				return -1
			case a.Locus.Chrom > b.Locus.Chrom:
				return 1
			default:
				return a.Locus.Pos - b.Locus.Pos
			}
		})
		return records
	}

	single := collect(1)
	if len(single) != 2 {
		t.Fatal("expected 2 consensus records, got", len(single))
	}
	if single[1].Category != MutConcordant || single[1].Base != dna.A {
		t.Error("chr2 consensus should be concordant mutant:", single[1])
	}
	for i := 0; i < 5; i++ {
		again := collect(3)
		if len(again) != len(single) {
			t.Fatal("record count changed across runs")
		}
		for j := range single {
			if single[j] != again[j] {
				t.Error("same seed must give identical records across thread counts:", single[j], again[j])
			}
		}
	}
}

func TestGoSelectAudit(t *testing.T) {
	s := fragments.NewStore()
	addFragment(s, "a", 1000000, "chr1", '.', '.') // reference only, no consensus
	addFragment(s, "b", 500, "chr2", 'A', 'A')

	var audit Audit
	groups, _ := Group(s, testTable(), &audit)
	var n int
	for range GoSelect(groups, 1, 2, &audit) {
		n++
	}
	if n != 1 {
		t.Error("expected 1 record, got", n)
	}
	if audit.NoSupport != 1 {
		t.Error("expected 1 no-support site, got", audit.NoSupport)
	}
}
