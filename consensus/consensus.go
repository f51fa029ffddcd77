// Package consensus resolves fragment support at candidate mutation sites
// into a single consensus call per site. Fragments are joined to sites,
// each fragment-site pair is classified, and a fixed category priority with
// seeded random tie-breaking picks one representative call per site.
package consensus

import (
	"fmt"
	"math/rand"

	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// Audit counts per-record exclusions. Nothing counted here is fatal.
type Audit struct {
	UnresolvedLocus   int // fragment annotation referenced a site absent from the table
	DuplicateFragment int // fragments dropped by identifier de-duplication
	AmbiguousBase     int // non-ACGT base in a fetched context window
	RefMismatch       int // fetched window center disagreed with the site's reference base
	NoSupport         int // sites with zero qualifying fragments
}

func (a *Audit) Absorb(other Audit) {
	a.UnresolvedLocus += other.UnresolvedLocus
	a.DuplicateFragment += other.DuplicateFragment
	a.AmbiguousBase += other.AmbiguousBase
	a.RefMismatch += other.RefMismatch
	a.NoSupport += other.NoSupport
}

// Tally counts the fragments supporting one site per status category.
type Tally struct {
	CoMut   int
	SoMut   int
	CoRef   int
	SoRef   int
	Do      int
	SoOther int
	CoOther int
}

func (t *Tally) add(s Status) {
	switch s {
	case MutConcordant:
		t.CoMut++
	case MutSingle:
		t.SoMut++
	case RefConcordant:
		t.CoRef++
	case RefSingle:
		t.SoRef++
	case MutDiscordant:
		t.Do++
	case OtherSingle:
		t.SoOther++
	case OtherConcordant:
		t.CoOther++
	}
}

// Total returns the number of tallied fragments across all categories.
func (t Tally) Total() int {
	return t.CoMut + t.SoMut + t.CoRef + t.SoRef + t.Do + t.SoOther + t.CoOther
}

// MedianLengths holds the median fragment length per status category.
// Categories with no support hold zero.
type MedianLengths struct {
	CoMut   float64
	SoMut   float64
	CoRef   float64
	SoRef   float64
	Do      float64
	SoOther float64
	CoOther float64
}

// Record is the finalized consensus for one site.
type Record struct {
	Locus    loci.Locus
	Tally    Tally
	Medians  MedianLengths
	Category Status   // consensus category after priority selection
	Base     dna.Base // disambiguated consensus base
	Id       string   // identifier of the selected fragment
	Length   int      // length of the selected fragment
}

// Mismatch renders the consensus as chrom:pos:REF>BASE with exactly one
// unambiguous base per slot.
func (r Record) Mismatch() string {
	return fmt.Sprintf("%s:%d:%c>%c", r.Locus.Chrom, r.Locus.Pos, dna.BaseToRune(r.Locus.Ref), dna.BaseToRune(r.Base))
}

// LocusSupport is all classified fragment support for one site.
type LocusSupport struct {
	Locus   loci.Locus
	Support []Resolved
}

// Group joins the fragment store to the locus table and groups classified
// fragment-site pairs by site. Fragments referencing a site missing from
// the table are excluded and counted in the audit. The second return is the
// number of fragments overlapping no target site, preserved for
// denominator bookkeeping. Output order is stable: sites sorted by
// chromosome then position, support sorted by fragment identifier.
func Group(store *fragments.Store, table *loci.Table, audit *Audit) ([]LocusSupport, int) {
	audit.DuplicateFragment += store.Duplicates()
	groups := make(map[loci.Key]*LocusSupport)
	var outer int
	for _, f := range store.Fragments() {
		if len(f.Annotations) == 0 {
			outer++
			continue
		}
		for _, a := range f.Annotations {
			l, found := table.Lookup(a.Key())
			if !found {
				audit.UnresolvedLocus++
				continue
			}
			r := Resolve(a, l)
			if r.Status == OuterFragment {
				continue
			}
			r.Id = f.Id
			r.Length = f.Length()
			g := groups[l.Key()]
			if g == nil {
				g = &LocusSupport{Locus: l}
				groups[l.Key()] = g
			}
			g.Support = append(g.Support, r)
		}
	}

	ans := make([]LocusSupport, 0, len(groups))
	for _, g := range groups {
		slices.SortFunc(g.Support, func(a, b Resolved) int {
			switch {
			case a.Id < b.Id:
				return -1
			case a.Id > b.Id:
				return 1
			default:
				return 0
			}
		})
		ans = append(ans, *g)
	}
	slices.SortFunc(ans, func(a, b LocusSupport) int {
		switch {
		case a.Locus.Chrom < b.Locus.Chrom:
			return -1
		case a.Locus.Chrom > b.Locus.Chrom:
			return 1
		default:
			return a.Locus.Pos - b.Locus.Pos
		}
	})
	return ans, outer
}

// Select tallies the support for one site and picks its consensus. The
// category priority is categorical, not count-based: concordant mutant
// support always wins, then single-read mutant support; only when mutant
// signal is entirely absent does the dominant count among the discordant
// and other-base categories decide, with uniform random choice among tied
// categories. One fragment within the chosen category is then drawn
// uniformly at random and its resolved bases are disambiguated to a single
// consensus base. Returns false when no fragment qualifies, i.e. the site
// has only reference support.
func Select(ls LocusSupport, rng *rand.Rand) (Record, bool) {
	rec := Record{Locus: ls.Locus}
	for i := range ls.Support {
		rec.Tally.add(ls.Support[i].Status)
	}
	rec.Medians = medianLengths(ls.Support)

	switch {
	case rec.Tally.CoMut > 0:
		rec.Category = MutConcordant
	case rec.Tally.SoMut > 0:
		rec.Category = MutSingle
	default:
		cat, any := dominantCategory(rec.Tally, rng)
		if !any {
			return rec, false
		}
		rec.Category = cat
	}

	chosen := drawFragment(ls.Support, rec.Category, rng)
	rec.Id = chosen.Id
	rec.Length = chosen.Length
	rec.Base = disambiguate(chosen, ls.Locus.Alt, rng)
	return rec, true
}

// dominantCategory picks among MutDiscordant, OtherSingle and
// OtherConcordant by raw count, breaking ties uniformly at random.
func dominantCategory(t Tally, rng *rand.Rand) (Status, bool) {
	counts := []struct {
		cat   Status
		count int
	}{
		{MutDiscordant, t.Do},
		{OtherSingle, t.SoOther},
		{OtherConcordant, t.CoOther},
	}
	var best int
	for _, c := range counts {
		if c.count > best {
			best = c.count
		}
	}
	if best == 0 {
		return OuterFragment, false
	}
	var tied []Status
	for _, c := range counts {
		if c.count == best {
			tied = append(tied, c.cat)
		}
	}
	return tied[rng.Intn(len(tied))], true
}

func drawFragment(support []Resolved, cat Status, rng *rand.Rand) Resolved {
	var eligible []Resolved
	for i := range support {
		if support[i].Status == cat {
			eligible = append(eligible, support[i])
		}
	}
	return eligible[rng.Intn(len(eligible))]
}

// disambiguate reduces the two resolved mate bases to one. Idempotent for
// already-unambiguous calls: if the covered bases agree that base is kept.
// When the mates conflict the base matching the known alternate wins;
// failing that the choice is uniform random between the two.
func disambiguate(r Resolved, alt dna.Base, rng *rand.Rand) dna.Base {
	switch {
	case r.Mate1 == dna.Gap:
		return r.Mate2
	case r.Mate2 == dna.Gap || r.Mate1 == r.Mate2:
		return r.Mate1
	case r.Mate1 == alt:
		return r.Mate1
	case r.Mate2 == alt:
		return r.Mate2
	default:
		if rng.Intn(2) == 0 {
			return r.Mate1
		}
		return r.Mate2
	}
}

func medianLengths(support []Resolved) MedianLengths {
	byCat := make(map[Status][]float64)
	for i := range support {
		byCat[support[i].Status] = append(byCat[support[i].Status], float64(support[i].Length))
	}
	return MedianLengths{
		CoMut:   median(byCat[MutConcordant]),
		SoMut:   median(byCat[MutSingle]),
		CoRef:   median(byCat[RefConcordant]),
		SoRef:   median(byCat[RefSingle]),
		Do:      median(byCat[MutDiscordant]),
		SoOther: median(byCat[OtherSingle]),
		CoOther: median(byCat[OtherConcordant]),
	}
}

func median(lengths []float64) float64 {
	if len(lengths) == 0 {
		return 0
	}
	slices.Sort(lengths)
	return stat.Quantile(0.5, stat.Empirical, lengths, nil)
}

// WriteTable stores one row per consensus record: target key, support
// tally, median-length tally, consensus category and mismatch string.
func WriteTable(filename string, records []Record) {
	out := fileio.EasyCreate(filename)
	fmt.Fprintln(out, "#target_key\tco_mut\tso_mut\tco_ref\tso_ref\tdo\tso_other\tco_other\t"+
		"len_co_mut\tlen_so_mut\tlen_co_ref\tlen_so_ref\tlen_do\tlen_so_other\tlen_co_other\tcategory\tconsensus_mismatch")
	for _, r := range records {
		t, m := r.Tally, r.Medians
		fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%g\t%g\t%g\t%g\t%g\t%g\t%g\t%s\t%s\n",
			r.Locus.TargetKey(), t.CoMut, t.SoMut, t.CoRef, t.SoRef, t.Do, t.SoOther, t.CoOther,
			m.CoMut, m.SoMut, m.CoRef, m.SoRef, m.Do, m.SoOther, m.CoOther,
			r.Category, r.Mismatch())
	}
	err := out.Close()
	exception.PanicOnErr(err)
}
