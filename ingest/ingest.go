// Package ingest builds a fragment store from a coordinate-sorted bam and
// a locus table. Mates are paired by read name and each mate's observed
// base at every overlapping target site is recorded with pileup-style
// placeholders: '.' for a reference match, '-' for no coverage.
package ingest

import (
	"log"

	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
	"github.com/vertgenlab/gonomics/bed"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/interval"
	"github.com/vertgenlab/gonomics/sam"
)

// Options controls read filtering during ingestion.
type Options struct {
	MinMapQ     uint8
	ExcludeBeds []string // regions to exclude, e.g. poor mappability masks
}

// Annotate reads input and returns the fragment store for all read pairs
// passing filters. Fragments overlapping an excluded region are dropped
// entirely. Unpaired reads (mate unmapped or filtered) become single-mate
// fragments.
func Annotate(input string, table *loci.Table, opt Options) *fragments.Store {
	reads, header := sam.GoReadToChan(input)
	if header.Metadata.SortOrder[0] != sam.Coordinate {
		log.Fatal("ERROR: Input file must be coordinate sorted.")
	}
	excluded := buildExcludeTree(opt.ExcludeBeds)

	store := fragments.NewStore()
	pending := make(map[string]sam.Sam)
	var prevChrom string
	var readCount int
	for r := range reads {
		if r.RName == "" || r.MapQ < opt.MinMapQ {
			continue
		}
		if r.RName != prevChrom {
			flush(pending, -1, store, table, excluded)
			prevChrom = r.RName
		}
		mate, found := pending[r.QName]
		if found {
			delete(pending, r.QName)
			emit(store, table, excluded, mate, &r)
		} else {
			pending[r.QName] = r
		}

		readCount++
		if readCount%10000 == 0 && r.GetChromStart() > 10000 { // flush reads whose mate is >10kb behind and will never arrive
			flush(pending, r.GetChromStart()-10000, store, table, excluded)
		}
	}
	flush(pending, -1, store, table, excluded)
	return store
}

// flush emits pending reads ending before cutoff as single-mate fragments.
// A cutoff of -1 flushes everything.
func flush(pending map[string]sam.Sam, cutoff int, store *fragments.Store, table *loci.Table, excluded map[string]*interval.IntervalNode) {
	for name, r := range pending {
		if cutoff != -1 && r.GetChromEnd() >= cutoff {
			continue
		}
		delete(pending, name)
		emit(store, table, excluded, r, nil)
	}
}

func emit(store *fragments.Store, table *loci.Table, excluded map[string]*interval.IntervalNode, a sam.Sam, b *sam.Sam) {
	if b != nil && b.RName != a.RName { // inter-chromosomal pair, keep the first mate only
		b = nil
	}
	// order mates so read 1 of the pair is mate 1
	r1, r2 := &a, b
	if r2 != nil && sam.IsForwardRead(*r2) && !sam.IsForwardRead(*r1) {
		r1, r2 = r2, r1
	}

	var f fragments.Fragment
	f.Id = r1.QName
	f.Chrom = r1.RName
	f.Start = r1.GetChromStart()
	f.End = r1.GetChromEnd()
	if r2 != nil {
		if r2.GetChromStart() < f.Start {
			f.Start = r2.GetChromStart()
		}
		if r2.GetChromEnd() > f.End {
			f.End = r2.GetChromEnd()
		}
	}
	f.Strand = '-'
	if sam.IsPosStrand(*r1) {
		f.Strand = '+'
	}

	if len(excluded) > 0 {
		span := bed.Bed{Chrom: f.Chrom, ChromStart: f.Start, ChromEnd: f.End}
		if len(interval.Query(excluded, span, "any")) > 0 {
			return
		}
	}

	for pos := f.Start + 1; pos <= f.End; pos++ {
		l, found := table.Lookup(loci.Key{Chrom: f.Chrom, Pos: pos})
		if !found {
			continue
		}
		m1 := encodeMate(r1, pos, l.Ref)
		m2 := encodeMate(r2, pos, l.Ref)
		if m1 == fragments.NoCoverage && m2 == fragments.NoCoverage {
			continue
		}
		f.Annotations = append(f.Annotations, fragments.Annotation{Chrom: f.Chrom, Pos: pos, Mate1: m1, Mate2: m2})
	}
	store.Add(f)
}

// encodeMate renders the base r observed at pos (1-based) as a raw
// annotation byte.
func encodeMate(r *sam.Sam, pos int, ref dna.Base) byte {
	if r == nil {
		return fragments.NoCoverage
	}
	b, covered := baseAt(r, pos)
	switch {
	case !covered:
		return fragments.NoCoverage
	case b == ref:
		return fragments.RefMatch
	default:
		return byte(dna.BaseToRune(b))
	}
}

// baseAt walks the cigar to find the read base aligned to reference
// position pos (1-based). Returns false when pos falls outside the aligned
// span or inside a deletion or skip.
func baseAt(r *sam.Sam, pos int) (dna.Base, bool) {
	refPos := int(r.Pos) // 1-based leftmost aligned position
	var qPos int
	for _, c := range r.Cigar {
		switch c.Op {
		case 'M', '=', 'X':
			if pos >= refPos && pos < refPos+c.RunLength {
				return r.Seq[qPos+pos-refPos], true
			}
			refPos += c.RunLength
			qPos += c.RunLength
		case 'I', 'S':
			qPos += c.RunLength
		case 'D', 'N':
			if pos >= refPos && pos < refPos+c.RunLength {
				return dna.Gap, false
			}
			refPos += c.RunLength
		}
	}
	return dna.N, false
}

func buildExcludeTree(excludeBeds []string) map[string]*interval.IntervalNode {
	if len(excludeBeds) == 0 {
		return nil
	}
	var excludeIntervals []interval.Interval
	for _, e := range excludeBeds {
		bChan := bed.GoReadToChan(e)
		for b := range bChan {
			excludeIntervals = append(excludeIntervals, b)
		}
	}
	return interval.BuildTree(excludeIntervals)
}
