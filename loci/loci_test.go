package loci

import (
	"testing"

	"github.com/vertgenlab/gonomics/dna"
)

func TestTableLookup(t *testing.T) {
	tbl := NewTable()
	tbl.Add(Locus{Chrom: "chr1", Pos: 1000000, Ref: dna.C, Alt: dna.T})
	tbl.Add(Locus{Chrom: "chr2", Pos: 500, Ref: dna.G, Alt: dna.A})
	if !tbl.Add(Locus{Chrom: "chr3", Pos: 1, Ref: dna.A, Alt: dna.T}) {
		t.Error("new site should be added")
	}
	if tbl.Add(Locus{Chrom: "chr1", Pos: 1000000, Ref: dna.C, Alt: dna.G}) {
		t.Error("duplicate site should be rejected")
	}
	if tbl.Len() != 3 {
		t.Error("expected 3 loci, got", tbl.Len())
	}

	l, found := tbl.Lookup(Key{Chrom: "chr1", Pos: 1000000})
	if !found || l.Ref != dna.C || l.Alt != dna.T {
		t.Error("lookup returned wrong locus:", l)
	}
	if l.TargetKey() != "chr1:1000000:C:T" {
		t.Error("wrong target key:", l.TargetKey())
	}
	if l.Key().String() != "chr1:1000000" {
		t.Error("wrong locus key:", l.Key())
	}

	_, found = tbl.Lookup(Key{Chrom: "chr1", Pos: 999999})
	if found {
		t.Error("lookup of absent site should fail")
	}
}

func TestTableRoundTrip(t *testing.T) {
	file := t.TempDir() + "/loci.tsv"
	tbl := NewTable()
	tbl.Add(Locus{Chrom: "chr1", Pos: 1000000, Ref: dna.C, Alt: dna.T})
	tbl.Add(Locus{Chrom: "chr10", Pos: 42, Ref: dna.T, Alt: dna.G})
	Write(file, tbl)

	back := Read(file)
	if back.Len() != tbl.Len() {
		t.Fatal("round trip lost loci:", back.Len())
	}
	for i, l := range back.Loci() {
		if l != tbl.Loci()[i] {
			t.Error("round trip changed locus:", l, tbl.Loci()[i])
		}
	}
}
