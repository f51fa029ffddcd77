package consensus

import (
	"testing"

	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
	"github.com/vertgenlab/gonomics/dna"
)

var testLocus = loci.Locus{Chrom: "chr1", Pos: 1000000, Ref: dna.C, Alt: dna.T}

func TestResolve(t *testing.T) {
	tests := []struct {
		mate1, mate2 byte
		expected     Status
	}{
		{'.', '.', RefConcordant},
		{'.', '-', RefSingle},
		{'-', '.', RefSingle},
		{'C', 'C', RefConcordant}, // explicit reference base
		{'C', '-', RefSingle},
		{'T', 'T', MutConcordant},
		{'T', '-', MutSingle},
		{'-', 'T', MutSingle},
		{'.', 'T', MutDiscordant},
		{'T', '.', MutDiscordant},
		{'C', 'T', MutDiscordant},
		{'G', 'A', MutDiscordant},
		{'G', 'G', OtherConcordant},
		{'G', '-', OtherSingle},
		{'-', '-', OuterFragment},
	}
	for _, test := range tests {
		r := Resolve(fragments.Annotation{Chrom: "chr1", Pos: 1000000, Mate1: test.mate1, Mate2: test.mate2}, testLocus)
		if r.Status != test.expected {
			t.Errorf("Resolve(%c%c) = %s, expected %s", test.mate1, test.mate2, r.Status, test.expected)
		}
	}
}

func TestResolveSubstitutesPlaceholder(t *testing.T) {
	// the '.' placeholder encodes "matches reference", not a literal base
	r := Resolve(fragments.Annotation{Chrom: "chr1", Pos: 1000000, Mate1: '.', Mate2: 'T'}, testLocus)
	if r.Mate1 != dna.C || r.Mate2 != dna.T {
		t.Error("placeholder should resolve to the reference base:", r.Mate1, r.Mate2)
	}
	if r.Status != MutDiscordant {
		t.Error("expected MUT:discordant, got", r.Status)
	}

	r = Resolve(fragments.Annotation{Chrom: "chr1", Pos: 1000000, Mate1: 'T', Mate2: '-'}, testLocus)
	if r.Mate1 != dna.T || r.Mate2 != dna.Gap {
		t.Error("uncovered mate should resolve to gap:", r.Mate1, r.Mate2)
	}
}

func TestStatusString(t *testing.T) {
	if MutDiscordant.String() != "MUT:discordant" {
		t.Error("wrong status name:", MutDiscordant)
	}
	if OtherSingle.String() != "other_base:single_read" {
		t.Error("wrong status name:", OtherSingle)
	}
	if OuterFragment.String() != "outer_fragment" {
		t.Error("wrong status name:", OuterFragment)
	}
}
