// Package trinuc derives pyrimidine-normalized trinucleotide substitution
// channels. The 96 channels cover the six pyrimidine-reference substitution
// types (C>A, C>G, C>T, T>A, T>C, T>G) in all 16 flanking-base contexts.
package trinuc

import (
	"errors"
	"fmt"
	"log"

	"github.com/pauliusmennea/cfDNAPro-Mut/fai"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fasta"
)

// Per-record exclusion reasons reported to the audit by callers.
var (
	ErrAmbiguousBase = errors.New("non-ACGT base in context window")
	ErrRefMismatch   = errors.New("reference window disagrees with site reference base")
	ErrOutOfBounds   = errors.New("context window extends beyond the reference sequence")
)

// Channel is one of the 96 canonical trinucleotide substitution channels.
// Ref is always a pyrimidine.
type Channel struct {
	Five  dna.Base
	Ref   dna.Base
	Alt   dna.Base
	Three dna.Base
}

// String renders the canonical channel label, e.g. A[C>T]G.
func (c Channel) String() string {
	return fmt.Sprintf("%c[%c>%c]%c", dna.BaseToRune(c.Five), dna.BaseToRune(c.Ref), dna.BaseToRune(c.Alt), dna.BaseToRune(c.Three))
}

// Index returns the channel's position in the canonical ordering: six
// substitution-type groups of 16 flank combinations, flanks in A,C,G,T
// order with the 5' base cycling slowest.
func (c Channel) Index() int {
	return mutationGroup(c.Ref, c.Alt)*16 + int(c.Five)*4 + int(c.Three)
}

func mutationGroup(ref, alt dna.Base) int {
	switch {
	case ref == dna.C && alt == dna.A:
		return 0
	case ref == dna.C && alt == dna.G:
		return 1
	case ref == dna.C && alt == dna.T:
		return 2
	case ref == dna.T && alt == dna.A:
		return 3
	case ref == dna.T && alt == dna.C:
		return 4
	case ref == dna.T && alt == dna.G:
		return 5
	default:
		log.Panicf("not a pyrimidine-reference substitution: %c>%c\n", dna.BaseToRune(ref), dna.BaseToRune(alt))
		return -1
	}
}

// All returns the 96 channels in canonical order.
func All() []Channel {
	pairs := []struct{ ref, alt dna.Base }{
		{dna.C, dna.A}, {dna.C, dna.G}, {dna.C, dna.T},
		{dna.T, dna.A}, {dna.T, dna.C}, {dna.T, dna.G},
	}
	flanks := []dna.Base{dna.A, dna.C, dna.G, dna.T}
	ans := make([]Channel, 0, 96)
	for _, p := range pairs {
		for _, five := range flanks {
			for _, three := range flanks {
				ans = append(ans, Channel{Five: five, Ref: p.ref, Alt: p.alt, Three: three})
			}
		}
	}
	return ans
}

// Normalizer fetches reference trinucleotide windows and canonicalizes
// them to pyrimidine-reference orientation. Not safe for concurrent use;
// callers owning parallel shards construct one Normalizer each.
type Normalizer struct {
	seeker *fasta.Seeker
	idx    fai.Index
}

// NewNormalizer opens refFile for random access. refFile must be indexed
// (refFile.fai).
func NewNormalizer(refFile string) *Normalizer {
	return &Normalizer{
		seeker: fasta.NewSeeker(refFile, ""),
		idx:    fai.ReadIndex(refFile + ".fai"),
	}
}

func (n *Normalizer) Close() error {
	return n.seeker.Close()
}

// Channel fetches the 3-base reference window centered on pos (1-based)
// and normalizes it together with the ref/alt bases. Returns
// ErrOutOfBounds, ErrAmbiguousBase or ErrRefMismatch when the record must
// be excluded.
func (n *Normalizer) Channel(chrom string, pos int, ref, alt dna.Base) (Channel, error) {
	if !n.idx.InBounds(chrom, pos-2, pos+1) {
		return Channel{}, ErrOutOfBounds
	}
	window, err := fasta.SeekByName(n.seeker, chrom, pos-2, pos+1)
	if err != nil || len(window) != 3 {
		return Channel{}, ErrOutOfBounds
	}
	dna.AllToUpper(window)
	return Normalize(window, ref, alt)
}

// Normalize canonicalizes a raw 3-base reference window and substitution
// to a pyrimidine-reference channel, reverse-complementing when the
// reference base is a purine.
func Normalize(window []dna.Base, ref, alt dna.Base) (Channel, error) {
	if len(window) != 3 {
		return Channel{}, ErrOutOfBounds
	}
	for i := range window {
		if !isACGT(window[i]) {
			return Channel{}, ErrAmbiguousBase
		}
	}
	if !isACGT(ref) || !isACGT(alt) || ref == alt {
		return Channel{}, ErrAmbiguousBase
	}
	if window[1] != ref {
		return Channel{}, ErrRefMismatch
	}
	if ref == dna.A || ref == dna.G {
		rc := []dna.Base{window[0], window[1], window[2]}
		dna.ReverseComplement(rc)
		window = rc
		ref = complement(ref)
		alt = complement(alt)
	}
	return Channel{Five: window[0], Ref: ref, Alt: alt, Three: window[2]}, nil
}

func isACGT(b dna.Base) bool {
	return b == dna.A || b == dna.C || b == dna.G || b == dna.T
}

func complement(b dna.Base) dna.Base {
	switch b {
	case dna.A:
		return dna.T
	case dna.C:
		return dna.G
	case dna.G:
		return dna.C
	case dna.T:
		return dna.A
	default:
		log.Panicln("unrecognized base:", b)
		return dna.N
	}
}
