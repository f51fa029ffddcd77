package consensus

import (
	"log"
	"strings"

	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
	"github.com/vertgenlab/gonomics/dna"
)

// Status classifies how one fragment supports or contradicts the targeted
// substitution at one site. Exactly one status exists per fragment-site pair.
type Status byte

const (
	OuterFragment   Status = iota // fragment overlaps no target site
	RefConcordant                 // both mates observe reference
	RefSingle                     // one mate covers, observes reference
	MutConcordant                 // both mates observe the alternate base
	MutSingle                     // one mate covers, observes the alternate base
	MutDiscordant                 // mates disagree
	OtherConcordant               // both mates agree on a non-ref non-alt base
	OtherSingle                   // one mate covers, non-ref non-alt base
)

func (s Status) String() string {
	switch s {
	case OuterFragment:
		return "outer_fragment"
	case RefConcordant:
		return "REF:concordant"
	case RefSingle:
		return "REF:single_read"
	case MutConcordant:
		return "MUT:concordant"
	case MutSingle:
		return "MUT:single_read"
	case MutDiscordant:
		return "MUT:discordant"
	case OtherConcordant:
		return "other_base:concordant"
	case OtherSingle:
		return "other_base:single_read"
	default:
		log.Panicln("unrecognized status:", byte(s))
		return ""
	}
}

// Resolved is one classified fragment-site pair. Mate1 and Mate2 hold the
// observed bases after placeholder substitution: the pileup '.' encoding is
// replaced with the site's reference base, so both are literal bases except
// dna.Gap which marks a mate that did not cover the site.
type Resolved struct {
	Id     string
	Length int
	Locus  loci.Locus
	Status Status
	Mate1  dna.Base
	Mate2  dna.Base
}

// Resolve classifies a raw mate annotation against its site. Pure function
// over the observed mate bytes and the site's ref/alt identity.
func Resolve(a fragments.Annotation, l loci.Locus) Resolved {
	m1, cov1 := resolveMate(a.Mate1, l.Ref)
	m2, cov2 := resolveMate(a.Mate2, l.Ref)
	ans := Resolved{Locus: l, Mate1: m1, Mate2: m2}

	switch {
	case !cov1 && !cov2:
		ans.Status = OuterFragment

	case cov1 != cov2: // single-read coverage
		b := m1
		if !cov1 {
			b = m2
		}
		switch b {
		case l.Ref:
			ans.Status = RefSingle
		case l.Alt:
			ans.Status = MutSingle
		default:
			ans.Status = OtherSingle
		}

	case m1 != m2:
		ans.Status = MutDiscordant

	default: // both mates cover and agree
		switch m1 {
		case l.Ref:
			ans.Status = RefConcordant
		case l.Alt:
			ans.Status = MutConcordant
		default:
			ans.Status = OtherConcordant
		}
	}
	return ans
}

// resolveMate converts one raw mate byte to a literal base. The second
// return is false when the mate did not cover the site.
func resolveMate(raw byte, ref dna.Base) (dna.Base, bool) {
	switch raw {
	case fragments.NoCoverage:
		return dna.Gap, false
	case fragments.RefMatch:
		return ref, true
	default:
		return dna.StringToBase(strings.ToUpper(string(raw))), true
	}
}
