// Package spectrum tabulates finalized consensus records into the 96
// canonical trinucleotide substitution channels, stratified by read-pair
// overlap type.
package spectrum

import (
	"fmt"
	"log"

	"github.com/pauliusmennea/cfDNAPro-Mut/consensus"
	"github.com/pauliusmennea/cfDNAPro-Mut/trinuc"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// Stratum describes how a site was supported: the read-pair topology of
// its consensus, not which base was seen.
type Stratum byte

const (
	CO Stratum = iota // concordant double-read support
	SO                // single-read support
	DO                // discordant support
)

const numStrata = 3

func (s Stratum) String() string {
	switch s {
	case CO:
		return "CO_MUT"
	case SO:
		return "SO_MUT"
	case DO:
		return "DO"
	default:
		log.Panicln("unrecognized stratum:", byte(s))
		return ""
	}
}

// StratumOf maps a consensus category to its overlap-type stratum.
// Other-base support folds into the stratum matching its topology: a
// site whose consensus came from non-target-base fragments was still
// supported by that read-pair topology. Reference categories carry no
// stratum and return false.
func StratumOf(cat consensus.Status) (Stratum, bool) {
	switch cat {
	case consensus.MutConcordant, consensus.OtherConcordant:
		return CO, true
	case consensus.MutSingle, consensus.OtherSingle:
		return SO, true
	case consensus.MutDiscordant:
		return DO, true
	default:
		return 0, false
	}
}

// Table accumulates per-channel per-stratum counts. Accumulation is
// commutative; a single Table is filled as the final reduction step.
type Table struct {
	counts  [96][numStrata]int
	lengths [numStrata][]float64
}

func New() *Table {
	return &Table{}
}

// Add counts one consensus record in ch's row of stratum s. fragLength is
// the selected fragment's length, pooled for the per-stratum summary.
func (t *Table) Add(ch trinuc.Channel, s Stratum, fragLength int) {
	t.counts[ch.Index()][s]++
	t.lengths[s] = append(t.lengths[s], float64(fragLength))
}

// Count returns the raw count for one channel and stratum.
func (t *Table) Count(ch trinuc.Channel, s Stratum) int {
	return t.counts[ch.Index()][s]
}

// Total returns the raw count of one stratum across all 96 channels.
func (t *Table) Total(s Stratum) int {
	var ans int
	for i := range t.counts {
		ans += t.counts[i][s]
	}
	return ans
}

// GrandTotal returns the raw count across all channels and strata, which
// equals the number of finalized consensus records tabulated.
func (t *Table) GrandTotal() int {
	return t.Total(CO) + t.Total(SO) + t.Total(DO)
}

// Fraction returns the channel's share of its stratum's total, so
// fractions sum to 1 across the 96 channels of a stratum.
func (t *Table) Fraction(ch trinuc.Channel, s Stratum) float64 {
	total := t.Total(s)
	if total == 0 {
		return 0
	}
	return float64(t.Count(ch, s)) / float64(total)
}

// MedianLength returns the median selected-fragment length of a stratum,
// or 0 when the stratum is empty.
func (t *Table) MedianLength(s Stratum) float64 {
	if len(t.lengths[s]) == 0 {
		return 0
	}
	sorted := slices.Clone(t.lengths[s])
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// Write emits the long-form table: one row per (channel, stratum) pair in
// canonical channel order. Values are raw counts, or per-stratum fractions
// when normalize is set. Per-stratum median fragment lengths go in the
// header for audit.
func Write(filename string, t *Table, normalize bool) {
	out := fileio.EasyCreate(filename)
	fmt.Fprintf(out, "#median_length\tCO_MUT=%g\tSO_MUT=%g\tDO=%g\n",
		t.MedianLength(CO), t.MedianLength(SO), t.MedianLength(DO))
	fmt.Fprintln(out, "#channel\toverlap_type\tvalue")
	strata := []Stratum{CO, SO, DO}
	for _, ch := range trinuc.All() {
		for _, s := range strata {
			if normalize {
				fmt.Fprintf(out, "%s\t%s\t%g\n", ch, s, t.Fraction(ch, s))
			} else {
				fmt.Fprintf(out, "%s\t%s\t%d\n", ch, s, t.Count(ch, s))
			}
		}
	}
	err := out.Close()
	exception.PanicOnErr(err)
}
