package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pauliusmennea/cfDNAPro-Mut/consensus"
	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"golang.org/x/exp/slices"
)

func consensusUsage(consensusFlags *flag.FlagSet) {
	fmt.Print(
		"consensus - resolve per-site consensus calls from fragment support\n\n" +
			"Usage:\n" +
			"  cfdnamut consensus [options] -f fragments.tsv -l loci.vcf -o consensus.tsv\n\n" +
			"Options:\n")
	consensusFlags.PrintDefaults()
}

func runConsensus(args []string) {
	consensusFlags := flag.NewFlagSet("consensus", flag.ExitOnError)

	fragFile := consensusFlags.String("f", "", "Input fragment tsv generated with 'cfdnamut annotate'.")
	lociFile := consensusFlags.String("l", "", "Candidate mutation sites as vcf or 4-column tsv (chrom, pos, ref, alt).")
	output := consensusFlags.String("o", "stdout", "Output consensus tsv.")
	seed := consensusFlags.Int64("seed", 1, "Seed for random tie-breaking. Runs with the same seed produce identical output.")
	threads := consensusFlags.Int("threads", 1, "Number of processor threads to use.")
	consensusFlags.Parse(args)

	if *fragFile == "" || *lociFile == "" {
		consensusUsage(consensusFlags)
		log.Fatal("ERROR: must specify fragments (-f) and loci (-l).")
	}

	store := fragments.Read(*fragFile)
	table := readLoci(*lociFile)

	var audit consensus.Audit
	groups, outer := consensus.Group(store, table, &audit)

	var records []consensus.Record
	for rec := range consensus.GoSelect(groups, *seed, *threads, &audit) {
		records = append(records, rec)
	}
	sortRecords(records)
	consensus.WriteTable(*output, records)

	log.Printf("Resolved %d sites from %d fragments (%d outside all targets)\n", len(records), store.Len(), outer)
	logAudit(audit)
}

// sortRecords restores genome order so output is stable across thread counts.
func sortRecords(records []consensus.Record) {
	slices.SortFunc(records, func(a, b consensus.Record) int {
		switch {
		case a.Locus.Chrom < b.Locus.Chrom:
			return -1
		case a.Locus.Chrom > b.Locus.Chrom:
			return 1
		default:
			return a.Locus.Pos - b.Locus.Pos
		}
	})
}

func logAudit(a consensus.Audit) {
	log.Printf("Skipped records: %d unresolved loci, %d duplicate fragments, %d ambiguous context windows, %d reference mismatches, %d sites without support\n",
		a.UnresolvedLocus, a.DuplicateFragment, a.AmbiguousBase, a.RefMismatch, a.NoSupport)
}
