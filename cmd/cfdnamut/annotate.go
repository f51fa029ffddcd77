package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/ingest"
)

func annotateUsage(annotateFlags *flag.FlagSet) {
	fmt.Print(
		"annotate - annotate fragments with mate observations at target sites\n\n" +
			"Usage:\n" +
			"  cfdnamut annotate [options] -i input.bam -l loci.vcf -o fragments.tsv\n\n" +
			"Options:\n")
	annotateFlags.PrintDefaults()
}

func runAnnotate(args []string) {
	annotateFlags := flag.NewFlagSet("annotate", flag.ExitOnError)

	var excludeBeds inputFiles
	input := annotateFlags.String("i", "", "Input bam file. Must be coordinate sorted.")
	lociFile := annotateFlags.String("l", "", "Candidate mutation sites as vcf or 4-column tsv (chrom, pos, ref, alt).")
	output := annotateFlags.String("o", "stdout", "Output fragment tsv.")
	annotateFlags.Var(&excludeBeds, "e", "Bed file(s) with regions to exclude from analysis. May be declared more than once with additional -e flags. Strongly recommended to mask regions with poor mappability.")
	minMapQ := annotateFlags.Int("minMapQ", 20, "Minimum mapping quality.")
	annotateFlags.Parse(args)

	if *input == "" || *lociFile == "" {
		annotateUsage(annotateFlags)
		log.Fatal("ERROR: must specify bam (-i) and loci (-l).")
	}

	table := readLoci(*lociFile)
	store := ingest.Annotate(*input, table, ingest.Options{
		MinMapQ:     uint8(*minMapQ),
		ExcludeBeds: excludeBeds,
	})
	fragments.Write(*output, store)
	log.Printf("Annotated %d fragments at %d target sites (%d duplicates removed)\n", store.Len(), table.Len(), store.Duplicates())
}
