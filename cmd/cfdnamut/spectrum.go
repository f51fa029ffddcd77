package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/pauliusmennea/cfDNAPro-Mut/consensus"
	"github.com/pauliusmennea/cfDNAPro-Mut/fragments"
	"github.com/pauliusmennea/cfDNAPro-Mut/spectrum"
	"github.com/pauliusmennea/cfDNAPro-Mut/trinuc"
	"github.com/pkg/profile"
	"github.com/vertgenlab/gonomics/exception"
)

func spectrumUsage(spectrumFlags *flag.FlagSet) {
	fmt.Print(
		"spectrum - tabulate consensus calls into an SBS96 spectrum\n\n" +
			"Usage:\n" +
			"  cfdnamut spectrum [options] -f fragments.tsv -l loci.vcf -r reference.fasta -o spectrum.tsv\n\n" +
			"Options:\n")
	spectrumFlags.PrintDefaults()
}

func runSpectrum(args []string) {
	spectrumFlags := flag.NewFlagSet("spectrum", flag.ExitOnError)

	cpuprofile := spectrumFlags.Bool("cpuprofile", false, "write cpu profile")
	memprofile := spectrumFlags.Bool("memprofile", false, "write memory profile")
	fragFile := spectrumFlags.String("f", "", "Input fragment tsv generated with 'cfdnamut annotate'.")
	lociFile := spectrumFlags.String("l", "", "Candidate mutation sites as vcf or 4-column tsv (chrom, pos, ref, alt).")
	ref := spectrumFlags.String("r", "", "Fasta file with the reference genome. Must be indexed.")
	output := spectrumFlags.String("o", "stdout", "Output spectrum tsv.")
	normalize := spectrumFlags.Bool("norm", false, "Emit per-stratum fractions instead of raw counts.")
	seed := spectrumFlags.Int64("seed", 1, "Seed for random tie-breaking. Runs with the same seed produce identical output.")
	threads := spectrumFlags.Int("threads", 1, "Number of processor threads to use.")
	spectrumFlags.Parse(args)

	if *memprofile && *cpuprofile {
		spectrumUsage(spectrumFlags)
		log.Fatal("ERROR: -memprofile and -cpuprofile are mutually exclusive.")
	}
	if *memprofile {
		defer profile.Start(profile.MemProfile).Stop()
	}
	if *cpuprofile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	if *fragFile == "" || *lociFile == "" || *ref == "" {
		spectrumUsage(spectrumFlags)
		log.Fatal("ERROR: must specify fragments (-f), loci (-l), and fasta (-r).")
	}

	store := fragments.Read(*fragFile)
	table := readLoci(*lociFile)

	var audit consensus.Audit
	groups, outer := consensus.Group(store, table, &audit)

	norm := trinuc.NewNormalizer(*ref)
	tab := spectrum.New()
	for rec := range consensus.GoSelect(groups, *seed, *threads, &audit) {
		stratum, counted := spectrum.StratumOf(rec.Category)
		if !counted {
			continue
		}
		ch, err := norm.Channel(rec.Locus.Chrom, rec.Locus.Pos, rec.Locus.Ref, rec.Base)
		switch {
		case errors.Is(err, trinuc.ErrRefMismatch):
			audit.RefMismatch++
			continue
		case err != nil:
			audit.AmbiguousBase++
			continue
		}
		tab.Add(ch, stratum, rec.Length)
	}
	err := norm.Close()
	exception.PanicOnErr(err)

	spectrum.Write(*output, tab, *normalize)

	log.Printf("Tabulated %d consensus records from %d fragments (%d outside all targets)\n", tab.GrandTotal(), store.Len(), outer)
	logAudit(audit)
}
