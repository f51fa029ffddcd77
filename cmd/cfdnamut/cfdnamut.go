// cfdnamut classifies cfDNA fragment support at candidate mutation sites
// and aggregates consensus calls into a trinucleotide substitution
// spectrum.
package main

import (
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pauliusmennea/cfDNAPro-Mut/loci"
)

const version string = "0.1.0"

type subcommand struct {
	name     string
	function func(args []string)
	blurb    string
}

// SubCommands contains all valid subcommands.
// New subcommands can be added to cfdnamut by adding a new entry to this array.
var SubCommands = []*subcommand{
	{"annotate", runAnnotate, "annotate fragments with mate observations at target sites"},
	{"consensus", runConsensus, "resolve per-site consensus calls from fragment support"},
	{"spectrum", runSpectrum, "tabulate consensus calls into an SBS96 spectrum"},
}

func usage() {
	s := new(strings.Builder)
	s.WriteString(
		"Program: cfdnamut (mutation spectrum analysis of cfDNA fragments)\n" +
			"Version: " + version + "\n" +
			"\nUsage:\tcfdnamut <command> [options]\n\n" +
			"Commands:\n")

	// add subcommand text via tabwriter so the columns align
	w := tabwriter.NewWriter(s, 0, 8, 5, '\t', tabwriter.AlignRight)
	for i := range SubCommands {
		fmt.Fprintf(w, "\t%s\t%s\n", SubCommands[i].name, SubCommands[i].blurb)
	}
	w.Flush()
	fmt.Print(s.String())
}

// commandMap builds a map of possible subcommands keyed on the name of the subcommand
func commandMap() map[string]func(args []string) {
	m := make(map[string]func(args []string))
	for i := range SubCommands {
		m[SubCommands[i].name] = SubCommands[i].function
	}
	return m
}

func main() {
	flag.Usage = usage
	flag.Parse()

	// check if first argument is a valid subcommand
	command := commandMap()[flag.Arg(0)]

	// if no command is found, print the usage and return
	if command == nil {
		flag.Usage()
		return
	}

	// if command successfully found, pass in remaining arguments and execute
	command(flag.Args()[1:])
}

// readLoci loads the locus table from either vcf or tsv by file extension.
func readLoci(filename string) *loci.Table {
	if strings.HasSuffix(filename, ".vcf") || strings.HasSuffix(filename, ".vcf.gz") {
		return loci.FromVcf(filename)
	}
	return loci.Read(filename)
}

// inputFiles is a custom type that gets filled by flag.Parse()
type inputFiles []string

// String to satisfy flag.Value interface
func (i *inputFiles) String() string {
	return strings.Join(*i, " ")
}

// Set to satisfy flag.Value interface
func (i *inputFiles) Set(value string) error {
	*i = append(*i, value)
	return nil
}
