// Command nse-program prints the assembled kernel program for a given
// configuration, for feeding into an offline compiler or diffing across
// parameter changes.
package main

import (
	"fmt"
	"log"
	"os"

	flag "github.com/ogier/pflag"

	"github.com/filecoin-project/go-nse-gpu/pkg/nse"
	"github.com/filecoin-project/go-nse-gpu/pkg/nse/sources"
)

func main() {
	k := flag.IntP("batch-factor", "k", 1, "batch hashing factor")
	n := flag.IntP("num-nodes", "n", 1024, "nodes per window")
	degExpander := flag.Int("degree-expander", 384, "expander graph fan-in")
	degButterfly := flag.Int("degree-butterfly", 16, "butterfly graph fan-in")
	expanderLayers := flag.IntP("expander-layers", "e", 8, "number of expander layers")
	butterflyLayers := flag.IntP("butterfly-layers", "b", 7, "number of butterfly layers")
	flag.Parse()

	cfg := nse.Config{
		K:                  uint32(*k),
		NumNodesWindow:     *n,
		DegreeExpander:     *degExpander,
		DegreeButterfly:    *degButterfly,
		NumExpanderLayers:  *expanderLayers,
		NumButterflyLayers: *butterflyLayers,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	fmt.Fprint(os.Stdout, sources.GenerateProgram(cfg))
}
