// Package sources assembles the textual kernel program handed to an
// accelerator's compiler: a parameter preamble, generated field arithmetic
// for the BLS12-381 scalar field Fr, and the fixed kernel modules.
package sources

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/filecoin-project/go-nse-gpu/pkg/nse"
	"github.com/filecoin-project/go-nse-gpu/pkg/nse/sources/fieldgen"
)

//go:embed cl/sha256.cl
var sha256Src string

//go:embed cl/common.cl
var commonSrc string

//go:embed cl/mask.cl
var maskSrc string

//go:embed cl/expander.cl
var expanderSrc string

//go:embed cl/butterfly.cl
var butterflySrc string

//go:embed cl/combine.cl
var combineSrc string

// bitSize is the width of the packed parent-table indices in bits.
const bitSize = 24

func defines(cfg nse.Config) string {
	return fmt.Sprintf(`#define N (%d)
#define K (%d)
#define DEGREE_EXPANDER (%d)
#define DEGREE_BUTTERFLY (%d)
#define NUM_EXPANDER_LAYERS (%d)
#define NUM_BUTTERFLY_LAYER (%d)
#define BIT_SIZE (%d)
`,
		cfg.NumNodesWindow,
		cfg.K,
		cfg.DegreeExpander,
		cfg.DegreeButterfly,
		cfg.NumExpanderLayers,
		cfg.NumButterflyLayers,
		bitSize,
	)
}

// GenerateProgram builds the complete program text for the given config. The
// module order is significant: later modules reference symbols defined by
// earlier ones (parameter macros, then field arithmetic, then hash
// primitives, then the layer kernels). The function is pure; for a fixed
// config two invocations produce byte-identical output.
func GenerateProgram(cfg nse.Config) string {
	return strings.Join([]string{
		defines(cfg),
		fieldgen.Field("Fr"),
		sha256Src,
		commonSrc,
		maskSrc,
		expanderSrc,
		butterflySrc,
		combineSrc,
	}, "\n")
}
