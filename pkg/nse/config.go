package nse

import "fmt"

// DefaultCombineBatchSize is the preferred number of nodes per combine
// segment when neither the Config nor the backend specifies one.
const DefaultCombineBatchSize = 500000

// Config is the immutable parameter block for one sealing or unsealing
// session. It parameterizes both the kernel program (see the sources
// subpackage) and the layer sequencing. Layers are 1-indexed.
type Config struct {
	// K is the batch hashing factor.
	K uint32
	// NumNodesWindow is the number of nodes per window. It must equal the
	// accelerator's reported leaf count, checked at KeyGenerator
	// construction.
	NumNodesWindow int
	// DegreeExpander is the fan-in of the expander graph.
	DegreeExpander int
	// DegreeButterfly is the fan-in of the butterfly graph.
	DegreeButterfly int
	// NumExpanderLayers is the number of layers in the expander phase,
	// including the mask layer. Typically 8.
	NumExpanderLayers int
	// NumButterflyLayers is the number of layers in the butterfly phase.
	// Typically 7.
	NumButterflyLayers int
	// CombineBatchSize is the number of nodes per combine segment for
	// callers that batch. Zero selects DefaultCombineBatchSize.
	CombineBatchSize int
}

// NumLayers returns the total addressable layer budget, expander plus
// butterfly.
func (c Config) NumLayers() int {
	return c.NumExpanderLayers + c.NumButterflyLayers
}

// CombineBatch returns the configured combine batch size, falling back to
// DefaultCombineBatchSize when unset.
func (c Config) CombineBatch() int {
	if c.CombineBatchSize > 0 {
		return c.CombineBatchSize
	}
	return DefaultCombineBatchSize
}

// Validate checks the parameter block for consistency.
func (c Config) Validate() error {
	if c.K == 0 {
		return fmt.Errorf("%w: batch hashing factor must be positive", ErrInvalidConfig)
	}
	if c.NumNodesWindow <= 0 {
		return fmt.Errorf("%w: num nodes window must be positive", ErrInvalidConfig)
	}
	if c.DegreeExpander <= 0 || c.DegreeButterfly <= 0 {
		return fmt.Errorf("%w: graph degrees must be positive", ErrInvalidConfig)
	}
	if c.NumExpanderLayers < 1 {
		return fmt.Errorf("%w: need at least one expander layer for the mask step", ErrInvalidConfig)
	}
	if c.NumButterflyLayers < 1 {
		return fmt.Errorf("%w: need at least one butterfly layer for the key", ErrInvalidConfig)
	}
	if c.CombineBatchSize < 0 {
		return fmt.Errorf("%w: combine batch size must not be negative", ErrInvalidConfig)
	}
	return nil
}
