package nse

import "context"

// KeyGenerator drives an accelerator through the fixed layer order for one
// window: the mask layer at index 1, expander layers through index E,
// butterfly layers through index E+B. Index 0 means no layer has been
// produced yet.
//
// The production is lazy, finite, and non-restartable: each step leaves the
// produced layer resident in the accelerator as context for the next step,
// so steps must be taken in order and exactly once each. Past layers cannot
// be re-queried; callers retain the returned layers they need. The
// accelerator handle is exclusively owned by the generator from construction
// on.
type KeyGenerator struct {
	replicaID    Sha256Domain
	windowIndex  uint64
	currentLayer int
	acc          NarrowStackedExpander
	cfg          Config
}

// NewKeyGenerator validates the config against the accelerator and returns a
// generator positioned before the first layer. It fails with
// ErrConfigMismatch when the configured window size disagrees with the
// accelerator's reported leaf count; no layer is generated in that case.
func NewKeyGenerator(cfg Config, replicaID Sha256Domain, windowIndex uint64, acc NarrowStackedExpander) (*KeyGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Op: "NewKeyGenerator", Err: err}
	}
	if cfg.NumNodesWindow != acc.LeafCount() {
		return nil, errorf("NewKeyGenerator", "%w: num nodes window %d, accelerator leaf count %d",
			ErrConfigMismatch, cfg.NumNodesWindow, acc.LeafCount())
	}
	return &KeyGenerator{
		replicaID:   replicaID,
		windowIndex: windowIndex,
		acc:         acc,
		cfg:         cfg,
	}, nil
}

// Config returns the generator's parameter block.
func (g *KeyGenerator) Config() Config {
	return g.cfg
}

// Len returns the total number of layers the generator produces, E+B. It
// reflects the configured total, not the remaining count.
func (g *KeyGenerator) Len() int {
	return g.cfg.NumLayers()
}

// LayersRemaining returns how many layers are still to be produced.
func (g *KeyGenerator) LayersRemaining() int {
	return g.Len() - g.currentLayer
}

// Next produces the next layer in the derivation order. Once all E+B layers
// have been produced it returns ErrExhausted on every further call. When the
// accelerator fails a step, the sequencing position is left unchanged so the
// caller may re-issue it; the error propagates unchanged.
func (g *KeyGenerator) Next(ctx context.Context) (Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	last := g.cfg.NumLayers()
	if g.currentLayer >= last {
		return nil, ErrExhausted
	}
	index := g.currentLayer + 1

	var layer Layer
	var err error
	switch {
	case index == 1:
		// First layer is the mask layer, derived from the seeds alone.
		layer, err = g.acc.GenerateMaskLayer(ctx, g.replicaID, g.windowIndex)
	case index <= g.cfg.NumExpanderLayers:
		layer, err = g.acc.GenerateExpanderLayer(ctx, g.replicaID, g.windowIndex, index)
	case index <= last:
		// TODO: confirm against the reference GPU backend that butterfly
		// indices dispatch to a distinct kernel entry point; earlier drivers
		// re-invoked the expander entry point for these indices and relied
		// on index-based dispatch inside the backend.
		layer, err = g.acc.GenerateButterflyLayer(ctx, g.replicaID, g.windowIndex, index)
	default:
		// Unreachable through the stepping interface: index is bounded by
		// the exhaustion check above. Treat a hit as a programming defect.
		return nil, errorf("Next", "%w: layer index %d outside [0, %d]", ErrSequencing, index, last)
	}
	if err != nil {
		return nil, err
	}

	g.currentLayer = index
	return layer, nil
}

// combineLayer combines data with the key layer left resident by the final
// generation step.
func (g *KeyGenerator) combineLayer(ctx context.Context, data Layer, isDecode bool) (Layer, error) {
	return CombineLayer(ctx, g.acc, data, isDecode)
}
