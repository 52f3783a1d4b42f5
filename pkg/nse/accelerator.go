package nse

import "context"

// NarrowStackedExpander is the capability surface a concrete execution
// backend provides: layer generation on parallel hardware plus the
// node-by-node combine arithmetic. Every call blocks until the backend has
// finished the step; cancellation between steps is the caller's job.
//
// Generation calls rely on implicit context: each one leaves its output
// resident in the backend as the "previous layer" the next call reads.
// Callers must therefore issue exactly one mask call, then the expander
// calls, then the butterfly calls, in order. Issuing a generation call while
// no valid previous layer is resident fails with an ErrExecution-kind error.
//
// A backend handle is exclusively owned by one window sequence at a time.
// Independent windows need independent handles unless the backend documents
// multiplexed contexts.
type NarrowStackedExpander interface {
	// GenerateMaskLayer derives the first layer purely from the replica id
	// and window index.
	GenerateMaskLayer(ctx context.Context, replicaID Sha256Domain, windowIndex uint64) (Layer, error)

	// GenerateExpanderLayer derives an expander-phase layer from the
	// resident previous layer. layerIndex is the 1-based position in the
	// full sequence.
	GenerateExpanderLayer(ctx context.Context, replicaID Sha256Domain, windowIndex uint64, layerIndex int) (Layer, error)

	// GenerateButterflyLayer derives a butterfly-phase layer from the
	// resident previous layer.
	GenerateButterflyLayer(ctx context.Context, replicaID Sha256Domain, windowIndex uint64, layerIndex int) (Layer, error)

	// CombineSegment mixes a contiguous sub-range of a data layer, starting
	// at offset, with the matching range of the resident key layer.
	// isDecode=false combines plaintext with key into ciphertext;
	// isDecode=true inverts it. The segment may be any bounded-size chunk so
	// large layers can be combined within memory limits.
	CombineSegment(ctx context.Context, offset int, segment []Node, isDecode bool) ([]Node, error)

	// CombineBatchSize reports the backend's preferred number of nodes per
	// CombineSegment call.
	CombineBatchSize() int

	// LeafCount reports the number of nodes per window the backend was
	// built for.
	LeafCount() int
}

// CombineLayer combines a whole data layer with the resident key layer in a
// single CombineSegment call. Note that it does not split the work into
// CombineBatchSize chunks; callers with bounded-memory requirements should
// use CombineLayerInBatches instead.
func CombineLayer(ctx context.Context, a NarrowStackedExpander, layer Layer, isDecode bool) (Layer, error) {
	nodes, err := a.CombineSegment(ctx, 0, layer, isDecode)
	if err != nil {
		return nil, err
	}
	return Layer(nodes), nil
}

// CombineLayerInBatches combines a data layer with the resident key layer in
// chunks of the backend's preferred batch size, issuing one CombineSegment
// call per offset range.
func CombineLayerInBatches(ctx context.Context, a NarrowStackedExpander, layer Layer, isDecode bool) (Layer, error) {
	batch := a.CombineBatchSize()
	if batch <= 0 {
		batch = DefaultCombineBatchSize
	}
	out := NewLayer(layer.Len())
	for off := 0; off < layer.Len(); off += batch {
		end := min(off+batch, layer.Len())
		seg, err := a.CombineSegment(ctx, off, layer[off:end], isDecode)
		if err != nil {
			return nil, err
		}
		copy(out[off:end], seg)
	}
	return out, nil
}
