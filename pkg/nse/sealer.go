package nse

import "context"

// Sealer encodes one window: it wraps a KeyGenerator and the window's
// plaintext layer, and intercepts the final key-generation step to emit the
// sealed layer instead of the raw key.
//
// Stepping a Sealer yields the same items as the underlying KeyGenerator for
// every step but the last; those intermediate layers are exposed so callers
// can retain them for auditing or proof construction. The last item is the
// combination of the plaintext with the final key layer.
type Sealer struct {
	originalData Layer
	keyGenerator *KeyGenerator
}

// NewSealer constructs a sealer for one window, taking ownership of the
// plaintext layer and the accelerator handle.
func NewSealer(cfg Config, replicaID Sha256Domain, windowIndex uint64, originalData Layer, acc NarrowStackedExpander) (*Sealer, error) {
	kg, err := NewKeyGenerator(cfg, replicaID, windowIndex, acc)
	if err != nil {
		return nil, err
	}
	if originalData.Len() != cfg.NumNodesWindow {
		return nil, errorf("NewSealer", "%w: data layer length %d, window size %d",
			ErrConfigMismatch, originalData.Len(), cfg.NumNodesWindow)
	}
	return &Sealer{originalData: originalData, keyGenerator: kg}, nil
}

// Next returns successive layers, starting with the mask layer and ending
// with the sealed replica layer. After the final layer it returns
// ErrExhausted on every call.
func (s *Sealer) Next(ctx context.Context) (Layer, error) {
	keyLayer, err := s.keyGenerator.Next(ctx)
	if err != nil {
		return nil, err
	}
	if s.keyGenerator.LayersRemaining() == 0 {
		return s.keyGenerator.combineLayer(ctx, s.originalData, false)
	}
	return keyLayer, nil
}

// Seal drains the remaining steps and returns the final sealed layer.
func (s *Sealer) Seal(ctx context.Context) (Layer, error) {
	return drain(ctx, s)
}

// Len returns the total number of items the sealer produces.
func (s *Sealer) Len() int {
	return s.keyGenerator.Len()
}

// LayersRemaining returns how many items are still to be produced.
func (s *Sealer) LayersRemaining() int {
	return s.keyGenerator.LayersRemaining()
}

// Unsealer decodes one window: the mirror image of Sealer, wrapping the
// sealed layer and combining it with the final key layer in decode mode.
type Unsealer struct {
	sealedData   Layer
	keyGenerator *KeyGenerator
}

// NewUnsealer constructs an unsealer for one window, taking ownership of the
// sealed layer and the accelerator handle. Config, replica id, and window
// index must match the sealing run for the plaintext to be recovered.
func NewUnsealer(cfg Config, replicaID Sha256Domain, windowIndex uint64, sealedData Layer, acc NarrowStackedExpander) (*Unsealer, error) {
	kg, err := NewKeyGenerator(cfg, replicaID, windowIndex, acc)
	if err != nil {
		return nil, err
	}
	if sealedData.Len() != cfg.NumNodesWindow {
		return nil, errorf("NewUnsealer", "%w: data layer length %d, window size %d",
			ErrConfigMismatch, sealedData.Len(), cfg.NumNodesWindow)
	}
	return &Unsealer{sealedData: sealedData, keyGenerator: kg}, nil
}

// Next returns successive layers, starting with the mask layer and ending
// with the recovered plaintext layer.
func (u *Unsealer) Next(ctx context.Context) (Layer, error) {
	keyLayer, err := u.keyGenerator.Next(ctx)
	if err != nil {
		return nil, err
	}
	if u.keyGenerator.LayersRemaining() == 0 {
		return u.keyGenerator.combineLayer(ctx, u.sealedData, true)
	}
	return keyLayer, nil
}

// Unseal drains the remaining steps and returns the recovered plaintext
// layer.
func (u *Unsealer) Unseal(ctx context.Context) (Layer, error) {
	return drain(ctx, u)
}

// Len returns the total number of items the unsealer produces.
func (u *Unsealer) Len() int {
	return u.keyGenerator.Len()
}

// LayersRemaining returns how many items are still to be produced.
func (u *Unsealer) LayersRemaining() int {
	return u.keyGenerator.LayersRemaining()
}

type stepper interface {
	Next(ctx context.Context) (Layer, error)
	LayersRemaining() int
}

// drain steps until exhaustion and returns the last produced layer.
func drain(ctx context.Context, s stepper) (Layer, error) {
	var last Layer
	for s.LayersRemaining() > 0 {
		layer, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		last = layer
	}
	return last, nil
}
