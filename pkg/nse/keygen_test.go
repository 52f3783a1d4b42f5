package nse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/filecoin-project/go-nse-gpu/pkg/nse"
)

type fakeCall struct {
	op    string
	index int
}

// fakeAccelerator records every capability call and synthesizes layers whose
// nodes encode the layer index, so tests can check both sequencing and
// payload routing without a real backend.
type fakeAccelerator struct {
	leafCount int
	calls     []fakeCall
	failWith  error // next generate call fails once with this error
	resident  int
}

func newFakeAccelerator(leafCount int) *fakeAccelerator {
	return &fakeAccelerator{leafCount: leafCount}
}

func (f *fakeAccelerator) layerOf(v uint64) nse.Layer {
	l := nse.NewLayer(f.leafCount)
	for i := range l {
		l[i] = nse.NodeFromUint64(v)
	}
	return l
}

func (f *fakeAccelerator) generate(op string, index int) (nse.Layer, error) {
	if f.failWith != nil {
		err := f.failWith
		f.failWith = nil
		return nil, err
	}
	f.calls = append(f.calls, fakeCall{op: op, index: index})
	f.resident = index
	return f.layerOf(uint64(index)), nil
}

func (f *fakeAccelerator) GenerateMaskLayer(ctx context.Context, replicaID nse.Sha256Domain, windowIndex uint64) (nse.Layer, error) {
	return f.generate("mask", 1)
}

func (f *fakeAccelerator) GenerateExpanderLayer(ctx context.Context, replicaID nse.Sha256Domain, windowIndex uint64, layerIndex int) (nse.Layer, error) {
	return f.generate("expander", layerIndex)
}

func (f *fakeAccelerator) GenerateButterflyLayer(ctx context.Context, replicaID nse.Sha256Domain, windowIndex uint64, layerIndex int) (nse.Layer, error) {
	return f.generate("butterfly", layerIndex)
}

func (f *fakeAccelerator) CombineSegment(ctx context.Context, offset int, segment []nse.Node, isDecode bool) ([]nse.Node, error) {
	f.calls = append(f.calls, fakeCall{op: "combine", index: offset})
	key := nse.NodeFromUint64(uint64(f.resident))
	out := make([]nse.Node, len(segment))
	for i, n := range segment {
		if isDecode {
			out[i] = n.Sub(key)
		} else {
			out[i] = n.Add(key)
		}
	}
	return out, nil
}

func (f *fakeAccelerator) CombineBatchSize() int { return 4 }

func (f *fakeAccelerator) LeafCount() int { return f.leafCount }

func testConfig(e, b int) nse.Config {
	return nse.Config{
		K:                  1,
		NumNodesWindow:     8,
		DegreeExpander:     2,
		DegreeButterfly:    2,
		NumExpanderLayers:  e,
		NumButterflyLayers: b,
	}
}

func TestKeyGeneratorLayerOrder(t *testing.T) {
	acc := newFakeAccelerator(8)
	kg, err := nse.NewKeyGenerator(testConfig(3, 2), nse.Sha256Domain{}, 0, acc)
	if err != nil {
		t.Fatalf("NewKeyGenerator failed: %v", err)
	}

	if kg.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", kg.Len())
	}

	ctx := context.Background()
	for step := 1; step <= 5; step++ {
		if got := kg.LayersRemaining(); got != 5-(step-1) {
			t.Errorf("LayersRemaining() before step %d = %d, want %d", step, got, 5-(step-1))
		}
		layer, err := kg.Next(ctx)
		if err != nil {
			t.Fatalf("Next() step %d failed: %v", step, err)
		}
		if layer.Len() != 8 {
			t.Errorf("step %d layer length = %d, want 8", step, layer.Len())
		}
		if !layer[0].Equal(nse.NodeFromUint64(uint64(step))) {
			t.Errorf("step %d returned layer for index %v", step, layer[0])
		}
	}
	if kg.LayersRemaining() != 0 {
		t.Errorf("LayersRemaining() after consumption = %d, want 0", kg.LayersRemaining())
	}
	if kg.Len() != 5 {
		t.Errorf("Len() after consumption = %d, want 5", kg.Len())
	}

	want := []fakeCall{
		{op: "mask", index: 1},
		{op: "expander", index: 2},
		{op: "expander", index: 3},
		{op: "butterfly", index: 4},
		{op: "butterfly", index: 5},
	}
	if len(acc.calls) != len(want) {
		t.Fatalf("accelerator saw %d calls, want %d", len(acc.calls), len(want))
	}
	for i, call := range want {
		if acc.calls[i] != call {
			t.Errorf("call %d = %+v, want %+v", i, acc.calls[i], call)
		}
	}
}

func TestKeyGeneratorSingleExpanderLayer(t *testing.T) {
	// With E=1 the mask step consumes the whole expander budget; the next
	// index goes straight to the butterfly operation.
	acc := newFakeAccelerator(8)
	kg, err := nse.NewKeyGenerator(testConfig(1, 1), nse.Sha256Domain{}, 0, acc)
	if err != nil {
		t.Fatalf("NewKeyGenerator failed: %v", err)
	}

	ctx := context.Background()
	for kg.LayersRemaining() > 0 {
		if _, err := kg.Next(ctx); err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
	}

	want := []fakeCall{{op: "mask", index: 1}, {op: "butterfly", index: 2}}
	if len(acc.calls) != len(want) {
		t.Fatalf("accelerator saw %d calls, want %d", len(acc.calls), len(want))
	}
	for i, call := range want {
		if acc.calls[i] != call {
			t.Errorf("call %d = %+v, want %+v", i, acc.calls[i], call)
		}
	}
}

func TestKeyGeneratorExhaustionIdempotent(t *testing.T) {
	acc := newFakeAccelerator(8)
	kg, err := nse.NewKeyGenerator(testConfig(2, 2), nse.Sha256Domain{}, 0, acc)
	if err != nil {
		t.Fatalf("NewKeyGenerator failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := kg.Next(ctx); err != nil {
			t.Fatalf("Next() step %d failed: %v", i+1, err)
		}
	}
	for i := 0; i < 3; i++ {
		_, err := kg.Next(ctx)
		if !errors.Is(err, nse.ErrExhausted) {
			t.Fatalf("Next() after exhaustion = %v, want ErrExhausted", err)
		}
	}
	if len(acc.calls) != 4 {
		t.Errorf("accelerator saw %d calls after exhaustion, want 4", len(acc.calls))
	}
}

func TestKeyGeneratorLeafCountMismatch(t *testing.T) {
	acc := newFakeAccelerator(512)
	cfg := testConfig(2, 2)
	cfg.NumNodesWindow = 1024

	kg, err := nse.NewKeyGenerator(cfg, nse.Sha256Domain{}, 0, acc)
	if !errors.Is(err, nse.ErrConfigMismatch) {
		t.Fatalf("NewKeyGenerator error = %v, want ErrConfigMismatch", err)
	}
	if kg != nil {
		t.Fatal("NewKeyGenerator returned a generator despite mismatch")
	}
	if len(acc.calls) != 0 {
		t.Errorf("accelerator saw %d calls before construction failed, want 0", len(acc.calls))
	}
}

func TestKeyGeneratorInvalidConfig(t *testing.T) {
	cfg := testConfig(2, 2)
	cfg.K = 0
	_, err := nse.NewKeyGenerator(cfg, nse.Sha256Domain{}, 0, newFakeAccelerator(8))
	if !errors.Is(err, nse.ErrInvalidConfig) {
		t.Fatalf("NewKeyGenerator error = %v, want ErrInvalidConfig", err)
	}
}

func TestKeyGeneratorFailedStepKeepsPosition(t *testing.T) {
	acc := newFakeAccelerator(8)
	kg, err := nse.NewKeyGenerator(testConfig(2, 1), nse.Sha256Domain{}, 0, acc)
	if err != nil {
		t.Fatalf("NewKeyGenerator failed: %v", err)
	}

	ctx := context.Background()
	if _, err := kg.Next(ctx); err != nil {
		t.Fatalf("Next() mask step failed: %v", err)
	}

	boom := errors.New("device fault")
	acc.failWith = boom
	if _, err := kg.Next(ctx); !errors.Is(err, boom) {
		t.Fatalf("Next() error = %v, want the accelerator failure", err)
	}
	if got := kg.LayersRemaining(); got != 2 {
		t.Fatalf("LayersRemaining() after failed step = %d, want 2", got)
	}

	// Re-issuing the failed step picks up where the failure happened.
	layer, err := kg.Next(ctx)
	if err != nil {
		t.Fatalf("Next() retry failed: %v", err)
	}
	if !layer[0].Equal(nse.NodeFromUint64(2)) {
		t.Errorf("retried step returned layer %v, want layer for index 2", layer[0])
	}
}

func TestKeyGeneratorContextCancelled(t *testing.T) {
	acc := newFakeAccelerator(8)
	kg, err := nse.NewKeyGenerator(testConfig(2, 2), nse.Sha256Domain{}, 0, acc)
	if err != nil {
		t.Fatalf("NewKeyGenerator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := kg.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next() with cancelled context = %v, want context.Canceled", err)
	}
	if got := kg.LayersRemaining(); got != 4 {
		t.Errorf("LayersRemaining() after cancelled step = %d, want 4", got)
	}
	if len(acc.calls) != 0 {
		t.Errorf("accelerator saw %d calls despite cancellation, want 0", len(acc.calls))
	}
}

func TestKeyGeneratorConcreteScenario(t *testing.T) {
	cfg := nse.Config{
		K:                  1,
		NumNodesWindow:     4,
		DegreeExpander:     2,
		DegreeButterfly:    2,
		NumExpanderLayers:  2,
		NumButterflyLayers: 2,
	}
	acc := newFakeAccelerator(4)
	kg, err := nse.NewKeyGenerator(cfg, nse.Sha256Domain{}, 0, acc)
	if err != nil {
		t.Fatalf("NewKeyGenerator failed: %v", err)
	}

	if kg.Len() != 4 {
		t.Fatalf("Len() before consumption = %d, want 4", kg.Len())
	}

	ctx := context.Background()
	produced := 0
	for {
		_, err := kg.Next(ctx)
		if errors.Is(err, nse.ErrExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		produced++
		if kg.Len() != 4 {
			t.Fatalf("Len() during consumption = %d, want 4", kg.Len())
		}
	}
	if produced != 4 {
		t.Fatalf("generator produced %d layers, want 4", produced)
	}
}
