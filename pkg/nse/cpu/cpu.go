// Package cpu provides a reference in-process implementation of the
// nse.NarrowStackedExpander capability. It reproduces the layer semantics of
// the kernel program on the host CPU: SHA-256 node hashing over graph
// parents, SHAKE256-sampled expander edges, stride-based butterfly edges, and
// field-addition combine. It is fully deterministic for a given (config,
// replica id, window index) and serves both as the backend for the package
// tests and as executable documentation of the derivation.
package cpu

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/filecoin-project/go-nse-gpu/pkg/nse"
	"github.com/filecoin-project/go-nse-gpu/pkg/nse/logging"
)

// Accelerator derives layers on the host CPU. It holds the resident previous
// layer for exactly one window sequence at a time and is not safe for
// concurrent use; independent windows need independent Accelerators.
type Accelerator struct {
	cfg nse.Config
	log logging.Logger

	prev      nse.Layer // resident context read by the next generate call
	prevIndex int       // 1-based index of prev; 0 when nothing is resident
}

// Option configures an Accelerator.
type Option func(*Accelerator)

// WithLogger attaches a structured logger; the backend logs one debug record
// per generated layer.
func WithLogger(l logging.Logger) Option {
	return func(a *Accelerator) {
		if l != nil {
			a.log = l
		}
	}
}

// New returns a CPU accelerator for the given config.
func New(cfg nse.Config, opts ...Option) (*Accelerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Accelerator{cfg: cfg, log: logging.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// LeafCount reports the number of nodes per window.
func (a *Accelerator) LeafCount() int {
	return a.cfg.NumNodesWindow
}

// CombineBatchSize reports the preferred number of nodes per combine call.
func (a *Accelerator) CombineBatchSize() int {
	return a.cfg.CombineBatch()
}

// Reset drops the resident layer context, zeroizing it first. The next
// generation call must be a mask layer.
func (a *Accelerator) Reset() {
	if a.prev != nil {
		a.prev.Zeroize()
		a.prev = nil
	}
	a.prevIndex = 0
}

// GenerateMaskLayer derives layer 1 from the replica id and window index
// alone and leaves it resident. It may be called at any time; doing so starts
// a fresh window sequence.
func (a *Accelerator) GenerateMaskLayer(ctx context.Context, replicaID nse.Sha256Domain, windowIndex uint64) (nse.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layer := nse.NewLayer(a.cfg.NumNodesWindow)
	for i := range layer {
		layer[i] = hashNode(replicaID, windowIndex, 1, uint64(i), nil, nil)
	}
	a.setResident(layer, 1)
	a.log.Debug(ctx, "generated mask layer", "window", windowIndex, "nodes", layer.Len())
	return layer, nil
}

// GenerateExpanderLayer derives an expander-phase layer from the resident
// previous layer. Parents are sampled from a SHAKE256 stream keyed by the
// layer index and node index, reduced modulo the window size.
func (a *Accelerator) GenerateExpanderLayer(ctx context.Context, replicaID nse.Sha256Domain, windowIndex uint64, layerIndex int) (nse.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if layerIndex < 2 || layerIndex > a.cfg.NumExpanderLayers {
		return nil, errExec("GenerateExpanderLayer", "layer index %d outside expander range [2, %d]",
			layerIndex, a.cfg.NumExpanderLayers)
	}
	if err := a.requireResident("GenerateExpanderLayer", layerIndex); err != nil {
		return nil, err
	}

	layer := nse.NewLayer(a.cfg.NumNodesWindow)
	parents := make([]int, a.cfg.DegreeExpander)
	for i := range layer {
		expanderParents(layerIndex, uint64(i), a.cfg.NumNodesWindow, parents)
		layer[i] = hashNode(replicaID, windowIndex, uint64(layerIndex), uint64(i), a.prev, parents)
	}
	a.setResident(layer, layerIndex)
	a.log.Debug(ctx, "generated expander layer", "window", windowIndex, "layer", layerIndex)
	return layer, nil
}

// GenerateButterflyLayer derives a butterfly-phase layer from the resident
// previous layer. Parents sit at stride offsets from the node, the stride
// shrinking by the butterfly degree each step down to 1.
func (a *Accelerator) GenerateButterflyLayer(ctx context.Context, replicaID nse.Sha256Domain, windowIndex uint64, layerIndex int) (nse.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if layerIndex <= a.cfg.NumExpanderLayers || layerIndex > a.cfg.NumLayers() {
		return nil, errExec("GenerateButterflyLayer", "layer index %d outside butterfly range (%d, %d]",
			layerIndex, a.cfg.NumExpanderLayers, a.cfg.NumLayers())
	}
	if err := a.requireResident("GenerateButterflyLayer", layerIndex); err != nil {
		return nil, err
	}

	stride := butterflyStride(a.cfg, layerIndex)
	layer := nse.NewLayer(a.cfg.NumNodesWindow)
	parents := make([]int, a.cfg.DegreeButterfly)
	for i := range layer {
		for j := range parents {
			parents[j] = (i + (j+1)*stride) % a.cfg.NumNodesWindow
		}
		layer[i] = hashNode(replicaID, windowIndex, uint64(layerIndex), uint64(i), a.prev, parents)
	}
	a.setResident(layer, layerIndex)
	a.log.Debug(ctx, "generated butterfly layer", "window", windowIndex, "layer", layerIndex, "stride", stride)
	return layer, nil
}

// CombineSegment mixes a contiguous range of a data layer with the resident
// final key layer: ciphertext = data + key in the field, or data =
// ciphertext - key when isDecode is set.
func (a *Accelerator) CombineSegment(ctx context.Context, offset int, segment []nse.Node, isDecode bool) ([]nse.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.prev == nil || a.prevIndex != a.cfg.NumLayers() {
		return nil, errExec("CombineSegment", "final key layer not resident (have layer %d of %d)",
			a.prevIndex, a.cfg.NumLayers())
	}
	if offset < 0 || offset+len(segment) > a.cfg.NumNodesWindow {
		return nil, errExec("CombineSegment", "segment [%d, %d) outside window of %d nodes",
			offset, offset+len(segment), a.cfg.NumNodesWindow)
	}

	out := make([]nse.Node, len(segment))
	for i, n := range segment {
		key := a.prev[offset+i]
		if isDecode {
			out[i] = n.Sub(key)
		} else {
			out[i] = n.Add(key)
		}
	}
	return out, nil
}

// requireResident checks that the layer preceding layerIndex is the resident
// context.
func (a *Accelerator) requireResident(op string, layerIndex int) error {
	if a.prev == nil {
		return errExec(op, "no previous layer resident for layer index %d", layerIndex)
	}
	if a.prevIndex != layerIndex-1 {
		return errExec(op, "resident layer is %d, layer index %d needs %d",
			a.prevIndex, layerIndex, layerIndex-1)
	}
	return nil
}

// setResident installs the backend's own copy of the layer as the context
// for the next call, releasing the previous one.
func (a *Accelerator) setResident(layer nse.Layer, index int) {
	if a.prev != nil {
		a.prev.Zeroize()
	}
	a.prev = layer.Clone()
	a.prevIndex = index
}

func errExec(op, format string, args ...any) error {
	args = append([]any{nse.ErrExecution}, args...)
	return &nse.Error{Op: op, Err: fmt.Errorf("%w: "+format, args...)}
}

// butterflyStride returns the parent stride for a butterfly layer: the window
// size divided by the butterfly degree once per butterfly step, never below 1.
func butterflyStride(cfg nse.Config, layerIndex int) int {
	stride := cfg.NumNodesWindow
	for s := layerIndex - cfg.NumExpanderLayers; s > 0; s-- {
		stride /= cfg.DegreeButterfly
		if stride < 1 {
			return 1
		}
	}
	if stride < 1 {
		return 1
	}
	return stride
}

// hashNode derives one node: SHA-256 over the replica id, window index, layer
// index, node index, and the parents' previous-layer values, truncated to 254
// bits so the digest maps uniformly below the field modulus.
func hashNode(replicaID nse.Sha256Domain, windowIndex, layerIndex, node uint64, prev nse.Layer, parents []int) nse.Node {
	h := sha256.New()
	var buf [8]byte
	h.Write(replicaID[:])
	binary.BigEndian.PutUint64(buf[:], windowIndex)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], layerIndex)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], node)
	h.Write(buf[:])
	for _, p := range parents {
		b := prev[p].Bytes()
		h.Write(b[:])
	}
	digest := h.Sum(nil)
	digest[0] &= 0x3f
	return nse.NodeFromBytes(digest)
}

var shakePool = sync.Pool{
	New: func() any {
		return sha3.NewShake256()
	},
}

// expanderParents fills parents with the expander edges of one node, sampled
// from a SHAKE256 stream over (layer index, node index) and reduced modulo
// the window size.
func expanderParents(layerIndex int, node uint64, numNodes int, parents []int) {
	h := shakePool.Get().(sha3.ShakeHash)
	defer func() {
		h.Reset()
		shakePool.Put(h)
	}()

	var seed [16]byte
	binary.BigEndian.PutUint64(seed[:8], uint64(layerIndex))
	binary.BigEndian.PutUint64(seed[8:], node)
	h.Write(seed[:])

	buf := make([]byte, 8*len(parents))
	_, _ = h.Read(buf)
	for j := range parents {
		parents[j] = int(binary.BigEndian.Uint64(buf[j*8:]) % uint64(numNodes))
	}
}
