package nse

import "runtime"

// Layer is the complete state of one derivation step for one window: an
// ordered sequence of nodes, one per leaf. A Layer is produced by exactly one
// generation or combination call and is treated as immutable once produced;
// ownership passes to whichever component consumes it next.
type Layer []Node

// NewLayer allocates a layer of n zero nodes.
func NewLayer(n int) Layer {
	return make(Layer, n)
}

// Len returns the number of nodes in the layer.
func (l Layer) Len() int {
	return len(l)
}

// Clone returns an independent copy of the layer.
func (l Layer) Clone() Layer {
	out := make(Layer, len(l))
	copy(out, l)
	return out
}

// Equal reports whether two layers hold the same node sequence.
func (l Layer) Equal(other Layer) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if !l[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Zeroize overwrites every node with the additive identity and prevents dead
// store elimination using runtime.KeepAlive. Best effort only: the garbage
// collector and callers holding copies may retain the old values.
func (l Layer) Zeroize() {
	for i := range l {
		l[i] = Node{}
	}
	runtime.KeepAlive(l)
}
