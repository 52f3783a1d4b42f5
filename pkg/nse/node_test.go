package nse

import (
	"bytes"
	"testing"
)

func TestNodeDefaultIsZero(t *testing.T) {
	var n Node
	if !n.IsZero() {
		t.Error("zero-value Node is not the additive identity")
	}
	b := n.Bytes()
	if !bytes.Equal(b[:], make([]byte, NodeBytes)) {
		t.Error("zero-value Node does not serialize to all-zero bytes")
	}
}

func TestNodeAddSubInverse(t *testing.T) {
	a := NodeFromUint64(12345)
	b := NodeFromUint64(98765)
	if !a.Add(b).Sub(b).Equal(a) {
		t.Error("Add then Sub is not the identity")
	}
	if !a.Sub(b).Add(b).Equal(a) {
		t.Error("Sub then Add is not the identity")
	}
}

func TestNodeFromBytesRoundTrip(t *testing.T) {
	in := make([]byte, NodeBytes)
	for i := range in {
		in[i] = byte(i)
	}
	in[0] &= 0x3f // keep below the modulus so the value is canonical

	n := NodeFromBytes(in)
	out := n.Bytes()
	if !bytes.Equal(in, out[:]) {
		t.Errorf("Bytes() = %x, want %x", out, in)
	}
}

func TestSha256DomainDefault(t *testing.T) {
	var d Sha256Domain
	if d != (Sha256Domain{}) {
		t.Error("zero-value Sha256Domain is not all zero")
	}
	if d.String() != "0000000000000000000000000000000000000000000000000000000000000000" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestLayerCloneIsIndependent(t *testing.T) {
	l := NewLayer(4)
	l[0] = NodeFromUint64(1)

	c := l.Clone()
	c[0] = NodeFromUint64(2)
	if !l[0].Equal(NodeFromUint64(1)) {
		t.Error("mutating the clone changed the original")
	}
	if !l.Equal(l.Clone()) {
		t.Error("clone does not compare equal to its source")
	}
}

func TestLayerEqual(t *testing.T) {
	a := NewLayer(3)
	b := NewLayer(3)
	if !a.Equal(b) {
		t.Error("equal layers compare unequal")
	}
	b[2] = NodeFromUint64(9)
	if a.Equal(b) {
		t.Error("different layers compare equal")
	}
	if a.Equal(NewLayer(2)) {
		t.Error("layers of different length compare equal")
	}
}

func TestLayerZeroize(t *testing.T) {
	l := NewLayer(4)
	for i := range l {
		l[i] = NodeFromUint64(uint64(i + 1))
	}
	l.Zeroize()
	for i := range l {
		if !l[i].IsZero() {
			t.Fatalf("node %d not zero after Zeroize", i)
		}
	}
}
