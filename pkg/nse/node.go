package nse

import (
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// NodeBytes is the serialized size of a Node.
const NodeBytes = fr.Bytes

// Node is a single element of the BLS12-381 scalar field. The zero value is
// the field's additive identity. Nodes are plain values with no internal
// mutability; all operations return new Nodes.
type Node struct {
	fr fr.Element
}

// NewNode wraps a field element in a Node.
func NewNode(e fr.Element) Node {
	return Node{fr: e}
}

// NodeFromUint64 returns the Node representing the given small integer.
func NodeFromUint64(v uint64) Node {
	var n Node
	n.fr.SetUint64(v)
	return n
}

// NodeFromBytes interprets b as a big-endian integer, reduced modulo the
// field order.
func NodeFromBytes(b []byte) Node {
	var n Node
	n.fr.SetBytes(b)
	return n
}

// Bytes returns the canonical big-endian representation.
func (n Node) Bytes() [NodeBytes]byte {
	return n.fr.Bytes()
}

// Element returns the underlying field element.
func (n Node) Element() fr.Element {
	return n.fr
}

// Add returns n + other in the field.
func (n Node) Add(other Node) Node {
	var out Node
	out.fr.Add(&n.fr, &other.fr)
	return out
}

// Sub returns n - other in the field.
func (n Node) Sub(other Node) Node {
	var out Node
	out.fr.Sub(&n.fr, &other.fr)
	return out
}

// Equal reports whether two nodes hold the same field element.
func (n Node) Equal(other Node) bool {
	return n.fr.Equal(&other.fr)
}

// IsZero reports whether the node is the additive identity.
func (n Node) IsZero() bool {
	return n.fr.IsZero()
}

func (n Node) String() string {
	return n.fr.String()
}

// Sha256Domain is a fixed 32-byte digest value used as a replica identifier.
// The zero value is all-zero bytes.
type Sha256Domain [32]byte

func (d Sha256Domain) String() string {
	return hex.EncodeToString(d[:])
}
