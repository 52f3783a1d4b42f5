// Package nse implements the encode/decode core of the Narrow Stacked
// Expander construction: a layered, hash-graph-based scheme that derives
// pseudorandom key material deterministically from a replica identifier and a
// window index, then combines that key with data to seal a replica or inverts
// the combination to unseal it.
//
// The computation itself runs on an accelerator backend reached through the
// NarrowStackedExpander capability; this package is the deterministic driver
// that sequences the backend through the fixed layer order (one mask layer,
// then expander layers, then butterfly layers) and wires the final combine
// step. See the cpu subpackage for a reference in-process backend and the
// sources subpackage for the kernel program handed to GPU backends.
package nse
