// Package internalcheck holds repository policy tests. They load the
// derivation packages with go/packages and fail when a source-level policy is
// violated, keeping properties the type system cannot express, such as
// determinism of the layer derivation.
package internalcheck
