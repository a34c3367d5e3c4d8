// Package op models DWARF location-expression instructions and decodes
// them from raw bytes.
//
// The Op type is the unit the VM executes and the unit breakpoint
// hooks may inspect and rewrite. Decode is the stock implementation of
// the root package's Decoder contract; the VM never depends on this
// encoding directly, so an alternative decoder can be substituted for
// non-standard streams.
package op
