// Package conv provides checked integer conversions for values crossing the
// acceleration module boundary, where bit lengths and distances are uint32.
package conv
