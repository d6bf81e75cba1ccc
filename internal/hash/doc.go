// Package hash provides the CRC32-Castagnoli checksums that guard backup
// snapshots.
//
// One-shot:
//
//	sum := hash.CRC32C(data)
//
// Streaming, e.g. alongside a snapshot copy:
//
//	h := hash.NewCRC32C()
//	_, err := io.Copy(io.MultiWriter(dst, h), src)
//	sum := h.Sum32()
//
// Go's hash/crc32 uses SSE4.2 or the ARM CRC extension when available.
package hash
