// Package fs provides a file system abstraction with fault injection.
//
//   - [LocalFS]: production implementation on top of package os
//   - [FaultyFS]: test wrapper that fails writes, syncs, closes or renames
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
//
// Tests inject a FaultyFS to simulate I/O errors:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".snapshot", fs.Fault{FailAfterBytes: 1024})
//
// Operations take no context. Local file system calls cannot be interrupted
// at the syscall level; callers check their context between calls.
package fs
