// Package storage provides the local archive layout and collision-safe
// naming.
//
// The storage package handles:
//   - Creating and owning the archive directory layout
//   - Collision-free directory and file naming via " (n)" suffixes
//   - Filename sanitization for characters illegal on common filesystems
//   - Atomic media writes using temporary files and rename
//
// Two albums whose titles sanitize to the same string get distinct
// directories; two items whose filenames collide on disk get distinct
// suffixed files. Suffix probing is a bounded loop, never recursion.
package storage
