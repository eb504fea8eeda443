// Package claimsfile retrieves claims extracts and reads them as validated records
//
// Design choices:
// - Sources are local paths or http(s) URLs; a .gz suffix is transparently decompressed.
// - Remote objects are cached on disk with an ETag / Last-Modified sidecar and revalidated by conditional GET.
// - Header names are folded case-insensitively and matched against a fixed alias table.
// - Invalid rows are counted and dropped; a row the delimited reader cannot parse fails the read.
package claimsfile
