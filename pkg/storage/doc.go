// Package storage manages the on-disk layout for downloaded assets.
// Each search term gets its own directory under the output root, and
// files are named by the term and their position in the term's
// checkpoint. Writes go through a temp file and rename so a partial
// download never lands under a final name.
package storage
