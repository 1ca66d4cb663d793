// Package checkpoint persists the captured URL list for each search
// term between the collection and download phases of a run.
//
// A checkpoint is a bare JSON array of URL strings, one file per term,
// written atomically (temp file, fsync, rename). Once written it is the
// authoritative, complete input for downloading that term: a later run
// overwrites it rather than merging into it. Reading a term that was
// never checkpointed yields ErrNotFound, which the downloader treats as
// "skip this term", not as an error.
package checkpoint
