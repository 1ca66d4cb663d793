// Package runner orchestrates a full session: collection first, where
// each search term is submitted and its feed loaded to convergence,
// then download, where every checkpoint is fetched to disk. Either
// phase can be skipped to split a run across invocations.
package runner
