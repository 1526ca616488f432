// Package watch re-runs a function whenever files under a project root
// change.
//
// Events are debounced: a burst of writes (an editor saving several files,
// a build tool rewriting the output directory) triggers a single run once
// the root has been quiet for the debounce window. Directories created
// while watching are added to the watch list. Hidden directories such as
// .git are not watched.
package watch
