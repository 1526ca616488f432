// Package main provides the entry point for the pwasmoke CLI.
//
// pwasmoke is a conformance checker for static Progressive Web App roots.
// It verifies that index.html, manifest.json, service-worker.js and
// offline.html are present and wired together, and optionally audits the
// references between them.
//
// Usage:
//
//	pwasmoke
//	pwasmoke check [root...]
//
// See --help for all available options.
package main

// main is the entry point for pwasmoke.
func main() {
	Execute()
}
