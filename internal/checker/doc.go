// Package checker runs the smoke test against a project root.
//
// A run is a Pipeline of Steps sharing one State: the site being checked,
// the report being filled and a per-run cache of artifact contents. The four
// core steps check index.html, manifest.json, service-worker.js and
// offline.html in that order. Every check runs regardless of earlier
// failures; a missing or unparseable artifact only skips the content checks
// for that artifact.
//
// Design decision: We keep the pipeline pattern even though a smoke run is a
// short linear pass because:
// 1. The strict audit adds its steps to the same pipeline without the core
// steps knowing about them
// 2. Logging and cancellation between steps live in one place
// 3. Each step can be tested in isolation against an in-memory site
//
// Several roots can be checked concurrently with BatchRunner. Each
// individual run stays sequential.
package checker
