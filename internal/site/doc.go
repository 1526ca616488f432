// Package site provides read-only access to the project root being checked.
//
// A Site wraps an fs.FS so that checks can run against a directory on disk
// (os.DirFS) or an in-memory tree in tests (fstest.MapFS). Text is decoded as
// UTF-8 with byte order mark detection, and every artifact that is read can
// be fingerprinted with a BLAKE2b-256 digest for the run history.
package site
