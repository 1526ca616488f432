// Package audit provides the strict audit: structural checks that go beyond
// the smoke test's marker search.
//
// The audit only runs when strict mode is requested. Its steps run after the
// core steps in the same pipeline and record warning-severity findings.
// Each step skips silently when the artifact it needs is missing or cannot
// be parsed, because the core steps have already reported that.
//
// The steps are:
//   - dom: parses index.html and checks that the manifest link, local
//     scripts and navigation tab targets resolve
//   - manifest_schema: validates manifest.json against an embedded Web App
//     Manifest schema
//   - icons: checks that manifest icons exist and carry no identifying EXIF
//     metadata
//   - precache: checks the service worker's precache list against the root
package audit
