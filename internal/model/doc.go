// Package model defines the data structures shared by the checker, the
// report writers and the history database.
//
// This package contains the following main types:
//   - CheckReport: the ordered result of one run against a project root
//   - Finding: a single failed assertion
//   - Kind: the failure taxonomy (missing file, content mismatch, ...)
//   - Severity: how a finding affects the outcome
//
// Design decision: We keep the models in their own package so that the
// checker, audit, report and database packages can share them without
// import cycles. All types serialize to JSON for reports and storage.
package model
