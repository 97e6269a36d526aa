// Package internal contains helper utilities that are intentionally private to goSession,
// currently session key generation.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for every Manager lifecycle operation
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
