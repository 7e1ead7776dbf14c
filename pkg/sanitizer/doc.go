// Package sanitizer normalizes caller-supplied strings before validation and storage.
//
// All functions are idempotent and never fail: invalid input collapses to an empty
// string (or is dropped from a slice) and is left for validation to reject.
//
// Normalization includes:
//   - Names: collapse whitespace, trim leading/trailing spaces
//   - Emails: trim and lowercase
//   - Identifiers: trim and lowercase, so UUIDs compare equal regardless of case
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
