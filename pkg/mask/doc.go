// Package mask redacts sensitive fields from captured request and response
// payloads before they are audited or logged.
//
// A payload is serialized to JSON and walked depth-first. Every object key
// that case-insensitively matches a configured field name has its value
// replaced by the redaction token "****" without descending into it; all
// other values are walked recursively, including elements of arrays.
//
// Masking never fails: a payload that cannot be serialized produces a
// diagnostic placeholder instead of an error, so the audit path cannot be
// broken by a hostile or malformed body.
package mask
