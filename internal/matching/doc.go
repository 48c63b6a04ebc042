// Package matching implements the pattern matching primitives used to pair
// incoming requests with audit rules.
//
// Three pattern styles are supported:
//
//   - Exact: plain string equality against the request path
//   - Glob: ant-style patterns where * matches within a path segment and
//     ** spans segments ("/api/ext/*", "/api/**")
//   - Regex: full-string regular expression matching using RE2 syntax
//
// Method filters are matched separately: a filter of "*" or "ANY" accepts
// every method, anything else is compared case-insensitively.
//
// Invalid patterns never abort matching. A glob or regex that fails to
// compile simply does not match; callers that need early diagnostics can use
// the Validate helpers when rules are loaded.
package matching
