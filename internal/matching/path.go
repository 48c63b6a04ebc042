package matching

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MethodWildcards are the method filter values that accept any HTTP method.
var methodWildcards = map[string]bool{
	"":    true,
	"*":   true,
	"ANY": true,
}

// MatchMethod checks whether a rule's method filter accepts the request
// method. An empty filter, "*", or "ANY" accepts everything; otherwise the
// comparison is case-insensitive.
func MatchMethod(filter, method string) bool {
	if methodWildcards[strings.ToUpper(strings.TrimSpace(filter))] {
		return true
	}
	return strings.EqualFold(filter, method)
}

// MatchExact checks the request path against a pattern by string equality.
func MatchExact(pattern, path string) bool {
	return pattern == path
}

// MatchGlob checks the request path against an ant-style glob pattern.
// A single * matches any sequence of characters within one path segment,
// ** matches across segments:
//
//	MatchGlob("/api/ext/*", "/api/ext/login")    // true
//	MatchGlob("/api/ext/*", "/api/ext/v1/login") // false
//	MatchGlob("/api/**", "/api/ext/v1/login")    // true
//
// An invalid pattern does not match.
func MatchGlob(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false
	}
	return ok
}

// CompileRegex compiles a rule's regex pattern for full-string matching.
// The pattern is anchored so that it must cover the entire path, matching
// the semantics of a regex-typed audit rule.
func CompileRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`\A(?:` + pattern + `)\z`)
}

// MatchRegex checks the request path against a full-string regex pattern.
// An invalid pattern does not match. Callers on a hot path should compile
// once via CompileRegex instead.
func MatchRegex(pattern, path string) bool {
	re, err := CompileRegex(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// ValidateGlob checks that a glob pattern is well-formed.
func ValidateGlob(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return doublestar.ErrBadPattern
	}
	return nil
}

// ValidateRegex checks that a regex pattern compiles.
func ValidateRegex(pattern string) error {
	_, err := CompileRegex(pattern)
	return err
}
