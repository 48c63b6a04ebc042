package audit

import (
	"log/slog"
	"regexp"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/internal/matching"
)

// compiledRule is a rule prepared for fast evaluation. Regex patterns are
// compiled once at snapshot build.
type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// matches reports whether the compiled rule accepts the request path.
// The method filter is checked by the caller.
func (c *compiledRule) matches(path string) bool {
	switch MatchType(c.rule.MatchType.normalize()) {
	case MatchExact:
		return matching.MatchExact(c.rule.PathPattern, path)
	case MatchGlob:
		return matching.MatchGlob(c.rule.PathPattern, path)
	case MatchRegex:
		return c.re != nil && c.re.MatchString(path)
	default:
		return false
	}
}

// normalize folds the match type to its canonical upper-case form.
func (t MatchType) normalize() string {
	switch t.tier() {
	case 0:
		return string(MatchExact)
	case 1:
		return string(MatchGlob)
	case 2:
		return string(MatchRegex)
	default:
		return string(t)
	}
}

// snapshot is an immutable view of the full rule set, bucketed by precedence
// tier. Resolution walks tiers strongest-first and, within a tier, in the
// order rules arrived from the source. Snapshots are replaced wholesale by a
// single pointer swap, so a reader always sees one fully-formed list.
type snapshot struct {
	tiers [3][]compiledRule
	total int
}

// emptySnapshot is what a resolver holds before the first successful load.
var emptySnapshot = &snapshot{}

// buildSnapshot compiles the rule list into a snapshot. Disabled rules are
// skipped; rules with an unknown match type or an invalid pattern are
// skipped with a warning rather than poisoning the whole refresh.
func buildSnapshot(rules []Rule, logger *slog.Logger) *snapshot {
	snap := &snapshot{}
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		tier := r.MatchType.tier()
		if tier >= len(snap.tiers) {
			logger.Warn("audit: skipping rule with unknown match type",
				"matchType", string(r.MatchType), "pattern", r.PathPattern)
			continue
		}

		cr := compiledRule{rule: r}
		switch tier {
		case 1:
			if err := matching.ValidateGlob(r.PathPattern); err != nil {
				logger.Warn("audit: skipping rule with invalid glob pattern",
					"pattern", r.PathPattern, "error", err)
				continue
			}
		case 2:
			re, err := matching.CompileRegex(r.PathPattern)
			if err != nil {
				logger.Warn("audit: skipping rule with invalid regex pattern",
					"pattern", r.PathPattern, "error", err)
				continue
			}
			cr.re = re
		}

		snap.tiers[tier] = append(snap.tiers[tier], cr)
		snap.total++
	}
	return snap
}

// resolve returns the policy of the most specific rule accepting the
// request, walking EXACT, then GLOB, then REGEX, first match within a tier
// winning. The second return is false when no rule matched.
func (s *snapshot) resolve(method, path string) (Settings, bool) {
	for t := range s.tiers {
		for i := range s.tiers[t] {
			cr := &s.tiers[t][i]
			if !matching.MatchMethod(cr.rule.HTTPMethod, method) {
				continue
			}
			if cr.matches(path) {
				return settingsFromRule(cr.rule), true
			}
		}
	}
	return Settings{}, false
}
