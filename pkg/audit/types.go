package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/mask"
)

// MatchType selects how a rule's path pattern is evaluated.
type MatchType string

// Supported match types, in precedence order: an EXACT rule always beats a
// GLOB rule, which always beats a REGEX rule.
const (
	MatchExact MatchType = "EXACT"
	MatchGlob  MatchType = "GLOB"
	MatchRegex MatchType = "REGEX"
)

// tier returns the precedence tier for the match type, lower is stronger.
// Unknown types sort last.
func (t MatchType) tier() int {
	switch MatchType(strings.ToUpper(string(t))) {
	case MatchExact:
		return 0
	case MatchGlob:
		return 1
	case MatchRegex:
		return 2
	default:
		return 3
	}
}

// Valid reports whether the match type is one of the supported values.
func (t MatchType) Valid() bool {
	return t.tier() < 3
}

// Rule is a declarative audit policy entry. Rules are immutable once loaded;
// a refresh replaces the whole list, never individual fields.
type Rule struct {
	// HTTPMethod filters by request method. "*" or "ANY" (or empty)
	// accepts every method.
	HTTPMethod string `json:"httpMethod" yaml:"httpMethod"`

	// PathPattern is matched against the request path according to MatchType.
	PathPattern string `json:"pathPattern" yaml:"pathPattern"`

	// MatchType is EXACT, GLOB, or REGEX.
	MatchType MatchType `json:"matchType" yaml:"matchType"`

	// Enabled toggles the rule. Disabled rules never participate in
	// resolution.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// LogRequest captures the masked request payload.
	LogRequest bool `json:"logRequest" yaml:"logRequest"`

	// LogResponse captures the masked response payload.
	LogResponse bool `json:"logResponse" yaml:"logResponse"`

	// LogError captures a summary of the operation's error.
	LogError bool `json:"logError" yaml:"logError"`

	// OnlyOnError suppresses the record entirely when the operation
	// succeeds.
	OnlyOnError bool `json:"onlyOnError" yaml:"onlyOnError"`

	// MaskFields lists payload field names to redact, case-insensitive.
	MaskFields []string `json:"maskFields,omitempty" yaml:"maskFields,omitempty"`
}

// Settings is the effective, per-call audit policy after rule resolution and
// fallback. The zero value is a disabled policy: auditing is opt-in.
type Settings struct {
	Enabled     bool
	LogRequest  bool
	LogResponse bool
	LogError    bool
	OnlyOnError bool
	MaskFields  mask.FieldSet
}

// settingsFromRule derives the effective policy a matched rule grants.
func settingsFromRule(r Rule) Settings {
	return Settings{
		Enabled:     true,
		LogRequest:  r.LogRequest,
		LogResponse: r.LogResponse,
		LogError:    r.LogError,
		OnlyOnError: r.OnlyOnError,
		MaskFields:  mask.NewFieldSet(r.MaskFields...),
	}
}

// Record is one completed call's audit trail entry. It is built by the
// Interceptor and owned by the Sink until persisted or discarded.
type Record struct {
	// CorrelationID ties the record to every log line of the same request.
	CorrelationID string `json:"correlationId"`

	// Principal is the authenticated caller, or "anonymous".
	Principal string `json:"principal,omitempty"`

	// Roles are the caller's roles at record-build time.
	Roles []string `json:"roles,omitempty"`

	// Method and Path identify the invoked operation.
	Method string `json:"method"`
	Path   string `json:"path"`

	// RequestBody is the masked request payload, when captured.
	RequestBody json.RawMessage `json:"requestBody,omitempty"`

	// ResponseBody is the masked response payload, when captured.
	ResponseBody json.RawMessage `json:"responseBody,omitempty"`

	// ErrorSummary describes the operation's failure, when captured.
	ErrorSummary string `json:"errorSummary,omitempty"`

	// StartedAt is when the wrapped operation began executing.
	StartedAt time.Time `json:"startedAt"`

	// Duration is the wrapped operation's elapsed time in nanoseconds.
	Duration time.Duration `json:"duration"`

	// StatusCode is the HTTP status of the response, when known.
	StatusCode int `json:"statusCode,omitempty"`

	// RemoteAddr is the client's network address.
	RemoteAddr string `json:"remoteAddr,omitempty"`
}

// OpInfo carries the request metadata the boundary layer knows about the
// operation being wrapped.
type OpInfo struct {
	Method     string
	Path       string
	RemoteAddr string
}

// RuleSource supplies the full enabled-rule list, pulled at startup and on
// every refresh tick.
type RuleSource interface {
	ListEnabledRules(ctx context.Context) ([]Rule, error)
}

// Store persists completed audit records. It is called exclusively from the
// Sink's worker pool, never on the request path.
type Store interface {
	Store(ctx context.Context, rec *Record) error
	Close() error
}

// IdentityProvider reports the calling principal at record-build time.
type IdentityProvider interface {
	// CurrentPrincipal returns the caller's name, or "anonymous" when the
	// request is unauthenticated.
	CurrentPrincipal(ctx context.Context) string

	// CurrentRoles returns the caller's roles, nil when unauthenticated.
	CurrentRoles(ctx context.Context) []string
}
