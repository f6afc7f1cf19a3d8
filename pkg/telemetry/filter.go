package telemetry

import (
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// The token pair and Authorization headers must never reach a telemetry
// backend. Every attribute this package records passes through a Filter
// first; components are not trusted to pre-scrub their own values.

// credentialPatterns match token material wherever it appears inside a
// string value: header lines, JSON bodies, bare JWTs.
var credentialPatterns = []string{
	`(?i)bearer\s+[a-z0-9\-_.~+/]+=*`,
	`(?i)authorization[\s:=]+\S+`,
	// three dot-separated base64url segments
	`\bey[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]*`,
	`(?i)(access|refresh)[\s_-]*token[\s:="]+[a-z0-9\-_.]{8,}`,
	`(?i)password[\s:="]+\S+`,
}

// redactedKeys are attribute keys whose whole value is replaced regardless
// of content.
var redactedKeys = []string{"authorization", "password", "access_token", "refresh_token"}

// FilterConfig tunes the sanitizer.
type FilterConfig struct {
	// Mask is the replacement text. Empty means "[redacted]".
	Mask string
	// Patterns adds regular expressions on top of the built-in credential
	// patterns.
	Patterns []string
	// Keys adds attribute keys whose values are dropped outright.
	Keys []string
}

// Filter sanitizes free text and attribute sets before export.
type Filter struct {
	mask    string
	exprs   []*regexp.Regexp
	dropped map[attribute.Key]struct{}
}

// NewFilter compiles the built-in and configured patterns. A pattern that
// does not compile fails construction; silently skipping one would leak.
func NewFilter(cfg FilterConfig) (*Filter, error) {
	f := &Filter{
		mask:    cfg.Mask,
		dropped: make(map[attribute.Key]struct{}),
	}
	if strings.TrimSpace(f.mask) == "" {
		f.mask = "[redacted]"
	}
	for _, key := range redactedKeys {
		f.dropped[attribute.Key(key)] = struct{}{}
	}
	for _, key := range cfg.Keys {
		if key = strings.TrimSpace(key); key != "" {
			f.dropped[attribute.Key(strings.ToLower(key))] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	for _, raw := range append(append([]string{}, credentialPatterns...), cfg.Patterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		expr, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("telemetry: compile filter %q: %w", raw, err)
		}
		f.exprs = append(f.exprs, expr)
	}
	return f, nil
}

// MaskText replaces every credential-shaped segment in value.
func (f *Filter) MaskText(value string) string {
	if f == nil || value == "" {
		return value
	}
	for _, expr := range f.exprs {
		value = expr.ReplaceAllString(value, f.mask)
	}
	return value
}

// MaskAttributes returns a sanitized copy of attrs. String values go
// through MaskText; values under a redacted key are replaced wholesale;
// non-string values pass through.
func (f *Filter) MaskAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	if f == nil || len(attrs) == 0 {
		return attrs
	}
	out := make([]attribute.KeyValue, len(attrs))
	for i, attr := range attrs {
		if _, drop := f.dropped[attribute.Key(strings.ToLower(string(attr.Key)))]; drop {
			out[i] = attribute.String(string(attr.Key), f.mask)
			continue
		}
		switch attr.Value.Type() {
		case attribute.STRING:
			out[i] = attribute.String(string(attr.Key), f.MaskText(attr.Value.AsString()))
		case attribute.STRINGSLICE:
			vals := attr.Value.AsStringSlice()
			for j := range vals {
				vals[j] = f.MaskText(vals[j])
			}
			out[i] = attribute.StringSlice(string(attr.Key), vals)
		default:
			out[i] = attr
		}
	}
	return out
}
