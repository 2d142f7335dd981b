// Package featureflags evaluates runtime toggles supplied through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Flags consulted by the service layer.
const (
	// FeedCache caches assembled feed pages. Defaults to on.
	FeedCache = "feed_cache"
	// PrivacyCache caches privacy flags and follow edges. Defaults to on.
	PrivacyCache = "privacy_cache"
)

// rule is one parsed flag value. An unparseable value is kept with
// percent 0 so it reports off but still shows up in Raw.
type rule struct {
	raw     string
	percent int // 0 off, 100 on, anything between is a per-user rollout
}

func parseRule(value string) rule {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}
	case "off", "false", "0":
		return rule{raw: value}
	}
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		if n, err := strconv.Atoi(pct); err == nil {
			return rule{raw: value, percent: min(max(n, 0), 100)}
		}
	}
	return rule{raw: value}
}

// Manager evaluates flags parsed from a comma-separated key=value list such
// as "feed_cache=off,privacy_cache=25%". Values are on/true/1, off/false/0 or
// N% for a deterministic rollout by user id.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		rules[key] = parseRule(value)
	}
	return &Manager{rules: rules}
}

// Enabled reports whether name is on for userID. Unknown flags are off and
// partial rollouts never include the anonymous user 0.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch r.percent {
	case 0:
		return false
	case 100:
		return true
	}
	return userID != 0 && rolloutBucket(name, userID) < r.percent
}

// EnabledOr is Enabled, except that an unconfigured flag evaluates to fallback.
func (m *Manager) EnabledOr(name string, userID uint, fallback bool) bool {
	if m == nil {
		return fallback
	}
	if _, ok := m.rules[normalize(name)]; !ok {
		return fallback
	}
	return m.Enabled(name, userID)
}

// Gate binds a flag to a per-user predicate.
func (m *Manager) Gate(name string, fallback bool) func(userID uint) bool {
	return func(userID uint) bool {
		return m.EnabledOr(name, userID, fallback)
	}
}

// Raw returns the configured values as written.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return lo.MapValues(m.rules, func(r rule, _ string) string { return r.raw })
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return lo.MapValues(m.rules, func(_ rule, name string) bool { return m.Enabled(name, userID) })
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
