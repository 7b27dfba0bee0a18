// Package policy implements the stateless evaluation pipeline: naming,
// guardrail, metadata, and schema-compatibility rule families, resolved
// against versioned, environment-scoped Policy rows.
package policy

import (
	"encoding/json"
	"regexp"
	"sort"

	"github.com/kafkagov/controlplane/internal/domain"
)

// defaultNamingPattern matches the source's topic/subject naming policy:
// an environment prefix followed by lowercase dotted/hyphenated segments,
// optionally suffixed with -key/-value for schema subjects.
var defaultNamingPattern = regexp.MustCompile(`^((dev|stg|prod)\.)[a-z0-9._-]+(-key|-value)?$`)

// forbiddenProdPrefixes are name prefixes (after the env segment) that are
// never allowed in PROD, regardless of pattern match.
var forbiddenProdPrefixes = []string{"tmp.", "test."}

// reservedNames are Kafka/Connect/Schema-Registry internal names that must
// never be targeted by a batch, in any environment.
var reservedNames = map[string]struct{}{
	"__consumer_offsets": {},
	"__transaction_state": {},
	"_schemas":            {},
	"connect-configs":     {},
	"connect-offsets":     {},
	"connect-status":      {},
}

// NamingConfig is the JSON content of a NAMING Policy row.
type NamingConfig struct {
	Pattern             string   `json:"pattern"`
	ForbiddenProdPrefixes []string `json:"forbidden_prod_prefixes"`
}

// ParseNamingConfig decodes policy content, defaulting to the built-in
// pattern/prefixes when fields are omitted.
func ParseNamingConfig(content json.RawMessage) (NamingConfig, error) {
	cfg := NamingConfig{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &cfg); err != nil {
			return NamingConfig{}, err
		}
	}
	return cfg, nil
}

func (c NamingConfig) pattern() *regexp.Regexp {
	if c.Pattern == "" {
		return defaultNamingPattern
	}
	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return defaultNamingPattern
	}
	return re
}

func (c NamingConfig) forbiddenPrefixes() []string {
	if len(c.ForbiddenProdPrefixes) == 0 {
		return forbiddenProdPrefixes
	}
	return c.ForbiddenProdPrefixes
}

// ruleIDPattern and friends differ between the topic and schema namespaces
// to match the original's two independently-prefixed rule-id sets.
type namingRuleIDs struct {
	pattern         string
	forbiddenPrefix string
	reservedWord    string
}

var topicNamingRuleIDs = namingRuleIDs{
	pattern:         "naming.pattern",
	forbiddenPrefix: "naming.forbidden_prefix",
	reservedWord:    "naming.reserved_word",
}

var schemaNamingRuleIDs = namingRuleIDs{
	pattern:         "schema.naming.pattern",
	forbiddenPrefix: "schema.naming.forbidden_prefix",
	reservedWord:    "schema.naming.reserved_word",
}

// evaluateNaming applies the pattern/forbidden-prefix/reserved-word checks
// to one resource name. forbidden-prefix is ERROR in PROD, WARNING
// elsewhere (topics only — matching the source's severity-by-env rule);
// reserved-word is always an ERROR regardless of environment.
func evaluateNaming(name string, env domain.Environment, cfg NamingConfig, ids namingRuleIDs) []domain.Violation {
	var out []domain.Violation

	if !cfg.pattern().MatchString(name) {
		out = append(out, domain.Violation{
			Resource: name,
			RuleID:   ids.pattern,
			Message:  "resource name does not match the required naming pattern",
			Severity: domain.SeverityError,
		})
	}

	for _, prefix := range cfg.forbiddenPrefixes() {
		if hasPrefixAfterEnv(name, prefix) {
			severity := domain.SeverityWarning
			if env == domain.EnvProd {
				severity = domain.SeverityError
			}
			out = append(out, domain.Violation{
				Resource: name,
				RuleID:   ids.forbiddenPrefix,
				Message:  "resource name uses forbidden prefix " + prefix,
				Severity: severity,
			})
		}
	}

	if _, reserved := reservedNames[name]; reserved {
		out = append(out, domain.Violation{
			Resource: name,
			RuleID:   ids.reservedWord,
			Message:  "resource name collides with a reserved system name",
			Severity: domain.SeverityError,
		})
	}

	return out
}

// hasPrefixAfterEnv reports whether name, with its env segment stripped,
// starts with prefix — e.g. "prod.tmp.scratch" has forbidden prefix "tmp.".
func hasPrefixAfterEnv(name, prefix string) bool {
	segment, rest, found := cutFirstDot(name)
	if !found {
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}
	_ = segment
	return len(rest) >= len(prefix) && rest[:len(prefix)] == prefix
}

func cutFirstDot(s string) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// sortViolations orders violations by (resource, rule_id) for deterministic
// output, per spec.md §4.B.
func sortViolations(vs []domain.Violation) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Resource != vs[j].Resource {
			return vs[i].Resource < vs[j].Resource
		}
		return vs[i].RuleID < vs[j].RuleID
	})
}
