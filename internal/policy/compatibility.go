package policy

import "github.com/kafkagov/controlplane/internal/domain"

// allowedCompatibilityModes is the per-environment whitelist from
// spec.md §4.B.
var allowedCompatibilityModes = map[domain.Environment]map[domain.CompatibilityMode]struct{}{
	domain.EnvProd: {
		domain.CompatFull:           {},
		domain.CompatFullTransitive: {},
	},
	domain.EnvStg: {
		domain.CompatBackward:           {},
		domain.CompatBackwardTransitive: {},
		domain.CompatFull:               {},
		domain.CompatFullTransitive:     {},
	},
	domain.EnvDev: {
		domain.CompatBackward:           {},
		domain.CompatBackwardTransitive: {},
		domain.CompatNone:               {},
	},
}

// evaluateCompatibilityMode checks a schema spec's declared compatibility
// mode against the environment whitelist. EnvUnknown has no whitelist entry
// and is never restricted here — it resolves policy via the "total" tier,
// which cannot express a mode whitelist at all (see DESIGN.md Open
// Question #3).
func evaluateCompatibilityMode(subject string, env domain.Environment, mode domain.CompatibilityMode) []domain.Violation {
	allowed, ok := allowedCompatibilityModes[env]
	if !ok {
		return nil
	}
	if _, ok := allowed[mode]; ok {
		return nil
	}
	return []domain.Violation{violation(subject, "schema.compatibility.mode", domain.SeverityError,
		"compatibility mode "+string(mode)+" is not permitted in "+string(env))}
}
