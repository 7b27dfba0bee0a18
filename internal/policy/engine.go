package policy

import (
	"context"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

// Engine evaluates the naming/guardrail/metadata/compatibility rule
// families against resolved policy rows. FailClosed selects the behavior
// for a malformed policy row (DESIGN.md Open Question #1): false (default)
// surfaces a synthetic CRITICAL violation and continues; true instead
// returns an error from Validate*Batch.
type Engine struct {
	Store      Store
	FailClosed bool
}

// NewEngine constructs a policy Engine.
func NewEngine(store Store, failClosed bool) *Engine {
	return &Engine{Store: store, FailClosed: failClosed}
}

func (e *Engine) resolveNaming(ctx context.Context, env domain.Environment) (NamingConfig, *domain.Violation, error) {
	p, err := ResolveActive(ctx, e.Store, domain.PolicyTypeNaming, env)
	if err != nil {
		return NamingConfig{}, nil, err
	}
	if p == nil {
		return NamingConfig{}, nil, nil // rule family skipped, no policy configured
	}
	cfg, err := ParseNamingConfig(p.Content)
	if err != nil {
		if e.FailClosed {
			return NamingConfig{}, nil, policyConfigErr(p.PolicyID, err)
		}
		v := violation(p.PolicyID, "policy.config_error", domain.SeverityCritical,
			"naming policy "+p.PolicyID+" is malformed: "+err.Error())
		return NamingConfig{}, &v, nil
	}
	return cfg, nil, nil
}

func (e *Engine) resolveGuardrail(ctx context.Context, env domain.Environment) (GuardrailConfig, *domain.Violation, error) {
	p, err := ResolveActive(ctx, e.Store, domain.PolicyTypeGuardrail, env)
	if err != nil {
		return GuardrailConfig{}, nil, err
	}
	if p == nil {
		return defaultGuardrailConfig(), nil, nil
	}
	cfg, err := ParseGuardrailConfig(p.Content)
	if err != nil {
		if e.FailClosed {
			return GuardrailConfig{}, nil, policyConfigErr(p.PolicyID, err)
		}
		v := violation(p.PolicyID, "policy.config_error", domain.SeverityCritical,
			"guardrail policy "+p.PolicyID+" is malformed: "+err.Error())
		return defaultGuardrailConfig(), &v, nil
	}
	return cfg, nil, nil
}

func policyConfigErr(policyID string, cause error) error {
	return apperrors.PolicyConfig("policy %s: %v", policyID, cause)
}

// ValidateTopicBatch evaluates every spec in a topic batch and returns an
// order-stable violation list (spec.md §4.B "Output").
func (e *Engine) ValidateTopicBatch(ctx context.Context, specs []domain.TopicSpec) ([]domain.Violation, error) {
	var out []domain.Violation

	namingCfg, namingViolation, err := e.resolveNaming(ctx, envOfFirst(specs))
	if err != nil {
		return nil, err
	}
	guardrailCfg, guardrailViolation, err := e.resolveGuardrail(ctx, envOfFirst(specs))
	if err != nil {
		return nil, err
	}
	if namingViolation != nil {
		out = append(out, *namingViolation)
	}
	if guardrailViolation != nil {
		out = append(out, *guardrailViolation)
	}

	metaCfg := defaultMetadataConfig()

	for _, spec := range specs {
		env := spec.SpecEnvironment()
		out = append(out, evaluateNaming(spec.Name, env, namingCfg, topicNamingRuleIDs)...)

		if spec.Action == domain.ActionDelete {
			continue
		}
		if spec.Config != nil {
			out = append(out, evaluateGuardrails(spec.Name, env, *spec.Config, guardrailCfg)...)
		}
		out = append(out, evaluateTopicMetadata(spec.Name, spec.Metadata, metaCfg)...)
	}

	sortViolations(out)
	return out, nil
}

// ValidateSchemaBatch evaluates every spec in a schema batch.
func (e *Engine) ValidateSchemaBatch(ctx context.Context, specs []domain.SchemaSpec) ([]domain.Violation, error) {
	var out []domain.Violation

	namingCfg, namingViolation, err := e.resolveNaming(ctx, envOfFirstSchema(specs))
	if err != nil {
		return nil, err
	}
	if namingViolation != nil {
		out = append(out, *namingViolation)
	}

	metaCfg := defaultMetadataConfig()

	for _, spec := range specs {
		env := spec.SpecEnvironment()
		out = append(out, evaluateNaming(spec.Subject, env, namingCfg, schemaNamingRuleIDs)...)
		out = append(out, evaluateSchemaMetadata(spec.Subject, spec.Metadata, metaCfg)...)
		out = append(out, evaluateCompatibilityMode(spec.Subject, env, spec.CompatibilityMode)...)
	}

	sortViolations(out)
	return out, nil
}

func envOfFirst(specs []domain.TopicSpec) domain.Environment {
	if len(specs) == 0 {
		return domain.EnvUnknown
	}
	return specs[0].SpecEnvironment()
}

func envOfFirstSchema(specs []domain.SchemaSpec) domain.Environment {
	if len(specs) == 0 {
		return domain.EnvUnknown
	}
	return specs[0].SpecEnvironment()
}
