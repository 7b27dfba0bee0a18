package planner

import (
	"context"

	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/schemaregistry"
)

// CompatibilityChecker is the subset of internal/schemaregistry.Client the
// schema planner depends on, kept narrow for testability.
type CompatibilityChecker interface {
	CheckCompatibility(ctx context.Context, spec domain.SchemaSpec, schemaText string) domain.CompatibilityReport
}

// PlanSchemaBatch constructs a Plan from a schema batch, plan-time subject
// snapshot, a compatibility checker, and the policy engine's violations
// (spec.md §4.E.1, §4.E.3: schemas additionally call check_compatibility per
// subject).
func PlanSchemaBatch(
	ctx context.Context,
	batch domain.Batch[domain.SchemaSpec],
	current map[string]schemaregistry.SubjectDescription,
	checker CompatibilityChecker,
	policyViolations []domain.Violation,
) (domain.Plan[domain.SchemaSpec], error) {
	plan := domain.Plan[domain.SchemaSpec]{
		ChangeID:   batch.ChangeID,
		Env:        batch.Env,
		Violations: append([]domain.Violation{}, policyViolations...),
	}

	for _, spec := range batch.Specs {
		desc, exists := current[spec.Subject]

		switch {
		case spec.Action == domain.ActionDelete && !exists:
			plan.Items = append(plan.Items, domain.PlanItem[domain.SchemaSpec]{Name: spec.Subject, Action: domain.PlanNone})
			continue

		case spec.Action == domain.ActionDelete && exists:
			plan.Items = append(plan.Items, domain.PlanItem[domain.SchemaSpec]{
				Name: spec.Subject, Action: domain.PlanDelete,
				Diff: map[string]string{"status": "exists→deleted"},
			})
			continue

		case spec.Action == domain.ActionUpdate && !exists:
			plan.Violations = append(plan.Violations, domain.Violation{
				Resource: spec.Subject, RuleID: "plan.update_target_missing", Severity: domain.SeverityError,
				Message: "UPDATE target does not exist; use CREATE or UPSERT",
			})
			plan.Items = append(plan.Items, domain.PlanItem[domain.SchemaSpec]{Name: spec.Subject, Action: domain.PlanNone})
			continue
		}

		schemaText, err := spec.ResolvedText()
		if err != nil {
			return domain.Plan[domain.SchemaSpec]{}, err
		}

		target := spec
		item := domain.PlanItem[domain.SchemaSpec]{Name: spec.Subject, TargetConfig: &target}

		if !exists {
			item.Action = domain.PlanCreate
			item.Diff = map[string]string{"status": "new→created"}
		} else {
			currentMap := map[string]string{
				"schema_type": string(desc.SchemaType),
				"schema_hash": desc.Hash,
			}
			targetMap := map[string]string{
				"schema_type": string(spec.SchemaType),
				"schema_hash": schemaHash16(schemaText),
			}
			diff := configDiff(currentMap, targetMap)
			if len(diff) == 0 {
				item.Action = domain.PlanNone
			} else {
				item.Action = domain.PlanAlter
				item.Diff = diff
				item.UnifiedDiff = unifiedConfigDiff(spec.Subject, currentMap, targetMap)
			}
		}

		report := checker.CheckCompatibility(ctx, spec, schemaText)
		plan.CompatibilityReports = append(plan.CompatibilityReports, report)

		plan.Items = append(plan.Items, item)
	}

	return plan, nil
}
