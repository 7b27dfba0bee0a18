package planner

import (
	"strconv"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
)

// PlanTopicBatch constructs a Plan[domain.TopicConfig] from a topic batch,
// plan-time describe snapshot, cluster-wide config defaults, and the
// policy engine's violations (spec.md §4.E.1).
func PlanTopicBatch(
	batch domain.Batch[domain.TopicSpec],
	current map[string]kafkaadmin.TopicDescription,
	defaults domain.TopicConfig,
	policyViolations []domain.Violation,
) (domain.Plan[domain.TopicConfig], error) {
	plan := domain.Plan[domain.TopicConfig]{
		ChangeID:   batch.ChangeID,
		Env:        batch.Env,
		Violations: append([]domain.Violation{}, policyViolations...),
	}

	for _, spec := range batch.Specs {
		desc, exists := current[spec.Name]

		switch {
		case spec.Action == domain.ActionDelete && !exists:
			plan.Items = append(plan.Items, domain.PlanItem[domain.TopicConfig]{Name: spec.Name, Action: domain.PlanNone})

		case spec.Action == domain.ActionDelete && exists:
			plan.Items = append(plan.Items, domain.PlanItem[domain.TopicConfig]{
				Name: spec.Name, Action: domain.PlanDelete,
				Diff: map[string]string{"status": "exists→deleted"},
			})

		case (spec.Action == domain.ActionCreate || spec.Action == domain.ActionUpsert) && !exists:
			target := mergeTopicConfig(defaults, *spec.Config)
			plan.Items = append(plan.Items, domain.PlanItem[domain.TopicConfig]{
				Name: spec.Name, Action: domain.PlanCreate,
				Diff:         map[string]string{"status": "new→created"},
				TargetConfig: &target,
			})

		case spec.Action == domain.ActionUpdate && !exists:
			plan.Violations = append(plan.Violations, domain.Violation{
				Resource: spec.Name, RuleID: "plan.update_target_missing", Severity: domain.SeverityError,
				Message: "UPDATE target does not exist; use CREATE or UPSERT",
			})
			plan.Items = append(plan.Items, domain.PlanItem[domain.TopicConfig]{Name: spec.Name, Action: domain.PlanNone})

		default: // CREATE/UPDATE/UPSERT + present
			target := mergeTopicConfig(defaults, *spec.Config)

			currentMap := topicConfigMap(desc.PartitionCount, desc.ReplicationFactor, desc.Config)
			targetMap := topicConfigMap(target.Partitions, target.ReplicationFactor, target.ToKafkaConfig())
			diff := configDiff(currentMap, targetMap)

			item := domain.PlanItem[domain.TopicConfig]{Name: spec.Name, TargetConfig: &target}
			currentCfg := domain.TopicConfig{Partitions: desc.PartitionCount, ReplicationFactor: desc.ReplicationFactor}
			item.CurrentConfig = &currentCfg

			if len(diff) == 0 {
				item.Action = domain.PlanNone
			} else {
				item.Action = domain.PlanAlter
				item.Diff = diff
				item.UnifiedDiff = unifiedConfigDiff(spec.Name, currentMap, targetMap)
				plan.Violations = append(plan.Violations,
					legalityViolations(spec.Name, desc.PartitionCount, target.Partitions,
						desc.ReplicationFactor, target.ReplicationFactor)...)
			}
			plan.Items = append(plan.Items, item)
		}
	}

	return plan, nil
}

func topicConfigMap(partitions, replicationFactor int, kafkaConfig map[string]string) map[string]string {
	m := make(map[string]string, len(kafkaConfig)+2)
	for k, v := range kafkaConfig {
		m[k] = v
	}
	m["partitions"] = strconv.Itoa(partitions)
	m["replication.factor"] = strconv.Itoa(replicationFactor)
	return m
}

// ValidatePartitionChange re-checks the partition-increase-only rule against
// fresh live state at apply time (DESIGN.md Open Question #2): the planner
// flags it as a blocking violation, and the applier independently refuses to
// submit a partition decrease even if a stale plan slipped through.
func ValidatePartitionChange(currentPartitions, targetPartitions int) error {
	if targetPartitions < currentPartitions {
		return apperrors.Invariant("partition count may only increase: %d→%d", currentPartitions, targetPartitions)
	}
	return nil
}
