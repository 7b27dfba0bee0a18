// Package applier executes a Plan against a live backend with per-item
// isolation and metadata-coupled rollback, per spec.md §4.E.4-§4.E.7.
package applier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/planner"
	"github.com/kafkagov/controlplane/internal/store"
)

// TopicAdmin is the subset of internal/kafkaadmin.Client the topic applier
// depends on.
type TopicAdmin interface {
	DescribeTopics(ctx context.Context, names []string) (map[string]kafkaadmin.TopicDescription, error)
	CreateTopics(ctx context.Context, specs map[string]domain.TopicConfig) (map[string]error, error)
	DeleteTopics(ctx context.Context, names []string) (map[string]error, error)
	AlterTopicConfigs(ctx context.Context, configs map[string]map[string]string) (map[string]error, error)
	CreatePartitions(ctx context.Context, newCounts map[string]int) (map[string]error, error)
}

// TopicMetadataStore is the subset of internal/store.MetadataStore the topic
// applier depends on.
type TopicMetadataStore interface {
	SaveTopicMetadata(ctx context.Context, row store.TopicMetadataRow) error
	DeleteTopicMetadata(ctx context.Context, topicName string) error
}

// TopicApplier executes topic plans.
type TopicApplier struct {
	admin  TopicAdmin
	store  TopicMetadataStore
	audit  *audit.Service
	logger *slog.Logger
}

// NewTopicApplier constructs a TopicApplier. A nil logger defaults to
// slog.Default().
func NewTopicApplier(admin TopicAdmin, st TopicMetadataStore, auditSvc *audit.Service, logger *slog.Logger) *TopicApplier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicApplier{admin: admin, store: st, audit: auditSvc, logger: logger}
}

// Apply executes plan against the live cluster, per spec.md §4.E.4.
func (a *TopicApplier) Apply(ctx context.Context, batch domain.Batch[domain.TopicSpec], plan domain.Plan[domain.TopicConfig], actor string) (domain.ApplyResult, error) {
	if err := a.audit.Started(ctx, batch.ChangeID, "APPLY", batch.ChangeID, actor, ""); err != nil {
		return domain.ApplyResult{}, err
	}

	specByName := make(map[string]domain.TopicSpec, len(batch.Specs))
	for _, s := range batch.Specs {
		specByName[s.Name] = s
	}

	result := domain.ApplyResult{ChangeID: batch.ChangeID, Env: batch.Env}

	var creates, deletes, alters []domain.PlanItem[domain.TopicConfig]
	for _, item := range plan.Items {
		switch item.Action {
		case domain.PlanNone:
			result.Skipped = append(result.Skipped, item.Name)
		case domain.PlanCreate:
			creates = append(creates, item)
		case domain.PlanDelete:
			deletes = append(deletes, item)
		case domain.PlanAlter:
			alters = append(alters, item)
		}
	}

	if err := a.checkStale(ctx, alters); err != nil {
		_, auditErr := a.audit.Terminal(ctx, batch.ChangeID, "APPLY", actor, domain.AuditFailed,
			fmt.Sprintf("%s; re-run dry-run to refresh the plan", err.Error()), nil)
		if auditErr != nil {
			return domain.ApplyResult{}, auditErr
		}
		return domain.ApplyResult{}, err
	}

	a.applyCreates(ctx, batch.ChangeID, actor, creates, specByName, &result)
	a.applyDeletes(ctx, batch.ChangeID, actor, deletes, &result)
	a.applyAlters(ctx, batch.ChangeID, actor, alters, &result)

	attempted := len(creates) + len(deletes) + len(alters)
	status := overallStatus(attempted, len(result.Applied), len(result.Failed))

	auditID, err := a.audit.Terminal(ctx, batch.ChangeID, "APPLY", actor, status,
		fmt.Sprintf("applied=%d skipped=%d failed=%d", len(result.Applied), len(result.Skipped), len(result.Failed)),
		result.Summary())
	if err != nil {
		return domain.ApplyResult{}, err
	}
	result.AuditID = auditID
	return result, nil
}

// checkStale re-reads live state for every ALTER item and aborts the whole
// batch if the assumed partition count has drifted since plan time
// (spec.md §4.E.3).
func (a *TopicApplier) checkStale(ctx context.Context, alters []domain.PlanItem[domain.TopicConfig]) error {
	if len(alters) == 0 {
		return nil
	}
	names := make([]string, len(alters))
	for i, item := range alters {
		names[i] = item.Name
	}

	fresh, err := a.admin.DescribeTopics(ctx, names)
	if err != nil {
		return apperrors.Backend("kafkaadmin", err)
	}
	for _, item := range alters {
		desc, ok := fresh[item.Name]
		if !ok {
			return apperrors.Stale("topic %q no longer exists", item.Name)
		}
		if item.CurrentConfig != nil && desc.PartitionCount != item.CurrentConfig.Partitions {
			return apperrors.Stale("topic %q partition count changed since plan (%d observed, %d assumed)",
				item.Name, desc.PartitionCount, item.CurrentConfig.Partitions)
		}
	}
	return nil
}

func (a *TopicApplier) applyCreates(ctx context.Context, changeID, actor string, items []domain.PlanItem[domain.TopicConfig],
	specByName map[string]domain.TopicSpec, result *domain.ApplyResult) {
	if len(items) == 0 {
		return
	}

	specs := make(map[string]domain.TopicConfig, len(items))
	for _, item := range items {
		specs[item.Name] = *item.TargetConfig
	}

	resp, err := a.admin.CreateTopics(ctx, specs)
	if err != nil {
		for _, item := range items {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: friendlyError(item.Name, err), Action: domain.PlanCreate})
		}
		return
	}

	for _, item := range items {
		callErr := resp[item.Name]
		if callErr != nil {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: friendlyError(item.Name, callErr), Action: domain.PlanCreate})
			_ = a.audit.Item(ctx, changeID, "CREATE", item.Name, actor, "create failed: "+callErr.Error(), nil)
			continue
		}

		spec := specByName[item.Name]
		row := store.TopicMetadataRow{
			TopicName: item.Name, Owner: strings.Join(spec.Metadata.Owners, ","), Doc: spec.Metadata.Doc,
			Tags: spec.Metadata.Tags, Config: *item.TargetConfig, CreatedBy: actor,
		}
		if err := a.store.SaveTopicMetadata(ctx, row); err != nil {
			a.rollbackCreate(ctx, item.Name)
			metaErrMsg := fmt.Sprintf("메타데이터 저장 실패: %s", err.Error())
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: metaErrMsg, Action: domain.PlanCreate})
			_ = a.audit.Item(ctx, changeID, "CREATE", item.Name, actor, metaErrMsg, nil)
			continue
		}

		result.Applied = append(result.Applied, item.Name)
		_ = a.audit.Item(ctx, changeID, "CREATE", item.Name, actor, "created", nil)
	}
}

// rollbackCreate deletes a just-created topic after a metadata-write
// failure. Rollback failures are logged at CRITICAL, never re-raised
// (spec.md §4.E.4.b).
func (a *TopicApplier) rollbackCreate(ctx context.Context, name string) {
	resp, err := a.admin.DeleteTopics(ctx, []string{name})
	if err == nil {
		err = resp[name]
	}
	if err != nil {
		a.logger.Log(ctx, slog.LevelError+4, "topic create rollback failed; manual cleanup required",
			"topic", name, "error", apperrors.Rollback("delete_topic", err))
	}
}

func (a *TopicApplier) applyDeletes(ctx context.Context, changeID, actor string, items []domain.PlanItem[domain.TopicConfig], result *domain.ApplyResult) {
	if len(items) == 0 {
		return
	}
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}

	resp, err := a.admin.DeleteTopics(ctx, names)
	if err != nil {
		for _, item := range items {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: friendlyError(item.Name, err), Action: domain.PlanDelete})
		}
		return
	}

	for _, item := range items {
		if callErr := resp[item.Name]; callErr != nil {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: friendlyError(item.Name, callErr), Action: domain.PlanDelete})
			_ = a.audit.Item(ctx, changeID, "DELETE", item.Name, actor, "delete failed: "+callErr.Error(), nil)
			continue
		}
		if err := a.store.DeleteTopicMetadata(ctx, item.Name); err != nil {
			a.logger.ErrorContext(ctx, "topic metadata delete failed after successful topic delete", "topic", item.Name, "error", err)
		}
		result.Applied = append(result.Applied, item.Name)
		_ = a.audit.Item(ctx, changeID, "DELETE", item.Name, actor, "deleted", nil)
	}
}

func (a *TopicApplier) applyAlters(ctx context.Context, changeID, actor string, items []domain.PlanItem[domain.TopicConfig], result *domain.ApplyResult) {
	if len(items) == 0 {
		return
	}

	partitionIncreases := make(map[string]int)
	for _, item := range items {
		if item.CurrentConfig == nil || item.TargetConfig == nil {
			continue
		}
		if err := planner.ValidatePartitionChange(item.CurrentConfig.Partitions, item.TargetConfig.Partitions); err != nil {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: err.Error(), Action: domain.PlanAlter})
			continue
		}
		if item.TargetConfig.Partitions > item.CurrentConfig.Partitions {
			partitionIncreases[item.Name] = item.TargetConfig.Partitions
		}
	}
	if len(partitionIncreases) > 0 {
		resp, err := a.admin.CreatePartitions(ctx, partitionIncreases)
		if err != nil {
			for name := range partitionIncreases {
				result.Failed = append(result.Failed, domain.FailedItem{Name: name, Error: friendlyError(name, err), Action: domain.PlanAlter})
			}
		} else {
			for name, callErr := range resp {
				if callErr != nil {
					result.Failed = append(result.Failed, domain.FailedItem{Name: name, Error: friendlyError(name, callErr), Action: domain.PlanAlter})
					_ = a.audit.Item(ctx, changeID, "ALTER_PARTITIONS", name, actor, "partition increase failed: "+callErr.Error(), nil)
				} else {
					_ = a.audit.Item(ctx, changeID, "ALTER_PARTITIONS", name, actor, "partitions increased", nil)
				}
			}
		}
	}

	configs := make(map[string]map[string]string, len(items))
	for _, item := range items {
		if item.TargetConfig == nil {
			continue
		}
		configs[item.Name] = item.TargetConfig.ToKafkaConfig()
	}
	resp, err := a.admin.AlterTopicConfigs(ctx, configs)
	if err != nil {
		for _, item := range items {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: friendlyError(item.Name, err), Action: domain.PlanAlter})
		}
		return
	}
	for _, item := range items {
		if callErr := resp[item.Name]; callErr != nil {
			result.Failed = append(result.Failed, domain.FailedItem{Name: item.Name, Error: friendlyError(item.Name, callErr), Action: domain.PlanAlter})
			_ = a.audit.Item(ctx, changeID, "ALTER_CONFIG", item.Name, actor, "config alter failed: "+callErr.Error(), nil)
			continue
		}
		result.Applied = append(result.Applied, item.Name)
		_ = a.audit.Item(ctx, changeID, "ALTER_CONFIG", item.Name, actor, "config altered", nil)
	}
}

// overallStatus computes the apply's terminal status (spec.md §4.E.4.5).
func overallStatus(attempted, applied, failed int) domain.AuditStatus {
	switch {
	case failed == 0:
		return domain.AuditCompleted
	case applied == 0:
		return domain.AuditFailed
	default:
		return domain.AuditPartiallyCompleted
	}
}

// friendlyError translates a known Kafka admin error into a user-facing
// message, mirroring the original's error_msg substitution
// (batch_apply.py); unrecognized errors pass through verbatim.
func friendlyError(name string, err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "TOPIC_ALREADY_EXISTS") || strings.Contains(msg, "already exists"):
		return fmt.Sprintf("토픽 '%s'이(가) 이미 존재합니다. 다른 이름을 사용해주세요.", name)
	case strings.Contains(msg, "UNKNOWN_TOPIC_OR_PARTITION"):
		return "topic does not exist"
	default:
		return msg
	}
}
