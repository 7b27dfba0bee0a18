// Package store defines the transactional MetadataStore interface spec.md
// §1 treats as an external collaborator, plus a pgx-backed Postgres
// implementation and an in-memory fake for tests.
package store

import (
	"context"
	"time"

	"github.com/kafkagov/controlplane/internal/domain"
)

// TopicMetadataRow is the persisted topic_metadata table shape (spec.md §6).
type TopicMetadataRow struct {
	TopicName string
	Owner     string
	Doc       string
	Tags      []string
	Config    domain.TopicConfig
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MetadataStore is the transactional persistence boundary for every
// durable entity in this system: policies, endpoints, topic/schema
// metadata, plans, apply results, audit records, schema artifacts, and
// metrics snapshots. It also implements internal/policy.Store and
// internal/conn.EndpointStore so both can be constructed directly from one
// MetadataStore without adapter shims.
type MetadataStore interface {
	// Policies (spec.md §3 lifecycle: DRAFT -> ACTIVE -> ARCHIVED).
	CreatePolicy(ctx context.Context, p domain.Policy) error
	ActivePolicy(ctx context.Context, policyType domain.PolicyType, tier string) (*domain.Policy, error)
	GetPolicy(ctx context.Context, policyID string, version int) (*domain.Policy, error)
	ListPolicyVersions(ctx context.Context, policyID string) ([]domain.Policy, error)
	ActivatePolicy(ctx context.Context, policyID string, version int) error
	ArchivePolicy(ctx context.Context, policyID string, version int) error
	DeletePolicy(ctx context.Context, policyID string, version int) error

	// Endpoints.
	GetClusterEndpoint(ctx context.Context, id string) (*domain.ClusterEndpoint, error)
	GetRegistryEndpoint(ctx context.Context, id string) (*domain.RegistryEndpoint, error)
	GetStorageEndpoint(ctx context.Context, id string) (*domain.StorageEndpoint, error)
	UpsertClusterEndpoint(ctx context.Context, ep domain.ClusterEndpoint) error
	UpsertRegistryEndpoint(ctx context.Context, ep domain.RegistryEndpoint) error
	UpsertStorageEndpoint(ctx context.Context, ep domain.StorageEndpoint) error

	// Topic metadata.
	SaveTopicMetadata(ctx context.Context, row TopicMetadataRow) error
	DeleteTopicMetadata(ctx context.Context, topicName string) error
	GetTopicMetadata(ctx context.Context, topicName string) (*TopicMetadataRow, error)
	ListTopicMetadata(ctx context.Context) ([]TopicMetadataRow, error)

	// Schema artifacts.
	SaveSchemaArtifact(ctx context.Context, a domain.SchemaArtifact) error
	DeleteSchemaArtifact(ctx context.Context, subject string) error
	CountSchemaArtifactVersions(ctx context.Context, subject string) (int, error)

	// Audit.
	WriteAudit(ctx context.Context, rec domain.AuditRecord) error
	ListAudit(ctx context.Context, changeID string) ([]domain.AuditRecord, error)

	// Metrics snapshots (L3).
	SaveMetricsSnapshot(ctx context.Context, snap domain.MetricsSnapshot) error
	GetLatestMetricsSnapshot(ctx context.Context, clusterID string) (*domain.MetricsSnapshot, error)
	DeleteMetricsSnapshotsOlderThan(ctx context.Context, before time.Time) (int, error)
	ListActiveClusterIDs(ctx context.Context) ([]string, error)
}
