package httpapi

import (
	"strings"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

// Wire DTOs carry json tags for the snake_case wire shapes spec.md §6
// documents; domain types stay tag-free since they are also the pgx JSON
// column encoding (internal/store). Conversion happens only at this
// boundary, and only here is user input validated into invariant-checked
// domain values.

func parseEnvironment(s string) (domain.Environment, error) {
	env := domain.Environment(strings.ToUpper(s))
	if !env.Valid() {
		return "", apperrors.Invariant("invalid environment %q", s)
	}
	return env, nil
}

type topicConfigDTO struct {
	Partitions        int     `json:"partitions"`
	ReplicationFactor int     `json:"replication_factor"`
	CleanupPolicy     string  `json:"cleanup_policy"`
	RetentionMs       *int64  `json:"retention_ms"`
	MinInsyncReplicas *int    `json:"min_insync_replicas"`
	MaxMessageBytes   *int64  `json:"max_message_bytes"`
	SegmentMs         *int64  `json:"segment_ms"`
	CompressionType   string  `json:"compression_type"`
}

func (d topicConfigDTO) toDomain() (domain.TopicConfig, error) {
	return domain.NewTopicConfig(domain.TopicConfig{
		Partitions:        d.Partitions,
		ReplicationFactor: d.ReplicationFactor,
		CleanupPolicy:     d.CleanupPolicy,
		RetentionMs:       d.RetentionMs,
		MinInsyncReplicas: d.MinInsyncReplicas,
		MaxMessageBytes:   d.MaxMessageBytes,
		SegmentMs:         d.SegmentMs,
		CompressionType:   d.CompressionType,
	})
}

type topicMetadataDTO struct {
	Owners []string `json:"owners"`
	Doc    string   `json:"doc"`
	Tags   []string `json:"tags"`
}

func (d topicMetadataDTO) toDomain() domain.TopicMetadata {
	return domain.TopicMetadata{Owners: d.Owners, Doc: d.Doc, Tags: d.Tags}
}

type topicSpecDTO struct {
	Name     string            `json:"name"`
	Action   string            `json:"action"`
	Config   *topicConfigDTO   `json:"config"`
	Metadata *topicMetadataDTO `json:"metadata"`
}

func (d topicSpecDTO) toDomain() (domain.TopicSpec, error) {
	spec := domain.TopicSpec{Name: d.Name, Action: domain.Action(strings.ToUpper(d.Action))}
	if d.Config != nil {
		cfg, err := d.Config.toDomain()
		if err != nil {
			return domain.TopicSpec{}, err
		}
		spec.Config = &cfg
	}
	if d.Metadata != nil {
		meta := d.Metadata.toDomain()
		spec.Metadata = &meta
	}
	return domain.NewTopicSpec(spec)
}

type topicBatchDTO struct {
	Kind     string         `json:"kind"`
	ChangeID string         `json:"change_id"`
	Env      string         `json:"env"`
	Items    []topicSpecDTO `json:"items"`
}

func (d topicBatchDTO) toDomain() (domain.Batch[domain.TopicSpec], error) {
	env, err := parseEnvironment(d.Env)
	if err != nil {
		return domain.Batch[domain.TopicSpec]{}, err
	}
	specs := make([]domain.TopicSpec, 0, len(d.Items))
	for _, item := range d.Items {
		spec, err := item.toDomain()
		if err != nil {
			return domain.Batch[domain.TopicSpec]{}, err
		}
		specs = append(specs, spec)
	}
	return domain.NewBatch(d.ChangeID, env, specs)
}

type schemaReferenceDTO struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Version int    `json:"version"`
}

type schemaMetadataDTO struct {
	Owners []string `json:"owners"`
	Doc    string   `json:"doc"`
	Tags   []string `json:"tags"`
}

type schemaSpecDTO struct {
	Subject           string               `json:"subject"`
	Action            string               `json:"action"`
	SchemaType        string               `json:"schema_type"`
	Compatibility     string               `json:"compatibility"`
	Schema            string               `json:"schema"`
	Source            string               `json:"source"`
	References        []schemaReferenceDTO `json:"references"`
	Metadata          *schemaMetadataDTO   `json:"metadata"`
	DryRunOnly        bool                 `json:"dry_run_only"`
}

func (d schemaSpecDTO) toDomain() (domain.SchemaSpec, error) {
	spec := domain.SchemaSpec{
		Subject:           d.Subject,
		Action:            domain.Action(strings.ToUpper(d.Action)),
		SchemaType:        domain.SchemaType(strings.ToUpper(d.SchemaType)),
		CompatibilityMode: domain.CompatibilityMode(strings.ToUpper(d.Compatibility)),
		SchemaLiteral:     d.Schema,
		DryRunOnly:        d.DryRunOnly,
	}
	if d.Source != "" {
		src, err := domain.NewSchemaSource(domain.SchemaSource{Kind: domain.SourceInline, Content: d.Source})
		if err != nil {
			return domain.SchemaSpec{}, err
		}
		spec.SchemaSource = &src
	}
	for _, ref := range d.References {
		spec.References = append(spec.References, domain.SchemaReference{
			Name: ref.Name, Subject: ref.Subject, Version: ref.Version,
		})
	}
	if d.Metadata != nil {
		spec.Metadata = &domain.SchemaMetadata{Owners: d.Metadata.Owners, Doc: d.Metadata.Doc, Tags: d.Metadata.Tags}
	}
	return domain.NewSchemaSpec(spec)
}

type schemaBatchDTO struct {
	Kind     string          `json:"kind"`
	ChangeID string          `json:"change_id"`
	Env      string          `json:"env"`
	Items    []schemaSpecDTO `json:"items"`
}

func (d schemaBatchDTO) toDomain() (domain.Batch[domain.SchemaSpec], error) {
	env, err := parseEnvironment(d.Env)
	if err != nil {
		return domain.Batch[domain.SchemaSpec]{}, err
	}
	specs := make([]domain.SchemaSpec, 0, len(d.Items))
	for _, item := range d.Items {
		spec, err := item.toDomain()
		if err != nil {
			return domain.Batch[domain.SchemaSpec]{}, err
		}
		specs = append(specs, spec)
	}
	return domain.NewBatch(d.ChangeID, env, specs)
}
