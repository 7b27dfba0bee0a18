package policy

import (
	"github.com/kafkagov/controlplane/internal/domain"
)

// MetadataConfig is the JSON content governing the metadata rule family.
// There is no dedicated METADATA PolicyType (spec.md §3 names only NAMING
// and GUARDRAIL as persisted types); metadata requirements are intrinsic to
// the engine, which always evaluates with defaultMetadataConfig (owner
// required); no policy row's content is read for this rule family.
type MetadataConfig struct {
	RequireOwner bool `json:"require_owner"`
}

func defaultMetadataConfig() MetadataConfig {
	return MetadataConfig{RequireOwner: true}
}

// evaluateTopicMetadata checks the owner-required rule against topic
// metadata.
func evaluateTopicMetadata(name string, meta *domain.TopicMetadata, cfg MetadataConfig) []domain.Violation {
	if !cfg.RequireOwner {
		return nil
	}
	if meta == nil || len(meta.Owners) == 0 {
		return []domain.Violation{violation(name, "metadata.owner_required", domain.SeverityError,
			"topic metadata must declare at least one owner")}
	}
	return nil
}

// evaluateSchemaMetadata is the schema-subject equivalent.
func evaluateSchemaMetadata(subject string, meta *domain.SchemaMetadata, cfg MetadataConfig) []domain.Violation {
	if !cfg.RequireOwner {
		return nil
	}
	if meta == nil || len(meta.Owners) == 0 {
		return []domain.Violation{violation(subject, "schema.metadata.owner", domain.SeverityError,
			"schema metadata must declare at least one owner")}
	}
	return nil
}
