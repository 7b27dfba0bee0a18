package policy

import (
	"encoding/json"
	"strconv"

	"github.com/kafkagov/controlplane/internal/domain"
)

const (
	dayMs = int64(24 * 60 * 60 * 1000)
)

// GuardrailConfig is the JSON content of a GUARDRAIL Policy row. Zero values
// fall back to the built-in thresholds from spec.md §4.B.
type GuardrailConfig struct {
	ProdMinReplicationFactor int   `json:"prod_min_replication_factor"`
	ProdMinInsyncReplicas    int   `json:"prod_min_insync_replicas"`
	ProdMinRetentionMs       int64 `json:"prod_min_retention_ms"`
	ProdMaxPartitions        int   `json:"prod_max_partitions"`
	StgMinReplicationFactor  int   `json:"stg_min_replication_factor"`
	StgMaxPartitions         int   `json:"stg_max_partitions"`
	DevMaxRetentionMs        int64 `json:"dev_max_retention_ms"`
	DevMaxPartitions         int   `json:"dev_max_partitions"`
}

func defaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		ProdMinReplicationFactor: 3,
		ProdMinInsyncReplicas:    2,
		ProdMinRetentionMs:       7 * dayMs,
		ProdMaxPartitions:        100,
		StgMinReplicationFactor:  2,
		StgMaxPartitions:         50,
		DevMaxRetentionMs:        3 * dayMs,
		DevMaxPartitions:         10,
	}
}

// ParseGuardrailConfig decodes policy content, defaulting any zero-valued
// field to the built-in threshold.
func ParseGuardrailConfig(content json.RawMessage) (GuardrailConfig, error) {
	cfg := defaultGuardrailConfig()
	if len(content) == 0 {
		return cfg, nil
	}
	var override GuardrailConfig
	if err := json.Unmarshal(content, &override); err != nil {
		return GuardrailConfig{}, err
	}
	merge := func(dst *int, src int) {
		if src != 0 {
			*dst = src
		}
	}
	mergeInt64 := func(dst *int64, src int64) {
		if src != 0 {
			*dst = src
		}
	}
	merge(&cfg.ProdMinReplicationFactor, override.ProdMinReplicationFactor)
	merge(&cfg.ProdMinInsyncReplicas, override.ProdMinInsyncReplicas)
	mergeInt64(&cfg.ProdMinRetentionMs, override.ProdMinRetentionMs)
	merge(&cfg.ProdMaxPartitions, override.ProdMaxPartitions)
	merge(&cfg.StgMinReplicationFactor, override.StgMinReplicationFactor)
	merge(&cfg.StgMaxPartitions, override.StgMaxPartitions)
	mergeInt64(&cfg.DevMaxRetentionMs, override.DevMaxRetentionMs)
	merge(&cfg.DevMaxPartitions, override.DevMaxPartitions)
	return cfg, nil
}

// evaluateGuardrails applies the environment-keyed thresholds plus the
// compression recommendation to one topic spec's config.
func evaluateGuardrails(name string, env domain.Environment, cfg domain.TopicConfig, g GuardrailConfig) []domain.Violation {
	var out []domain.Violation

	switch env {
	case domain.EnvProd:
		if cfg.ReplicationFactor < g.ProdMinReplicationFactor {
			out = append(out, violation(name, "prod.min_replication_factor", domain.SeverityError,
				"PROD topics require replication_factor >= "+strconv.Itoa(g.ProdMinReplicationFactor)))
		}
		if cfg.MinInsyncReplicas == nil || *cfg.MinInsyncReplicas < g.ProdMinInsyncReplicas {
			out = append(out, violation(name, "prod.min_insync_replicas", domain.SeverityError,
				"PROD topics require min_insync_replicas >= "+strconv.Itoa(g.ProdMinInsyncReplicas)))
		}
		if cfg.RetentionMs == nil || *cfg.RetentionMs < g.ProdMinRetentionMs {
			out = append(out, violation(name, "prod.min_retention", domain.SeverityError,
				"PROD topics require retention_ms >= 7 days"))
		}
		if cfg.Partitions > g.ProdMaxPartitions {
			out = append(out, violation(name, "prod.max_partitions", domain.SeverityError,
				"PROD topics must not exceed "+strconv.Itoa(g.ProdMaxPartitions)+" partitions"))
		}
		if cfg.CompressionType == "" || cfg.CompressionType == "none" {
			out = append(out, violation(name, "compression.recommended", domain.SeverityWarning,
				"PROD topics should set a non-none compression_type"))
		}

	case domain.EnvStg:
		if cfg.ReplicationFactor < g.StgMinReplicationFactor {
			out = append(out, violation(name, "stg.min_replication_factor", domain.SeverityWarning,
				"STG topics should use replication_factor >= "+strconv.Itoa(g.StgMinReplicationFactor)))
		}
		if cfg.Partitions > g.StgMaxPartitions {
			out = append(out, violation(name, "stg.max_partitions", domain.SeverityWarning,
				"STG topics should not exceed "+strconv.Itoa(g.StgMaxPartitions)+" partitions"))
		}

	case domain.EnvDev:
		if cfg.RetentionMs != nil && *cfg.RetentionMs > g.DevMaxRetentionMs {
			out = append(out, violation(name, "dev.max_retention", domain.SeverityWarning,
				"DEV topics should not exceed 3 days retention"))
		}
		if cfg.Partitions > g.DevMaxPartitions {
			out = append(out, violation(name, "dev.max_partitions", domain.SeverityWarning,
				"DEV topics should not exceed "+strconv.Itoa(g.DevMaxPartitions)+" partitions"))
		}
	}

	return out
}

func violation(resource, ruleID string, severity domain.Severity, message string) domain.Violation {
	return domain.Violation{Resource: resource, RuleID: ruleID, Severity: severity, Message: message}
}

