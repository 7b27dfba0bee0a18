// Package planner builds Plan[C] values from a Batch and live backend state,
// implementing the diff, legality, and policy-evaluation steps a dry-run
// performs before anything is ever submitted to a cluster or registry.
package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	"github.com/kafkagov/controlplane/internal/domain"
)

const noneToken = "none"

// schemaHash16 mirrors internal/schemaregistry's unexported hash function;
// duplicated rather than exported across a package boundary for a single
// 16-char fingerprint used only to detect schema-text drift in a plan diff.
func schemaHash16(schema string) string {
	sum := sha256.Sum256([]byte(schema))
	return hex.EncodeToString(sum[:])[:16]
}

// configDiff computes the field-level diff between two map<string,string>
// config views, per spec.md §4.E.2: keys where values differ produce
// "{old}->{new}" (rendered here as the literal arrow), missing-on-one-side
// uses the "none" token.
func configDiff(current, target map[string]string) map[string]string {
	keys := make(map[string]struct{}, len(current)+len(target))
	for k := range current {
		keys[k] = struct{}{}
	}
	for k := range target {
		keys[k] = struct{}{}
	}

	diff := make(map[string]string)
	for k := range keys {
		oldV, hasOld := current[k]
		newV, hasNew := target[k]
		if !hasOld {
			oldV = noneToken
		}
		if !hasNew {
			newV = noneToken
		}
		if oldV != newV {
			diff[k] = fmt.Sprintf("%s→%s", oldV, newV)
		}
	}
	return diff
}

// unifiedConfigDiff renders a human-readable unified diff between two
// canonical (sorted-key) JSON views of a config, for operator-facing plan
// review alongside the required field-level diff map.
func unifiedConfigDiff(name string, current, target map[string]string) string {
	oldJSON := canonicalJSON(current)
	newJSON := canonicalJSON(target)
	if oldJSON == newJSON {
		return ""
	}

	edits := myers.ComputeEdits(span.URIFromPath("current/"+name), oldJSON, newJSON)
	return fmt.Sprint(gotextdiff.ToUnified("current/"+name, "target/"+name, oldJSON, edits))
}

func canonicalJSON(m map[string]string) string {
	if m == nil {
		m = map[string]string{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		K string `json:"key"`
		V string `json:"value"`
	}, len(keys))
	for i, k := range keys {
		ordered[i].K = k
		ordered[i].V = m[k]
	}
	b, _ := json.MarshalIndent(ordered, "", "  ")
	return string(b) + "\n"
}

// mergeTopicConfig merges an UPSERT/CREATE spec's config onto cluster-wide
// defaults: spec-set fields win, unset (zero) fields keep the default. No
// caller has a real defaults source yet (DESIGN.md Open Question #5), so
// this is a plain field-by-field overlay rather than a reflection-based
// merge library — there is nothing here a generic merge would buy over
// naming the eight fields once.
func mergeTopicConfig(defaults, override domain.TopicConfig) domain.TopicConfig {
	merged := defaults
	if override.Partitions != 0 {
		merged.Partitions = override.Partitions
	}
	if override.ReplicationFactor != 0 {
		merged.ReplicationFactor = override.ReplicationFactor
	}
	if override.CleanupPolicy != "" {
		merged.CleanupPolicy = override.CleanupPolicy
	}
	if override.RetentionMs != nil {
		merged.RetentionMs = override.RetentionMs
	}
	if override.MinInsyncReplicas != nil {
		merged.MinInsyncReplicas = override.MinInsyncReplicas
	}
	if override.MaxMessageBytes != nil {
		merged.MaxMessageBytes = override.MaxMessageBytes
	}
	if override.SegmentMs != nil {
		merged.SegmentMs = override.SegmentMs
	}
	if override.CompressionType != "" {
		merged.CompressionType = override.CompressionType
	}
	return merged
}

// legalityViolations implements spec.md §4.E.2's change-legality rules:
// partition count may only increase, and any replication factor change
// requires manual intervention.
func legalityViolations(resource string, currentPartitions, targetPartitions, currentRF, targetRF int) []domain.Violation {
	var out []domain.Violation
	if targetPartitions < currentPartitions {
		out = append(out, domain.Violation{
			Resource: resource, RuleID: "change.partition_decrease", Severity: domain.SeverityError,
			Field: "partitions",
			Message: fmt.Sprintf("partition count may only increase: %d→%d", currentPartitions, targetPartitions),
		})
	}
	if currentRF != targetRF {
		out = append(out, domain.Violation{
			Resource: resource, RuleID: "change.replication_factor_change", Severity: domain.SeverityError,
			Field: "replication.factor",
			Message: fmt.Sprintf("replication factor change requires manual intervention: %d→%d", currentRF, targetRF),
		})
	}
	return out
}
