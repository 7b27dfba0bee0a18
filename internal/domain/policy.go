package domain

import (
	"encoding/json"
	"time"

	"github.com/kafkagov/controlplane/internal/apperrors"
)

// PolicyType distinguishes the two policy-engine families spec.md names
// directly; metadata and compatibility rules are not independently
// versioned policies (they are intrinsic to the engine), matching the
// source's persisted policy table shape.
type PolicyType string

const (
	PolicyTypeNaming    PolicyType = "NAMING"
	PolicyTypeGuardrail PolicyType = "GUARDRAIL"
)

// PolicyStatus is a policy version's lifecycle state.
type PolicyStatus string

const (
	PolicyDraft    PolicyStatus = "DRAFT"
	PolicyActive   PolicyStatus = "ACTIVE"
	PolicyArchived PolicyStatus = "ARCHIVED"
)

// PolicyTargetTotal is the target_environment value matching every
// environment when no environment-specific ACTIVE policy exists.
const PolicyTargetTotal = "total"

// Policy is a persisted, versioned policy row.
type Policy struct {
	PolicyID         string
	Type             PolicyType
	Version          int
	Status           PolicyStatus
	TargetEnvironment string
	Name             string
	Description      string
	Content          json.RawMessage
	CreatedBy        string
	CreatedAt        time.Time
}

// NewPolicy validates and constructs a DRAFT-status Policy. Every update in
// this system creates a new DRAFT version rather than mutating an existing
// one (spec.md §3 lifecycle summary).
func NewPolicy(p Policy) (Policy, error) {
	if p.PolicyID == "" {
		return Policy{}, apperrors.Invariant("policy_id must not be empty")
	}
	switch p.Type {
	case PolicyTypeNaming, PolicyTypeGuardrail:
	default:
		return Policy{}, apperrors.Invariant("invalid policy type %q", p.Type)
	}
	switch p.TargetEnvironment {
	case "dev", "stg", "prod", PolicyTargetTotal:
	default:
		return Policy{}, apperrors.Invariant("invalid policy target_environment %q", p.TargetEnvironment)
	}
	if len(p.Content) == 0 {
		return Policy{}, apperrors.Invariant("policy %q content must not be empty", p.PolicyID)
	}
	if p.Version < 1 {
		p.Version = 1
	}
	p.Status = PolicyDraft
	return p, nil
}
