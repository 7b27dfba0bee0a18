// Package apperrors defines the typed error taxonomy shared by every layer
// of the control plane: domain construction, policy evaluation, connection
// resolution, backend adapters, and the planner/applier state machine.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP status mapping and logging severity.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvariant
	KindPolicyViolation
	KindPolicyConfig
	KindNotFound
	KindInactive
	KindStale
	KindBackend
	KindMetadataStore
	KindRollback
)

func (k Kind) String() string {
	switch k {
	case KindInvariant:
		return "Invariant"
	case KindPolicyViolation:
		return "PolicyViolation"
	case KindPolicyConfig:
		return "PolicyConfigError"
	case KindNotFound:
		return "NotFound"
	case KindInactive:
		return "Inactive"
	case KindStale:
		return "Stale"
	case KindBackend:
		return "Backend"
	case KindMetadataStore:
		return "MetadataStore"
	case KindRollback:
		return "Rollback"
	default:
		return "Unknown"
	}
}

// Sentinel errors, matched via errors.Is after wrapping with fmt.Errorf("%w: ...").
var (
	ErrInvariant      = errors.New("invariant violation")
	ErrPolicyViolation = errors.New("policy violation")
	ErrPolicyConfig   = errors.New("policy configuration error")
	ErrNotFound       = errors.New("resource not found")
	ErrInactive       = errors.New("resource inactive")
	ErrStale          = errors.New("plan is stale")
	ErrBackend        = errors.New("backend adapter error")
	ErrMetadataStore  = errors.New("metadata store error")
	ErrRollback       = errors.New("rollback failed")
)

var sentinelKind = map[error]Kind{
	ErrInvariant:       KindInvariant,
	ErrPolicyViolation: KindPolicyViolation,
	ErrPolicyConfig:    KindPolicyConfig,
	ErrNotFound:        KindNotFound,
	ErrInactive:        KindInactive,
	ErrStale:           KindStale,
	ErrBackend:         KindBackend,
	ErrMetadataStore:   KindMetadataStore,
	ErrRollback:        KindRollback,
}

// KindOf walks the error chain and returns the first matching taxonomy Kind,
// or KindUnknown if none of the sentinels are present.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for sentinel, kind := range sentinelKind {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// Invariant wraps a domain construction failure.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// NotFound wraps a missing resource id.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// Inactive wraps a disabled endpoint reference.
func Inactive(kind, id string) error {
	return fmt.Errorf("%w: %s %q is inactive", ErrInactive, kind, id)
}

// Stale wraps a plan/live-state mismatch at apply time.
func Stale(format string, args ...any) error {
	return fmt.Errorf("%w: %s; please re-run dry-run", ErrStale, fmt.Sprintf(format, args...))
}

// Backend wraps a whole-call adapter transport failure.
func Backend(adapter string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrBackend, adapter, cause)
}

// MetadataStore wraps a persistence failure.
func MetadataStore(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrMetadataStore, op, cause)
}

// Rollback wraps a compensation failure. Never surfaced to callers directly;
// only logged at CRITICAL by the applier.
func Rollback(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrRollback, op, cause)
}

// PolicyConfig wraps a malformed policy row.
func PolicyConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPolicyConfig, fmt.Sprintf(format, args...))
}
