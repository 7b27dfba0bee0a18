package domain

import (
	"github.com/kafkagov/controlplane/internal/apperrors"
)

// Batch is the aggregate root for a declarative set of changes, generic
// over TopicSpec or SchemaSpec.
type Batch[T Spec] struct {
	ChangeID string
	Env      Environment
	Specs    []T
}

// NewBatch validates and constructs a Batch. All spec names must be unique
// and every spec's derived environment must equal the batch environment.
func NewBatch[T Spec](changeID string, env Environment, specs []T) (Batch[T], error) {
	if changeID == "" {
		return Batch[T]{}, apperrors.Invariant("batch change_id must not be empty")
	}
	if len(specs) == 0 {
		return Batch[T]{}, apperrors.Invariant("batch %q must contain at least one spec", changeID)
	}

	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		name := s.SpecName()
		if _, dup := seen[name]; dup {
			return Batch[T]{}, apperrors.Invariant("batch %q contains duplicate spec name %q", changeID, name)
		}
		seen[name] = struct{}{}

		if specEnv := s.SpecEnvironment(); specEnv != env {
			return Batch[T]{}, apperrors.Invariant(
				"batch %q declares env %s but spec %q derives env %s", changeID, env, name, specEnv,
			)
		}
	}

	return Batch[T]{ChangeID: changeID, Env: env, Specs: specs}, nil
}

// Fingerprint hashes the change_id plus the sorted spec fingerprints, making
// it independent of submission order.
func (b Batch[T]) Fingerprint() string {
	type canon struct {
		ChangeID string
		Env      Environment
		Specs    []string
	}
	return fingerprint(canon{b.ChangeID, b.Env, sortedFingerprints(b.Specs)})
}

// Names returns the spec names in submission order.
func (b Batch[T]) Names() []string {
	out := make([]string, len(b.Specs))
	for i, s := range b.Specs {
		out[i] = s.SpecName()
	}
	return out
}
