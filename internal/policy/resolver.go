package policy

import (
	"context"

	"github.com/kafkagov/controlplane/internal/domain"
)

// Store resolves ACTIVE policy rows by type and environment tier. Backed by
// internal/store's MetadataStore in production, an in-memory fake in tests.
type Store interface {
	// ActivePolicy returns the ACTIVE policy for (policyType, tier), or
	// nil if none exists — tier is "dev"/"stg"/"prod"/"total".
	ActivePolicy(ctx context.Context, policyType domain.PolicyType, tier string) (*domain.Policy, error)
}

// ResolveActive implements spec.md §4.B's resolution order: env-specific
// ACTIVE policy first, then the "total" fallback, then nil (skip the rule
// family — fail-open is this function's caller's responsibility, not
// this function's).
func ResolveActive(ctx context.Context, store Store, policyType domain.PolicyType, env domain.Environment) (*domain.Policy, error) {
	if tier := env.PolicyTier(); tier != "" {
		p, err := store.ActivePolicy(ctx, policyType, tier)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return store.ActivePolicy(ctx, policyType, domain.PolicyTargetTotal)
}
