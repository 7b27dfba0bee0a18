package domain_test

import (
	"testing"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }

func validTopicConfig(t *testing.T) domain.TopicConfig {
	t.Helper()
	cfg, err := domain.NewTopicConfig(domain.TopicConfig{
		Partitions:        12,
		ReplicationFactor: 3,
		CleanupPolicy:     "delete",
		RetentionMs:       int64p(604800000),
		MinInsyncReplicas: intp(2),
	})
	require.NoError(t, err)
	return cfg
}

func TestNewTopicConfig_Invariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     domain.TopicConfig
		wantErr bool
	}{
		{"valid", domain.TopicConfig{Partitions: 1, ReplicationFactor: 1}, false},
		{"zero partitions", domain.TopicConfig{Partitions: 0, ReplicationFactor: 1}, true},
		{"zero replication", domain.TopicConfig{Partitions: 1, ReplicationFactor: 0}, true},
		{
			"isr exceeds replication",
			domain.TopicConfig{Partitions: 1, ReplicationFactor: 3, MinInsyncReplicas: intp(4)},
			true,
		},
		{
			"isr equals replication ok",
			domain.TopicConfig{Partitions: 1, ReplicationFactor: 3, MinInsyncReplicas: intp(3)},
			false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := domain.NewTopicConfig(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrInvariant)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewTopicSpec(t *testing.T) {
	t.Parallel()
	cfg := validTopicConfig(t)
	meta := &domain.TopicMetadata{Owners: []string{"data-platform"}}

	t.Run("create requires config and metadata", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewTopicSpec(domain.TopicSpec{Name: "prod.orders.created", Action: domain.ActionCreate})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("delete must not carry config", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewTopicSpec(domain.TopicSpec{
			Name: "prod.orders.created", Action: domain.ActionDelete, Config: &cfg,
		})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("valid create", func(t *testing.T) {
		t.Parallel()
		spec, err := domain.NewTopicSpec(domain.TopicSpec{
			Name: "prod.orders.created", Action: domain.ActionCreate, Config: &cfg, Metadata: meta,
		})
		require.NoError(t, err)
		require.Equal(t, domain.EnvProd, spec.SpecEnvironment())
	})

	t.Run("name length boundary 249 accepted 250 rejected", func(t *testing.T) {
		t.Parallel()
		base := "dev."
		name249 := base + repeat("a", 249-len(base))
		name250 := base + repeat("a", 250-len(base))
		require.Len(t, name249, 249)
		require.Len(t, name250, 250)

		_, err := domain.NewTopicSpec(domain.TopicSpec{Name: name249, Action: domain.ActionCreate, Config: &cfg, Metadata: meta})
		require.NoError(t, err)

		_, err = domain.NewTopicSpec(domain.TopicSpec{Name: name250, Action: domain.ActionCreate, Config: &cfg, Metadata: meta})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})
}

func repeat(s string, n int) string {
	out := make([]byte, 0, n)
	for len(out) < n {
		out = append(out, s...)
	}
	return string(out[:n])
}

func TestBatch_Invariants(t *testing.T) {
	t.Parallel()
	cfg := validTopicConfig(t)
	meta := &domain.TopicMetadata{Owners: []string{"data"}}
	spec, err := domain.NewTopicSpec(domain.TopicSpec{
		Name: "prod.orders.created", Action: domain.ActionCreate, Config: &cfg, Metadata: meta,
	})
	require.NoError(t, err)

	t.Run("duplicate names rejected", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewBatch("CHG-1", domain.EnvProd, []domain.TopicSpec{spec, spec})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("mismatched env rejected", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewBatch("CHG-1", domain.EnvDev, []domain.TopicSpec{spec})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("empty specs rejected", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewBatch("CHG-1", domain.EnvProd, []domain.TopicSpec{})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("valid batch fingerprint is order independent", func(t *testing.T) {
		t.Parallel()
		cfg2 := validTopicConfig(t)
		spec2, err := domain.NewTopicSpec(domain.TopicSpec{
			Name: "prod.payments.created", Action: domain.ActionCreate, Config: &cfg2, Metadata: meta,
		})
		require.NoError(t, err)

		b1, err := domain.NewBatch("CHG-1", domain.EnvProd, []domain.TopicSpec{spec, spec2})
		require.NoError(t, err)
		b2, err := domain.NewBatch("CHG-1", domain.EnvProd, []domain.TopicSpec{spec2, spec})
		require.NoError(t, err)

		require.Equal(t, b1.Fingerprint(), b2.Fingerprint())
	})
}

func TestEnvironmentOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want domain.Environment
	}{
		{"prod.orders.created", domain.EnvProd},
		{"dev.user.avsc", domain.EnvDev},
		{"stg.payments-value", domain.EnvStg},
		{"no-prefix-record", domain.EnvUnknown},
		{"Prod.Mixed.Case", domain.EnvProd},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, domain.EnvironmentOf(tt.name))
		})
	}
}

func TestNewSchemaSpec(t *testing.T) {
	t.Parallel()

	t.Run("requires literal or source", func(t *testing.T) {
		t.Parallel()
		_, err := domain.NewSchemaSpec(domain.SchemaSpec{
			Subject: "dev.user-value", SchemaType: domain.SchemaTypeAvro, CompatibilityMode: domain.CompatBackward,
		})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("literal with non-inline source rejected", func(t *testing.T) {
		t.Parallel()
		src, err := domain.NewSchemaSource(domain.SchemaSource{Kind: domain.SourceFile, Path: "/tmp/x.avsc"})
		require.NoError(t, err)
		_, err = domain.NewSchemaSpec(domain.SchemaSpec{
			Subject: "dev.user-value", SchemaType: domain.SchemaTypeAvro, CompatibilityMode: domain.CompatBackward,
			SchemaLiteral: `{"type":"record"}`, SchemaSource: &src,
		})
		require.ErrorIs(t, err, apperrors.ErrInvariant)
	})

	t.Run("valid inline", func(t *testing.T) {
		t.Parallel()
		spec, err := domain.NewSchemaSpec(domain.SchemaSpec{
			Subject: "dev.user-value", SchemaType: domain.SchemaTypeAvro, CompatibilityMode: domain.CompatBackward,
			SchemaLiteral: `{"type":"record","name":"User"}`,
		})
		require.NoError(t, err)
		require.Equal(t, domain.EnvDev, spec.SpecEnvironment())
	})
}
