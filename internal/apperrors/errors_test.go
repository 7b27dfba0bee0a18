package apperrors_test

import (
	"errors"
	"testing"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"invariant", apperrors.Invariant("bad partitions: %d", 0), apperrors.KindInvariant},
		{"not found", apperrors.NotFound("cluster", "c1"), apperrors.KindNotFound},
		{"inactive", apperrors.Inactive("registry", "r1"), apperrors.KindInactive},
		{"stale", apperrors.Stale("partition count changed"), apperrors.KindStale},
		{"backend", apperrors.Backend("kafkaadmin", errors.New("dial timeout")), apperrors.KindBackend},
		{"metadata store", apperrors.MetadataStore("save_topic_metadata", errors.New("conn refused")), apperrors.KindMetadataStore},
		{"rollback", apperrors.Rollback("delete_topic", errors.New("still has consumers")), apperrors.KindRollback},
		{"policy config", apperrors.PolicyConfig("missing preset_name"), apperrors.KindPolicyConfig},
		{"unknown", errors.New("plain error"), apperrors.KindUnknown},
		{"nil", nil, apperrors.KindUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, apperrors.KindOf(tt.err))
		})
	}
}

func TestWrappedErrorsMatchSentinel(t *testing.T) {
	t.Parallel()

	err := apperrors.Invariant("partitions must be >= 1")
	require.ErrorIs(t, err, apperrors.ErrInvariant)
	require.Contains(t, err.Error(), "partitions must be >= 1")
}

func TestKindString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "Stale", apperrors.KindStale.String())
	require.Equal(t, "Unknown", apperrors.Kind(99).String())
}
