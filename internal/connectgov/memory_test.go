package connectgov_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/connectgov"
)

func TestMemory_ValidateFlagsReservedPrefixAndMissingOwner(t *testing.T) {
	t.Parallel()

	m := connectgov.NewMemory()
	violations, err := m.Validate(context.Background(), connectgov.ConnectorMetadata{
		Name: "connect-configs-mirror", ClusterID: "cluster-a",
	})
	require.NoError(t, err)
	require.Len(t, violations, 2)
}

func TestMemory_RecordAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	m := connectgov.NewMemory()
	meta := connectgov.ConnectorMetadata{Name: "orders-sink", ClusterID: "cluster-a", Owners: []string{"data-platform"}}
	require.NoError(t, m.Record(context.Background(), meta))

	got, err := m.Get(context.Background(), "cluster-a", "orders-sink")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, meta.Owners, got.Owners)

	list, err := m.List(context.Background(), "cluster-a")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
