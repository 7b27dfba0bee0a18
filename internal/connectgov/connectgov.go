// Package connectgov specifies connector metadata governance as an
// interface only: spec.md §1 treats the Kafka Connect REST passthrough as
// an external collaborator out of scope, but the ownership/naming
// governance layer over connector metadata is in scope.
package connectgov

import (
	"context"

	"github.com/kafkagov/controlplane/internal/domain"
)

// ConnectorMetadata is the governed envelope over a Kafka Connect
// connector, parallel to TopicMetadata/SchemaMetadata.
type ConnectorMetadata struct {
	Name      string
	ClusterID string
	Owners    []string
	Doc       string
	Tags      []string
}

// Governor governs connector metadata: naming/ownership policy and the
// metadata record itself, independent of whatever actually submits
// connector configs to the Kafka Connect REST API.
type Governor interface {
	// Validate checks name and ownership against policy, without talking
	// to Kafka Connect at all.
	Validate(ctx context.Context, meta ConnectorMetadata) ([]domain.Violation, error)

	// Record persists governance metadata for a connector that some other
	// component (the passthrough router) has already created or updated.
	Record(ctx context.Context, meta ConnectorMetadata) error

	// Get returns the governance metadata for one connector, if recorded.
	Get(ctx context.Context, clusterID, name string) (*ConnectorMetadata, error)

	// List returns every governed connector on a cluster.
	List(ctx context.Context, clusterID string) ([]ConnectorMetadata, error)
}
