package connectgov

import (
	"context"
	"strings"
	"sync"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
)

// reservedConnectorPrefixes mirrors internal/policy's reserved-name
// guardrail for the connect-* family, scoped here to connector names.
var reservedConnectorPrefixes = []string{"connect-"}

// Memory is an in-memory Governor, sufficient for tests and local
// development; a durable implementation would back onto MetadataStore the
// same way internal/store.Postgres backs the rest of the governed state.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]ConnectorMetadata // key: clusterID + "/" + name
}

// NewMemory constructs an empty Memory governor.
func NewMemory() *Memory {
	return &Memory{rows: map[string]ConnectorMetadata{}}
}

func key(clusterID, name string) string { return clusterID + "/" + name }

func (m *Memory) Validate(_ context.Context, meta ConnectorMetadata) ([]domain.Violation, error) {
	var violations []domain.Violation
	if meta.Name == "" {
		return nil, apperrors.Invariant("connector name must not be empty")
	}
	for _, prefix := range reservedConnectorPrefixes {
		if strings.HasPrefix(meta.Name, prefix) {
			violations = append(violations, domain.Violation{
				Resource: meta.Name, RuleID: "connector.naming.reserved_prefix",
				Severity: domain.SeverityError,
				Message:  "connector name uses the reserved prefix " + prefix,
			})
		}
	}
	if len(meta.Owners) == 0 {
		violations = append(violations, domain.Violation{
			Resource: meta.Name, RuleID: "connector.metadata.missing_owner",
			Severity: domain.SeverityWarning, Message: "connector has no declared owner",
		})
	}
	return violations, nil
}

func (m *Memory) Record(_ context.Context, meta ConnectorMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key(meta.ClusterID, meta.Name)] = meta
	return nil
}

func (m *Memory) Get(_ context.Context, clusterID, name string) (*ConnectorMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[key(clusterID, name)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *Memory) List(_ context.Context, clusterID string) ([]ConnectorMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ConnectorMetadata
	for k, row := range m.rows {
		if strings.HasPrefix(k, clusterID+"/") {
			out = append(out, row)
		}
	}
	return out, nil
}
