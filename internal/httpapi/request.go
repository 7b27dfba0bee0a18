package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/kafkaadmin"
	"github.com/kafkagov/controlplane/internal/schemaregistry"
)

// decodeJSON decodes the request body into v, translating a malformed body
// into an Invariant so writeError renders a 422 rather than a 500.
func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Invariant("malformed request body: %s", err.Error())
	}
	return nil
}

func clusterID(r *http.Request) string {
	return r.URL.Query().Get("cluster_id")
}

// kafkaAdminFor resolves cluster_id through the connection manager and
// type-asserts to the concrete client, since Manager.GetKafkaAdmin returns
// any (REDESIGN FLAGS: the manager stays adapter-agnostic).
func (a *API) kafkaAdminFor(r *http.Request, id string) (*kafkaadmin.Client, error) {
	c, err := a.Conn.GetKafkaAdmin(r.Context(), id)
	if err != nil {
		return nil, err
	}
	client, ok := c.(*kafkaadmin.Client)
	if !ok {
		return nil, apperrors.Backend("kafkaadmin", apperrors.Invariant("cluster %s: unexpected admin client type", id))
	}
	return client, nil
}

func (a *API) schemaRegistryFor(r *http.Request, id string) (*schemaregistry.Client, error) {
	c, err := a.Conn.GetSchemaRegistry(r.Context(), id)
	if err != nil {
		return nil, err
	}
	client, ok := c.(*schemaregistry.Client)
	if !ok {
		return nil, apperrors.Backend("schemaregistry", apperrors.Invariant("registry %s: unexpected schema registry client type", id))
	}
	return client, nil
}
