// Package schemaregistry wraps confluent-kafka-go/v2's schemaregistry
// client with the per-item error-map contract spec.md §4.D requires.
package schemaregistry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	schemaregistryapi "github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/retrywrap"
)

// listTimeout matches spec.md §5's 10s Schema Registry list bound.
const listTimeout = 10 * time.Second

// Client is the Schema Registry adapter.
type Client struct {
	sr    schemaregistryapi.Client
	retry retrywrap.Config
}

// New constructs a Client from a RegistryEndpoint.
func New(ctx context.Context, ep domain.RegistryEndpoint) (*Client, error) {
	cfg := schemaregistryapi.NewConfig(ep.URL)
	if ep.Username != "" {
		cfg.BasicAuthUserInfo = ep.Username + ":" + ep.Password
	}

	sr, err := schemaregistryapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("schemaregistry: dial registry %s: %w", ep.ID, err)
	}
	return &Client{sr: sr, retry: retrywrap.DefaultConfig()}, nil
}

// SubjectDescription is the describe_subjects per-subject result shape.
type SubjectDescription struct {
	Version    int
	SchemaID   int
	Schema     string
	SchemaType domain.SchemaType
	References []domain.SchemaReference
	Hash       string
}

func schemaHash(schema string) string {
	sum := sha256.Sum256([]byte(schema))
	return hex.EncodeToString(sum[:])[:16]
}

// DescribeSubjects returns the latest version of each requested subject;
// subjects that do not exist are omitted from the result map.
func (c *Client) DescribeSubjects(ctx context.Context, subjects []string) (map[string]SubjectDescription, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	out := make(map[string]SubjectDescription, len(subjects))
	for _, subject := range subjects {
		info, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (schemaregistryapi.SchemaMetadata, error) {
			return c.sr.GetLatestSchemaMetadata(subject)
		})
		if err != nil {
			continue // not found or unreadable: omitted per contract
		}

		refs := make([]domain.SchemaReference, 0, len(info.References))
		for _, r := range info.References {
			refs = append(refs, domain.SchemaReference{Name: r.Name, Subject: r.Subject, Version: r.Version})
		}

		out[subject] = SubjectDescription{
			Version:    info.Version,
			SchemaID:   info.ID,
			Schema:     info.Schema,
			SchemaType: domain.SchemaType(info.SchemaType),
			References: refs,
			Hash:       schemaHash(info.Schema),
		}
	}
	return out, nil
}

// CheckCompatibility never throws: transport errors become issues in the
// returned report rather than a Go error, per spec.md §4.D.
func (c *Client) CheckCompatibility(ctx context.Context, spec domain.SchemaSpec, schemaText string) domain.CompatibilityReport {
	report := domain.CompatibilityReport{Subject: spec.Subject, Mode: spec.CompatibilityMode}

	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	ok, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (bool, error) {
		return c.sr.TestCompatibility(spec.Subject, -1, schemaregistryapi.SchemaInfo{
			Schema:     schemaText,
			SchemaType: string(spec.SchemaType),
		})
	})
	if err != nil {
		report.IsCompatible = false
		report.Issues = append(report.Issues, err.Error())
		return report
	}
	report.IsCompatible = ok
	if !ok {
		report.Issues = append(report.Issues, "schema is not compatible with the subject's current compatibility mode")
	}
	return report
}

// RegisterSchema registers a new version of subject, returning the new
// version and the global schema id.
func (c *Client) RegisterSchema(ctx context.Context, spec domain.SchemaSpec, schemaText string) (version int, schemaID int, err error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	id, regErr := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (int, error) {
		return c.sr.Register(spec.Subject, schemaregistryapi.SchemaInfo{
			Schema:     schemaText,
			SchemaType: string(spec.SchemaType),
		}, false)
	})
	if regErr != nil {
		return 0, 0, fmt.Errorf("schemaregistry: register %s: %w", spec.Subject, regErr)
	}

	meta, metaErr := c.sr.GetLatestSchemaMetadata(spec.Subject)
	if metaErr != nil {
		return 0, id, fmt.Errorf("schemaregistry: fetch version for %s: %w", spec.Subject, metaErr)
	}
	return meta.Version, id, nil
}

// SetCompatibilityMode sets the compatibility contract for one subject.
func (c *Client) SetCompatibilityMode(ctx context.Context, subject string, mode domain.CompatibilityMode) error {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	_, err := retrywrap.Do(ctx, c.retry, func(ctx context.Context) (schemaregistryapi.Compatibility, error) {
		return c.sr.UpdateCompatibility(subject, schemaregistryapi.Compatibility(mode))
	})
	return err
}

// DeleteSubject removes a subject, returning the versions that were
// deleted.
func (c *Client) DeleteSubject(ctx context.Context, subject string) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	return retrywrap.Do(ctx, c.retry, func(ctx context.Context) ([]int, error) {
		return c.sr.DeleteSubject(subject, false)
	})
}

// ListAllSubjects returns every subject registered with this registry.
func (c *Client) ListAllSubjects(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	return retrywrap.Do(ctx, c.retry, func(ctx context.Context) ([]string, error) {
		return c.sr.GetAllSubjects()
	})
}
