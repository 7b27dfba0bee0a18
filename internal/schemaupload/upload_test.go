package schemaupload_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/eventbus"
	"github.com/kafkagov/controlplane/internal/schemaupload"
)

var errRegistration = errors.New("registration failed")

type fakeStorage struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newFakeStorage() *fakeStorage { return &fakeStorage{puts: map[string][]byte{}} }

func (f *fakeStorage) Put(_ context.Context, key string, data []byte, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[key] = data
	return "s3://bucket/" + key, nil
}

type fakeRegistry struct {
	failSubject string
}

func (f *fakeRegistry) RegisterSchema(_ context.Context, spec domain.SchemaSpec, _ string) (int, int, error) {
	if spec.Subject == f.failSubject {
		return 0, 0, errRegistration
	}
	return 1, 100, nil
}

func (f *fakeRegistry) SetCompatibilityMode(context.Context, string, domain.CompatibilityMode) error {
	return nil
}

type fakeArtifactStore struct {
	mu    sync.Mutex
	saved []domain.SchemaArtifact
}

func (f *fakeArtifactStore) SaveSchemaArtifact(_ context.Context, a domain.SchemaArtifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, a)
	return nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func (f *fakeAuditStore) WriteAudit(_ context.Context, rec domain.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAuditStore) ListAudit(context.Context, string) ([]domain.AuditRecord, error) {
	return nil, nil
}

func newService(t *testing.T, storage *fakeStorage, registry *fakeRegistry, artifacts *fakeArtifactStore) *schemaupload.Service {
	t.Helper()
	auditSvc := audit.New(&fakeAuditStore{}, nil)
	bus := eventbus.New()
	return schemaupload.New(storage, registry, artifacts, bus, auditSvc, nil)
}

func TestService_UploadRejectsUnsupportedExtension(t *testing.T) {
	t.Parallel()
	svc := newService(t, newFakeStorage(), &fakeRegistry{}, &fakeArtifactStore{})

	_, err := svc.Upload(context.Background(), schemaupload.Request{
		ChangeID: "CHG-1", Env: domain.EnvDev,
		Files: []schemaupload.InputFile{{Filename: "schema.txt", Content: []byte("x")}},
	})
	require.Error(t, err)
}

func TestService_UploadRegistersSchemaFile(t *testing.T) {
	t.Parallel()
	artifacts := &fakeArtifactStore{}
	svc := newService(t, newFakeStorage(), &fakeRegistry{}, artifacts)

	result, err := svc.Upload(context.Background(), schemaupload.Request{
		ChangeID: "CHG-1", Env: domain.EnvDev, Owner: "data-platform",
		Files: []schemaupload.InputFile{{Filename: "orders.avsc", Content: []byte(`{"type":"record"}`)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	require.Equal(t, "dev.orders", result.Artifacts[0].Subject)
	require.Equal(t, 1, result.Artifacts[0].Version)
	require.Len(t, artifacts.saved, 1)
}

func TestService_UploadFallsBackWhenRegistrationFails(t *testing.T) {
	t.Parallel()
	artifacts := &fakeArtifactStore{}
	svc := newService(t, newFakeStorage(), &fakeRegistry{failSubject: "dev.orders"}, artifacts)

	result, err := svc.Upload(context.Background(), schemaupload.Request{
		ChangeID: "CHG-1", Env: domain.EnvDev,
		Files: []schemaupload.InputFile{{Filename: "orders.avsc", Content: []byte(`{"type":"record"}`)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	require.NotEmpty(t, result.Artifacts[0].StorageURL)
}

func TestService_UploadExtractsZipBundle(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("orders.avsc")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"type":"record"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	artifacts := &fakeArtifactStore{}
	svc := newService(t, newFakeStorage(), &fakeRegistry{}, artifacts)

	result, err := svc.Upload(context.Background(), schemaupload.Request{
		ChangeID: "CHG-1", Env: domain.EnvDev,
		Files: []schemaupload.InputFile{{Filename: "bundle.zip", Content: buf.Bytes()}},
	})
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	require.Equal(t, "bundle.bundle", result.Artifacts[0].Subject)
}
