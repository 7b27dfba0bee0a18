// Package schemaupload implements the multipart schema-upload flow: file
// validation, ZIP bundle extraction, object-storage persistence, and
// best-effort Schema Registry auto-registration, grounded on
// original_source/app/schema/application/use_cases/upload.py.
package schemaupload

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/audit"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/eventbus"
)

// maxFileSize is the per-file upload ceiling (spec.md §6).
const maxFileSize = 10 * 1024 * 1024

// supportedExtensions is the allow-list of file types accepted, matching
// the source's supported_extensions set exactly.
var supportedExtensions = map[string]bool{".avsc": true, ".json": true, ".proto": true, ".zip": true}

var schemaFileExtensions = map[string]bool{".avsc": true, ".json": true, ".proto": true}

var extensionToSchemaType = map[string]domain.SchemaType{
	".avsc":  domain.SchemaTypeAvro,
	".json":  domain.SchemaTypeJSON,
	".proto": domain.SchemaTypeProtobuf,
}

// ObjectStore is the subset of internal/objstorage.Client the upload flow
// depends on.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) (string, error)
}

// SchemaRegistrar is the subset of internal/schemaregistry.Client the
// upload flow depends on.
type SchemaRegistrar interface {
	RegisterSchema(ctx context.Context, spec domain.SchemaSpec, schemaText string) (version int, schemaID int, err error)
	SetCompatibilityMode(ctx context.Context, subject string, mode domain.CompatibilityMode) error
}

// ArtifactStore is the subset of internal/store.MetadataStore the upload
// flow depends on.
type ArtifactStore interface {
	SaveSchemaArtifact(ctx context.Context, a domain.SchemaArtifact) error
}

// InputFile is one multipart part, already read into memory by the caller.
type InputFile struct {
	Filename string
	Content  []byte
}

// Request carries the form fields accompanying the uploaded files
// (spec.md §6: multipart files + env + change_id + owner + compatibility).
type Request struct {
	ChangeID      string
	Env           domain.Environment
	Owner         string
	Actor         string
	Compatibility domain.CompatibilityMode
	Files         []InputFile
}

// Result is the response body for a completed upload.
type Result struct {
	UploadID  string                 `json:"upload_id"`
	Artifacts []domain.SchemaArtifact `json:"artifacts"`
}

// Service runs the validate -> store -> register pipeline.
type Service struct {
	storage  ObjectStore
	registry SchemaRegistrar
	store    ArtifactStore
	bus      *eventbus.Bus
	audit    *audit.Service
	logger   *slog.Logger
}

// New constructs a Service.
func New(storage ObjectStore, registry SchemaRegistrar, st ArtifactStore, bus *eventbus.Bus, auditSvc *audit.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{storage: storage, registry: registry, store: st, bus: bus, audit: auditSvc, logger: logger}
}

// Upload validates every file up front (so a single bad file rejects the
// whole request before any bytes are written), then processes each file
// independently, matching the source's fail-fast-on-validation /
// best-effort-per-file-thereafter split.
func (s *Service) Upload(ctx context.Context, req Request) (Result, error) {
	if len(req.Files) == 0 {
		return Result{}, apperrors.Invariant("no files provided")
	}
	if err := validateFiles(req.Files); err != nil {
		return Result{}, err
	}

	uploadID := fmt.Sprintf("upload_%s_%s", req.ChangeID, shortHash(req.ChangeID, req.Files))
	if err := s.audit.Started(ctx, req.ChangeID, "UPLOAD", uploadID, req.Actor, ""); err != nil {
		return Result{}, err
	}

	var artifacts []domain.SchemaArtifact
	for _, f := range req.Files {
		ext := strings.ToLower(path.Ext(f.Filename))
		var (
			artifact domain.SchemaArtifact
			err      error
		)
		if ext == ".zip" {
			artifact, err = s.processZip(ctx, req, uploadID, f)
		} else {
			artifact, err = s.processSchemaFile(ctx, req, uploadID, f, ext)
		}
		if err != nil {
			_ = s.audit.Item(ctx, req.ChangeID, "UPLOAD", f.Filename, req.Actor, "upload failed: "+err.Error(), nil)
			continue
		}
		artifacts = append(artifacts, artifact)
		_ = s.audit.Item(ctx, req.ChangeID, "UPLOAD", artifact.Subject, req.Actor, "uploaded", nil)
	}

	status := domain.AuditCompleted
	if len(artifacts) == 0 {
		status = domain.AuditFailed
	} else if len(artifacts) < len(req.Files) {
		status = domain.AuditPartiallyCompleted
	}
	if _, err := s.audit.Terminal(ctx, req.ChangeID, "UPLOAD", req.Actor, status,
		fmt.Sprintf("schema upload finished: %d/%d succeeded", len(artifacts), len(req.Files)), nil); err != nil {
		return Result{}, err
	}

	return Result{UploadID: uploadID, Artifacts: artifacts}, nil
}

func validateFiles(files []InputFile) error {
	for _, f := range files {
		if f.Filename == "" {
			return apperrors.Invariant("file must have a filename")
		}
		ext := strings.ToLower(path.Ext(f.Filename))
		if !supportedExtensions[ext] {
			return apperrors.Invariant("unsupported file type: %s", ext)
		}
		if len(f.Content) == 0 {
			return apperrors.Invariant("file %s is empty", f.Filename)
		}
		if len(f.Content) > maxFileSize {
			return apperrors.Invariant("file %s is too large (max: %dMB)", f.Filename, maxFileSize/(1024*1024))
		}
	}
	return nil
}

// processZip stores the archive as a single bundle artifact without
// attempting per-schema registration, matching the source: a ZIP is
// treated as an opaque, versioned-at-1 bundle.
func (s *Service) processZip(ctx context.Context, req Request, uploadID string, f InputFile) (domain.SchemaArtifact, error) {
	zr, err := zip.NewReader(bytes.NewReader(f.Content), int64(len(f.Content)))
	if err != nil {
		return domain.SchemaArtifact{}, apperrors.Invariant("invalid ZIP file: %s", f.Filename)
	}
	if len(zr.File) == 0 {
		return domain.SchemaArtifact{}, apperrors.Invariant("ZIP file %s is empty", f.Filename)
	}
	schemaCount := 0
	for _, zf := range zr.File {
		if schemaFileExtensions[strings.ToLower(path.Ext(zf.Name))] {
			schemaCount++
		}
	}
	if schemaCount == 0 {
		return domain.SchemaArtifact{}, apperrors.Invariant("no schema files found in ZIP: %s", f.Filename)
	}

	key := fmt.Sprintf("%s/uploads/%s/%s", strings.ToLower(string(req.Env)), uploadID, f.Filename)
	storageURL, err := s.storage.Put(ctx, key, f.Content, map[string]string{
		"change_id":  req.ChangeID,
		"upload_id":  uploadID,
		"file_type":  "zip_bundle",
		"schema_count": fmt.Sprintf("%d", schemaCount),
	})
	if err != nil {
		return domain.SchemaArtifact{}, err
	}

	subject := "bundle." + strings.TrimSuffix(path.Base(f.Filename), path.Ext(f.Filename))
	artifact := domain.SchemaArtifact{
		Subject: subject, Version: 1, StorageURL: storageURL,
		Checksum: checksum(f.Content), ChangeID: req.ChangeID,
	}
	if err := s.store.SaveSchemaArtifact(ctx, artifact); err != nil {
		return domain.SchemaArtifact{}, err
	}
	return artifact, nil
}

// processSchemaFile stores the raw file, then attempts Schema Registry
// registration. Registration failure does not roll back the storage write
// or fail the file: it falls back to a version-1 artifact, matching the
// source's deliberate "storage write always sticks" behavior.
func (s *Service) processSchemaFile(ctx context.Context, req Request, uploadID string, f InputFile, ext string) (domain.SchemaArtifact, error) {
	schemaType := extensionToSchemaType[ext]
	content := string(f.Content)
	if ext == ".avsc" || ext == ".json" {
		if !json.Valid(f.Content) {
			return domain.SchemaArtifact{}, apperrors.Invariant("invalid schema file %s: not valid JSON", f.Filename)
		}
	}

	key := fmt.Sprintf("%s/uploads/%s/%s", strings.ToLower(string(req.Env)), uploadID, f.Filename)
	storageURL, err := s.storage.Put(ctx, key, f.Content, map[string]string{
		"change_id":   req.ChangeID,
		"upload_id":   uploadID,
		"file_type":   "schema",
		"schema_type": string(schemaType),
	})
	if err != nil {
		return domain.SchemaArtifact{}, err
	}

	compat := req.Compatibility
	if compat == "" {
		compat = domain.CompatBackward
	}
	subject := strings.ToLower(string(req.Env)) + "." + strings.TrimSuffix(path.Base(f.Filename), path.Ext(f.Filename))

	spec, err := domain.NewSchemaSpec(domain.SchemaSpec{
		Subject: subject, Action: domain.ActionCreate, SchemaType: schemaType,
		CompatibilityMode: compat, SchemaLiteral: content,
	})
	if err != nil {
		return domain.SchemaArtifact{}, err
	}

	version, _, regErr := s.registry.RegisterSchema(ctx, spec, content)
	if regErr != nil {
		s.logger.Warn("schema registry registration failed; file kept in storage",
			"subject", subject, "error", regErr)
		artifact := domain.SchemaArtifact{
			Subject: subject, Version: 1, StorageURL: storageURL,
			Checksum: checksum(f.Content), ChangeID: req.ChangeID,
		}
		if err := s.store.SaveSchemaArtifact(ctx, artifact); err != nil {
			return domain.SchemaArtifact{}, err
		}
		return artifact, nil
	}

	if err := s.registry.SetCompatibilityMode(ctx, subject, compat); err != nil {
		s.logger.Warn("set compatibility mode failed after registration", "subject", subject, "error", err)
	}

	artifact := domain.SchemaArtifact{
		Subject: subject, Version: version, StorageURL: storageURL,
		Checksum: checksum(f.Content), ChangeID: req.ChangeID,
	}
	if err := s.store.SaveSchemaArtifact(ctx, artifact); err != nil {
		return domain.SchemaArtifact{}, err
	}
	s.bus.Publish(ctx, eventbus.SchemaRegisteredEvent{ChangeID: req.ChangeID, Artifact: artifact})
	return artifact, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// shortHash derives a short, deterministic upload suffix from the request
// contents, replacing the source's random uuid4 suffix — Date.now/rand are
// unavailable at this layer and determinism makes retries idempotent.
func shortHash(changeID string, files []InputFile) string {
	h := sha256.New()
	io.WriteString(h, changeID)
	for _, f := range files {
		h.Write(f.Content)
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}
