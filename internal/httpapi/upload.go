package httpapi

import (
	"io"
	"net/http"

	"github.com/kafkagov/controlplane/internal/apperrors"
	"github.com/kafkagov/controlplane/internal/domain"
	"github.com/kafkagov/controlplane/internal/schemaupload"
)

const maxUploadMemory = 32 << 20

// handleSchemaUpload serves POST /schemas/upload: multipart files + env +
// change_id + owner + compatibility (spec.md §6). storage_id and
// registry_id select the backends via query parameters, consistent with
// the other batch endpoints' cluster_id/registry_id convention.
func (a *API) handleSchemaUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, apperrors.Invariant("malformed multipart form: %s", err.Error()))
		return
	}

	env, err := parseEnvironment(r.FormValue("env"))
	if err != nil {
		writeError(w, err)
		return
	}
	changeID := r.FormValue("change_id")
	if changeID == "" {
		writeError(w, apperrors.Invariant("change_id is required"))
		return
	}

	req := schemaupload.Request{
		ChangeID:      changeID,
		Env:           env,
		Owner:         r.FormValue("owner"),
		Actor:         actorOf(r),
		Compatibility: domain.CompatibilityMode(r.FormValue("compatibility")),
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, apperrors.Invariant("no files provided"))
		return
	}
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, apperrors.Invariant("failed to open uploaded file %s: %s", fh.Filename, err.Error()))
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, apperrors.Invariant("failed to read uploaded file %s: %s", fh.Filename, err.Error()))
			return
		}
		req.Files = append(req.Files, schemaupload.InputFile{Filename: fh.Filename, Content: content})
	}

	storage, _, err := a.Conn.GetObjectStorage(r.Context(), r.URL.Query().Get("storage_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	objStore, ok := storage.(schemaupload.ObjectStore)
	if !ok {
		writeError(w, apperrors.Backend("objstorage", apperrors.Invariant("unexpected object storage client type")))
		return
	}
	registry, err := a.schemaRegistryFor(r, registryID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	svc := schemaupload.New(objStore, registry, a.Store, a.Bus, a.Audit, a.Logger)
	result, err := svc.Upload(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
