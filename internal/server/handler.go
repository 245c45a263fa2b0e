package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mcav91/partfs/internal/logger"
	"github.com/mcav91/partfs/pkg/storage"
	"github.com/mcav91/partfs/pkg/upload"
)

// Header names understood by the upload surface.
const (
	// HeaderChecksum declares the expected checksum of the full payload,
	// as "ALGO value" or "ALGO:value".
	HeaderChecksum = "X-Upload-Checksum"

	// HeaderMTime declares a client-side modification time override in
	// unix seconds.
	HeaderMTime = "X-Upload-Mtime"
)

// Handler serves the upload namespace under /files/.
//
// PUT ingests whole files or individual chunks; GET and HEAD read committed
// content back. All failure responses are derived from the error kind so no
// internal error detail crosses the HTTP boundary.
type Handler struct {
	committer *upload.Committer
	assembler *upload.Assembler

	// reads is the published-namespace backend used by GET and HEAD.
	reads storage.Store

	// blockedExtensions maps lowercase extensions (with dot) that are
	// rejected as unsupported media.
	blockedExtensions map[string]bool
}

// HandlerConfig assembles a Handler.
type HandlerConfig struct {
	Committer *upload.Committer
	Assembler *upload.Assembler
	Reads     storage.Store

	// BlockedExtensions lists file extensions (".exe", ".tmp") that PUT
	// rejects with 415.
	BlockedExtensions []string
}

// NewHandler creates the upload handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Committer == nil {
		return nil, fmt.Errorf("committer is required")
	}
	if cfg.Assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if cfg.Reads == nil {
		return nil, fmt.Errorf("read store is required")
	}

	blocked := make(map[string]bool, len(cfg.BlockedExtensions))
	for _, ext := range cfg.BlockedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		blocked[ext] = true
	}

	return &Handler{
		committer:         cfg.Committer,
		assembler:         cfg.Assembler,
		reads:             cfg.Reads,
		blockedExtensions: blocked,
	}, nil
}

// ServeHTTP routes /files/<path> by method.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filePath, ok := strings.CutPrefix(r.URL.Path, "/files/")
	if !ok || filePath == "" {
		http.NotFound(w, r)
		return
	}

	// Staged bytes are not part of the published namespace: reads treat
	// them as absent and writes may not address them, directly or through
	// the chunk naming scheme.
	if upload.IsReservedPath(filePath) || upload.IsReservedPath(finalPathOf(filePath)) {
		if r.Method == http.MethodPut {
			writeKind(w, upload.KindForbidden, "path addresses a reserved namespace")
		} else {
			http.NotFound(w, r)
		}
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.handlePut(w, r, filePath)
	case http.MethodGet:
		h.handleGet(w, r, filePath, true)
	case http.MethodHead:
		h.handleGet(w, r, filePath, false)
	default:
		w.Header().Set("Allow", "PUT, GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request, filePath string) {
	ctx := r.Context()

	if ext := strings.ToLower(path.Ext(finalPathOf(filePath))); h.blockedExtensions[ext] {
		writeKind(w, upload.KindUnsupported,
			fmt.Sprintf("files with extension %s are not accepted", ext))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("Failed reading upload body for %s: %v", filePath, err)
		writeKind(w, upload.KindBadRequest, "could not read request body")
		return
	}

	checksum, err := parseChecksumHeader(r.Header.Get(HeaderChecksum))
	if err != nil {
		writeKind(w, upload.KindBadRequest, err.Error())
		return
	}

	mtime, err := parseMTimeHeader(r.Header.Get(HeaderMTime))
	if err != nil {
		writeKind(w, upload.KindBadRequest, err.Error())
		return
	}

	if upload.IsChunkPath(filePath) {
		h.handleChunkPut(w, r, filePath, body, checksum, mtime)
		return
	}

	result, err := h.committer.Commit(ctx, &upload.Request{
		Path:             filePath,
		Data:             body,
		DeclaredLength:   r.ContentLength,
		DeclaredChecksum: checksum,
		MTime:            mtime,
	})
	if err != nil {
		writeError(w, filePath, err)
		return
	}
	writeCommitResult(w, result)
}

// handleChunkPut stores one chunk; the chunk that completes the set triggers
// assembly and a regular commit on the target path.
func (h *Handler) handleChunkPut(w http.ResponseWriter, r *http.Request, chunkPath string, body []byte, checksum string, mtime *time.Time) {
	ctx := r.Context()

	info, err := upload.ParseChunkPath(chunkPath)
	if err != nil {
		writeKind(w, upload.KindBadRequest, err.Error())
		return
	}

	complete, err := h.assembler.SaveChunk(ctx, info, body, r.ContentLength)
	if err != nil {
		writeError(w, chunkPath, err)
		return
	}

	if !complete {
		// Accepted and staged; no entity exists yet, so no etag.
		w.WriteHeader(http.StatusCreated)
		return
	}

	data, err := h.assembler.Assemble(ctx, info)
	if err != nil {
		writeError(w, chunkPath, err)
		return
	}

	result, err := h.committer.Commit(ctx, &upload.Request{
		Path:             info.TargetPath,
		Data:             data,
		DeclaredLength:   -1, // the per-chunk lengths were already verified
		DeclaredChecksum: checksum,
		MTime:            mtime,
	})
	if err != nil {
		writeError(w, info.TargetPath, err)
		return
	}
	writeCommitResult(w, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, filePath string, includeBody bool) {
	ctx := r.Context()

	info, err := h.reads.Metadata(ctx, filePath)
	if err != nil {
		writeError(w, filePath, err)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("ETag", upload.ETagFor(info.Size, info.MTime))

	if !includeBody {
		w.WriteHeader(http.StatusOK)
		return
	}

	reader, err := h.reads.Read(ctx, filePath)
	if err != nil {
		writeError(w, filePath, err)
		return
	}
	defer reader.Close()

	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are gone; all we can do is log.
		logger.Warn("Failed streaming %s: %v", filePath, err)
	}
}

// finalPathOf resolves the path a PUT will eventually publish to, looking
// through the chunk naming scheme.
func finalPathOf(filePath string) string {
	if info, err := upload.ParseChunkPath(filePath); err == nil {
		return info.TargetPath
	}
	return filePath
}

// parseChecksumHeader normalizes "ALGO value" and "ALGO:value" declarations
// to the canonical "ALGO:value" form. An empty header means no declaration.
func parseChecksumHeader(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	algo, value, found := strings.Cut(raw, ":")
	if !found {
		algo, value, found = strings.Cut(raw, " ")
	}
	algo = strings.TrimSpace(algo)
	value = strings.TrimSpace(value)
	if !found || algo == "" || value == "" {
		return "", fmt.Errorf("malformed %s header %q", HeaderChecksum, raw)
	}

	return algo + ":" + value, nil
}

// parseMTimeHeader reads a unix-seconds modification time override.
func parseMTimeHeader(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed %s header %q", HeaderMTime, raw)
	}

	t := time.Unix(seconds, 0).UTC()
	return &t, nil
}

func writeCommitResult(w http.ResponseWriter, result *upload.CommitResult) {
	w.Header().Set("ETag", result.ETag)
	if result.Created {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusOK)
	}
}

// writeError maps a classified upload error onto its HTTP status. The
// response body carries only the kind's public description.
func writeError(w http.ResponseWriter, filePath string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	kind := upload.KindOf(err)
	if kind == upload.KindInternal {
		// Storage reads reach here unclassified.
		kind = upload.Classify(err)
	}

	if kind == upload.KindInternal {
		logger.Error("Request for %s failed: %v", filePath, err)
	} else {
		logger.Debug("Request for %s rejected (%s): %v", filePath, kind, err)
	}

	writeKind(w, kind, kind.String())
}

func writeKind(w http.ResponseWriter, kind upload.Kind, message string) {
	http.Error(w, message, kind.HTTPStatus())
}
