package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docgraph/internal/config"
	"github.com/dgallion1/docgraph/internal/graph"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/pipeline"
	"github.com/dgallion1/docgraph/internal/rules"
)

// handleParse structures one uploaded document synchronously and returns
// the requested view.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	file.Close()
	filename, data, code, err := s.readUpload(header)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	params, err := s.params(r)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	format, err := graph.ParseFormat(r.FormValue("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := s.proc.Run(r.Context(), pipeline.Request{
		Filename:  filename,
		Data:      data,
		Params:    params,
		Analytics: formBool(r, "analytics"),
		SkipCache: formBool(r, "skip_cache"),
	})
	if err != nil {
		code := statusFor(err)
		if code >= 500 {
			s.log.Error("parse failed", "filename", filename, "error", err)
		}
		jsonError(w, err.Error(), code)
		return
	}

	cache := "miss"
	if out.CacheHit {
		cache = "hit"
	}
	w.Header().Set("X-Cache", cache)
	w.Header().Set("Content-Type", "application/json")
	if err := graph.Write(w, out.Doc, format); err != nil {
		s.log.Warn("write response", "error", err)
	}
}

// params resolves the parameter set named by the doc_type form value.
func (s *Server) params(r *http.Request) (config.Parsing, error) {
	docType := config.DocumentType(r.FormValue("doc_type"))
	if docType == "" {
		docType = s.cfg.DefaultDocType
	}
	p, err := config.Resolve(docType, s.overrides)
	if err != nil {
		return config.Parsing{}, err
	}
	if formBool(r, "minimal") {
		p = p.MinimalOnly()
	}
	return p, nil
}

// readUpload validates and reads one uploaded file. On failure it returns
// the HTTP status to answer with.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return filename, nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return filename, nil, http.StatusInternalServerError, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return filename, nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return filename, data, 0, nil
}

// statusFor maps processing errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		ordering *rules.OrderingError
		defect   *graph.DefectError
		extract  *pipeline.ExtractError
	)
	switch {
	case config.IsConfigError(err), errors.Is(err, parser.ErrUnsupported):
		return http.StatusBadRequest
	case errors.As(err, &ordering), errors.As(err, &extract):
		return http.StatusUnprocessableEntity
	case errors.As(err, &defect):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.FormValue(key))
	return b
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
