// Package api exposes the HTTP front end: uploads are stored, recorded as
// processing and queued; status and download endpoints read the status store.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/text/language"

	"github.com/dharsanguruparan/doctranslate/internal/artifact"
	"github.com/dharsanguruparan/doctranslate/internal/config"
	"github.com/dharsanguruparan/doctranslate/internal/model"
	"github.com/dharsanguruparan/doctranslate/internal/queue"
	"github.com/dharsanguruparan/doctranslate/internal/status"
	"github.com/dharsanguruparan/doctranslate/internal/worker"
)

// ErrNotReady is returned when a download is requested for a job that has not
// completed.
var ErrNotReady = errors.New("file processing not completed")

// Server exposes HTTP endpoints for uploads, status polling and downloads.
type Server struct {
	cfg      *config.Config
	statuses status.Store
	inputs   artifact.Store
	outputs  artifact.Store
	queue    queue.Enqueuer
	logger   *slog.Logger
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, statuses status.Store, inputs, outputs artifact.Store, q queue.Enqueuer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		statuses: statuses,
		inputs:   inputs,
		outputs:  outputs,
		queue:    q,
		logger:   logger,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", "address", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/upload/{id}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/download/{id}", s.handleDownload).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return corsMiddleware(s.loggingMiddleware(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	FileID string      `json:"fileId"`
	Status model.State `json:"status"`
}

type statusResponse struct {
	FileID string       `json:"fileId"`
	Status model.Status `json:"status"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	form, err := s.readForm(mr)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(form.file.path)
	defer form.file.f.Close()

	lang, err := s.targetLanguage(form.language)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.NewString()
	loc, err := s.inputs.Put(ctx, id+"-"+form.file.filename, form.file.f, form.file.size)
	if err != nil {
		s.logger.Error("store upload", "job_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if err := s.statuses.Set(ctx, id, model.Processing()); err != nil {
		s.logger.Error("record status", "job_id", id, "error", err)
		_ = s.inputs.Remove(ctx, loc)
		respondError(w, http.StatusInternalServerError, "failed to record job")
		return
	}
	job := model.Job{
		ID:             id,
		InputPath:      loc,
		TargetLanguage: lang,
		OriginalName:   form.file.filename,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("enqueue job", "job_id", id, "error", err)
		_ = s.statuses.Set(ctx, id, model.Failed(worker.MsgProcessingFailed))
		_ = s.inputs.Remove(ctx, loc)
		respondError(w, http.StatusServiceUnavailable, "failed to queue job")
		return
	}
	s.logger.Info("upload accepted",
		"job_id", id,
		"name", form.file.filename,
		"size", humanize.Bytes(uint64(form.file.size)),
		"language", lang,
		"kind", job.Kind(),
	)
	respondJSON(w, http.StatusAccepted, uploadResponse{FileID: id, Status: model.StateProcessing})
}

// targetLanguage validates the requested language, falling back to the
// configured default when none was given.
func (s *Server) targetLanguage(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.cfg.DefaultLanguage, nil
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid language %q", raw)
	}
	return tag.String(), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := s.statuses.Get(r.Context(), id)
	if errors.Is(err, status.ErrNotFound) {
		respondError(w, http.StatusNotFound, "invalid file id")
		return
	}
	if err != nil {
		s.logger.Error("read status", "job_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read status")
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{FileID: id, Status: st})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	loc, err := s.completedOutput(ctx, id)
	switch {
	case errors.Is(err, status.ErrNotFound):
		respondError(w, http.StatusNotFound, "invalid file id")
		return
	case errors.Is(err, ErrNotReady):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.logger.Error("read status", "job_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	if p, ok := s.outputs.(artifact.Presigner); ok {
		url, err := p.PresignGet(ctx, loc, s.cfg.SignedURLTTL)
		if err != nil {
			s.logger.Error("presign output", "job_id", id, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to generate url")
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	data, err := s.outputs.Get(ctx, loc)
	if errors.Is(err, artifact.ErrNotFound) {
		respondError(w, http.StatusNotFound, "translated file missing")
		return
	}
	if err != nil {
		s.logger.Error("read output", "job_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "file unavailable")
		return
	}
	name := filepath.Base(loc)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

// completedOutput returns the output location of a completed job, or
// ErrNotReady while it is processing or after it failed.
func (s *Server) completedOutput(ctx context.Context, id string) (string, error) {
	st, err := s.statuses.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if st.State != model.StateCompleted {
		return "", fmt.Errorf("job %s is %s: %w", id, st.State, ErrNotReady)
	}
	return st.OutputPath, nil
}

type uploadForm struct {
	file     *tempUpload
	language string
}

type tempUpload struct {
	f        *os.File
	path     string
	size     int64
	filename string
}

// readForm walks every part so the language field may come before or after
// the file.
func (s *Server) readForm(mr *multipart.Reader) (*uploadForm, error) {
	form := &uploadForm{}
	cleanup := func() {
		if form.file != nil {
			form.file.f.Close()
			os.Remove(form.file.path)
		}
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cleanup()
			return nil, errors.New("failed to read upload")
		}
		switch {
		case part.FormName() == "file" && form.file == nil:
			tmp, err := s.persistTemp(part)
			part.Close()
			if err != nil {
				cleanup()
				return nil, err
			}
			form.file = tmp
		case part.FormName() == "language":
			b, err := io.ReadAll(io.LimitReader(part, 64))
			part.Close()
			if err != nil {
				cleanup()
				return nil, errors.New("failed to read language")
			}
			form.language = string(b)
		default:
			part.Close()
		}
	}
	if form.file == nil {
		return nil, errors.New("no file uploaded")
	}
	if _, err := form.file.f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	return form, nil
}

func (s *Server) persistTemp(part *multipart.Part) (*tempUpload, error) {
	tmpFile, err := os.CreateTemp("", "doctranslate-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	fail := func(err error) (*tempUpload, error) {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, err
	}
	buf := make([]byte, 32*1024)
	var written int64
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.MaxFileSize {
				return fail(fmt.Errorf("file exceeds limit (%s)", humanize.Bytes(uint64(s.cfg.MaxFileSize))))
			}
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				return fail(fmt.Errorf("write temp file: %w", err))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fail(fmt.Errorf("read file: %w", readErr))
		}
	}
	if written == 0 {
		return fail(errors.New("empty file"))
	}
	filename := filepath.Base(part.FileName())
	if filename == "." || filename == string(filepath.Separator) {
		filename = "upload"
	}
	return &tempUpload{
		f:        tmpFile,
		path:     tmpFile.Name(),
		size:     written,
		filename: filename,
	}, nil
}
