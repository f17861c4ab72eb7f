package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"voicecollect/internal/blobstore"
	"voicecollect/internal/config"
	"voicecollect/internal/export"
	"voicecollect/internal/logging"
	"voicecollect/internal/metrics"
	"voicecollect/internal/recorder"
	"voicecollect/internal/services"
)

// multipartOverhead is the allowance for form fields and boundaries on top
// of the audio size limit.
const multipartOverhead = 64 << 10

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	cfg     *config.Config
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
		cfg:    cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/phrases/next", srv.handleNextPhrase)
	mux.HandleFunc("POST /api/submissions", srv.handleSubmission)
	mux.HandleFunc("GET /api/contributors/{id}/stats", srv.handleContributorStats)
	mux.HandleFunc("GET /api/export/submissions", srv.handleExport)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", d.deps.Metrics.Handler())
	}
	if root, ok := blobstore.LocalRoot(d.deps.Blobs); ok {
		mux.Handle("GET /audio/", http.StripPrefix("/audio/", noDirectoryListing(http.FileServer(http.Dir(root)))))
	}
	if static := strings.TrimSpace(cfg.Paths.StaticDir); static != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(static)))
	}

	srv.handler = srv.withRequestContext(mux)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) listen() error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	return nil
}

func (s *apiServer) addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("api server not listening")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api server listening", logging.String("address", s.listener.Addr().String()))
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) handleNextPhrase(w http.ResponseWriter, r *http.Request) {
	phrase, err := s.daemon.deps.Repository.NextAvailablePhrase(r.Context())
	if err != nil {
		s.daemon.deps.Metrics.RecordPhraseRequest(metrics.PhraseError)
		s.writeError(w, r, err)
		return
	}
	if phrase == nil {
		s.daemon.deps.Metrics.RecordPhraseRequest(metrics.PhraseExhausted)
		s.writeJSON(w, http.StatusOK, map[string]bool{"exhausted": true})
		return
	}
	s.daemon.deps.Metrics.RecordPhraseRequest(metrics.PhraseServed)
	s.writeJSON(w, http.StatusOK, phrase)
}

func (s *apiServer) handleSubmission(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Collection.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, services.Wrap(services.ErrInvalidMedia, "api", "upload", "request body too large", recorder.ErrPayloadTooLarge))
			return
		}
		s.writeError(w, r, services.Wrap(services.ErrInvalidMedia, "api", "upload", "expected multipart/form-data", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	phraseID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("phrase_id")), 10, 64)
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrInvalidMedia, "api", "upload", "phrase_id must be an integer", err))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrInvalidMedia, "api", "upload", "audio file field is required", err))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrInvalidMedia, "api", "upload", "read audio file", err))
		return
	}

	result, err := s.daemon.deps.Recorder.RecordSubmission(r.Context(), recorder.Request{
		PhraseID:      phraseID,
		ContributorID: contributorField(r),
		MediaType:     uploadMediaType(header.Header.Get("Content-Type"), header.Filename),
		Audio:         data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

// contributorField accepts the legacy user_id and email field names.
func contributorField(r *http.Request) string {
	for _, key := range []string{"contributor_id", "user_id", "email"} {
		if value := strings.TrimSpace(r.FormValue(key)); value != "" {
			return value
		}
	}
	return ""
}

// uploadMediaType prefers the part's declared type and falls back to the
// file extension when browsers send a generic type.
func uploadMediaType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return declared
}

func (s *apiServer) handleContributorStats(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeError(w, r, services.Wrap(services.ErrInvalidMedia, "api", "stats", "contributor id is required", nil))
		return
	}
	count, err := s.daemon.deps.Repository.ContributorCount(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"contributor_id": id, "count": count})
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("format")
	if value == "" {
		value = s.cfg.Export.Format
	}
	format, err := export.ParseFormat(value)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Kind: "BadRequest", Message: err.Error()}})
		return
	}
	var buf bytes.Buffer
	rows, err := s.daemon.deps.Reporter.Write(r.Context(), &buf, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": format.FileName()}))
	w.Header().Set("X-Export-Rows", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.deps.Repository.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func noDirectoryListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}
