package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/liamcoop/iris/classifier"
	"github.com/liamcoop/iris/form"
	"github.com/liamcoop/iris/internal/config"
	"github.com/liamcoop/iris/internal/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	sessionCookie = "iris_session"
	maxBodyBytes  = 1 << 16

	noticeBadSubmission = "The form submission could not be read"
)

type Server struct {
	cfg        *config.Config
	classifier classifier.Classifier
	engine     *classifier.RuleEngine
	sessions   form.Store
	page       *template.Template
	router     *chi.Mux
}

func NewServer(cfg *config.Config, sessions form.Store) (*Server, error) {
	// The rule engine always backs explain traces, even when the
	// native classifier answers requests
	engine, err := classifier.NewRuleEngine()
	if err != nil {
		return nil, err
	}

	var c classifier.Classifier = classifier.Native{}
	if cfg.Engine == config.EngineCEL {
		c = engine
	}

	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		classifier: c,
		engine:     engine,
		sessions:   sessions,
		page:       page,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.requestMetrics)
	r.Use(middleware.Timeout(s.cfg.HTTP.WriteTimeout))

	// Predictor page
	r.Get("/", s.handleIndex)
	r.Post("/", s.handleSubmit)
	r.Post("/reset", s.handleReset)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/rules", s.handleListRules)
		r.Post("/classify", s.handleClassify)
		r.Delete("/session", s.handleDeleteSession)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestMetrics feeds the logger's HTTP counters
func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		switch status := ww.Status(); {
		case status >= 500:
			logger.ErrorHttp5xx()
		case status >= 400:
			logger.WarnHttp4xx(status)
		}

		if elapsed := time.Since(start); s.cfg.HTTP.SlowRequest > 0 && elapsed > s.cfg.HTTP.SlowRequest {
			logger.WarnSlowRequest()
			logger.Warn("slow request", "method", r.Method, "path", r.URL.Path, "elapsed", elapsed.String())
		}
	})
}

// session returns the visitor's form, issuing a session cookie if needed
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *form.Form) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), s.sessions.GetOrCreate(id.String())
		}
	}

	id := uuid.NewString()
	f := form.New()
	if err := s.sessions.Save(id, f); err != nil {
		logger.Error("failed to save session", "session", id, "error", err)
	}

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl := s.cfg.Session.TTL; ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)

	return id, f
}

// Page handlers

type fieldView struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
}

type pageData struct {
	form.Snapshot
	Fields []fieldView
}

var fieldLabels = map[string][2]string{
	form.FieldSepalLength: {"Sepal Length (cm)", "e.g., 5.1"},
	form.FieldSepalWidth:  {"Sepal Width (cm)", "e.g., 3.5"},
	form.FieldPetalLength: {"Petal Length (cm)", "e.g., 1.4"},
	form.FieldPetalWidth:  {"Petal Width (cm)", "e.g., 0.2"},
}

func (s *Server) render(w http.ResponseWriter, status int, snap form.Snapshot) {
	data := pageData{Snapshot: snap}
	for _, name := range form.Fields {
		value, _ := snap.Values.Get(name)
		data.Fields = append(data.Fields, fieldView{
			Name:        name,
			Label:       fieldLabels[name][0],
			Placeholder: fieldLabels[name][1],
			Value:       value,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		logger.Error("failed to render page", "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, f := s.session(w, r)
	s.render(w, http.StatusOK, f.Snapshot())
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, f := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		logger.Debug("unreadable form submission", "session", id, "error", err)
		snap := f.Snapshot()
		snap.Notice = noticeBadSubmission
		s.render(w, http.StatusBadRequest, snap)
		return
	}

	raw := form.RawMeasurement{
		SepalLength: r.PostFormValue(form.FieldSepalLength),
		SepalWidth:  r.PostFormValue(form.FieldSepalWidth),
		PetalLength: r.PostFormValue(form.FieldPetalLength),
		PetalWidth:  r.PostFormValue(form.FieldPetalWidth),
	}

	res, err := f.SubmitRaw(r.Context(), raw, s.classifier, s.cfg.PredictDelay)
	switch {
	case err == nil:
		logger.Info("flower classified",
			"session", id,
			"species", res.Species,
			"confidence", res.Confidence,
			"branch", res.Branch,
		)
		s.render(w, http.StatusOK, f.Snapshot())

	case form.IsValidation(err):
		logger.Debug("form rejected", "session", id, "error", err)
		s.render(w, http.StatusUnprocessableEntity, f.Snapshot())

	case errors.Is(err, form.ErrBusy):
		// the pending submission keeps its inputs
		snap := f.Snapshot()
		snap.Notice = form.Notice(err)
		s.render(w, http.StatusConflict, snap)

	default:
		// Request canceled or timed out while waiting; the timeout
		// middleware answers for deadlines
		logger.Debug("prediction abandoned", "session", id, "error", err)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	_, f := s.session(w, r)
	f.Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// API handlers

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, RulesResponse{
		Engine: s.cfg.Engine,
		Rules:  s.engine.Rules(),
	})
}

// handleDeleteSession forgets the visitor's form and clears the cookie
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found", err)
		return
	}

	if err := s.sessions.Delete(c.Value); err != nil {
		respondError(w, http.StatusNotFound, "session not found", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Engine:   s.cfg.Engine,
		Sessions: s.sessions.Len(),
		Counters: logger.Snapshot(),
	})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	explain := false
	if v := r.URL.Query().Get("explain"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "explain must be a boolean", err)
			return
		}
		explain = b
	}

	m, err := form.Parse(req.raw())
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, form.Notice(err), err)
		return
	}

	var (
		res   classifier.Result
		trace []classifier.Evaluation
	)
	if explain {
		res, trace = s.engine.Explain(m)
	} else {
		res = s.classifier.Classify(m)
	}

	respondJSON(w, http.StatusOK, newClassifyResponse(uuid.NewString(), res, m, trace))
}

// sweepSessions removes expired sessions until ctx is done
func (s *Server) sweepSessions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("IRIS_CONFIG"), "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	if cfg.Log.Level != "" {
		// Validate has already accepted the level
		level, _ := logger.ParseLevel(cfg.Log.Level)
		logger.SetLevel(level)
	}
	logger.SetSampleRate(cfg.Log.SampleRate)

	sessions := form.NewInMemoryStore(form.StoreConfig{TTL: cfg.Session.TTL})

	server, err := NewServer(cfg, sessions)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Session.TTL > 0 {
		go server.sweepSessions(ctx, cfg.Session.SweepInterval)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			"addr", httpServer.Addr,
			"engine", cfg.Engine,
			"predictDelay", cfg.PredictDelay.String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")

	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}
}
