package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rsswatch/domain"
	"rsswatch/internal/health"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrAlreadyRunning = errors.New("already running")

// TryListen tries to bind the control address. If it's already in use, we assume an instance is running.
func TryListen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, ErrAlreadyRunning
	}
	return ln, nil
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Running          bool       `json:"running"`
	Refreshing       bool       `json:"refreshing"`
	FeedCount        int        `json:"feed_count"`
	LastRefresh      *time.Time `json:"last_refresh,omitempty"`
	NextRefresh      *time.Time `json:"next_refresh,omitempty"`
	TimeUntilRefresh string     `json:"time_until_refresh"`
	NeedsRefresh     bool       `json:"needs_refresh"`
	Interval         string     `json:"interval"`
	Schedule         string     `json:"schedule,omitempty"`
	Workers          int        `json:"workers"`
	MaxRetries       int        `json:"max_retries"`
	RetryDelay       string     `json:"retry_delay"`
}

type Server struct {
	ctx    context.Context
	sched  domain.Scheduler
	log    *zap.Logger
	router chi.Router
	now    func() time.Time
	bg     sync.WaitGroup
}

// NewServer builds the control API. ctx bounds the scheduler runs and manual
// refreshes the server starts.
func NewServer(ctx context.Context, sched domain.Scheduler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{ctx: ctx, sched: sched, log: log, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/set-interval", s.handleSetInterval)
	r.Post("/set-workers", s.handleSetWorkers)
	r.Get("/status", s.handleStatus)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until background refreshes started over the API have returned.
func (s *Server) Wait() {
	s.bg.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("control request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration string `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid duration: %v", err))
		return
	}
	if d <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be > 0")
		return
	}

	old := s.sched.CurrentInterval()
	s.sched.SetInterval(d)
	s.log.Info("interval changed over control API", zap.Duration("old", old), zap.Duration("new", d))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "old": old.String(), "new": d.String()})
}

func (s *Server) handleSetWorkers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Workers int `json:"workers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	old := s.sched.CurrentWorkers()
	if err := s.sched.Resize(req.Workers); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "old": old, "new": req.Workers})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.sched.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Running:          st.Running,
		Refreshing:       st.Refreshing,
		FeedCount:        st.FeedCount,
		LastRefresh:      st.LastRefresh,
		NextRefresh:      st.NextRefresh,
		TimeUntilRefresh: health.TimeUntil(st.NextRefresh, s.now()),
		NeedsRefresh:     s.sched.NeedsRefresh(),
		Interval:         st.Config.Interval.String(),
		Schedule:         st.Config.Schedule,
		Workers:          st.Config.Workers,
		MaxRetries:       st.Config.MaxRetries,
		RetryDelay:       st.Config.RetryDelay.String(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	done, err := s.sched.TriggerRefresh(s.ctx)
	if errors.Is(err, domain.ErrRefreshInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		<-done
	}()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Start(s.ctx); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.sched.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "running": false})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
