// Package devstub implements a local stand-in for the remote assessment
// service: auth endpoints minting real HS256 tokens and a scripted
// interviewer. It exists for development and end-to-end runs of the client
// core; production talks to the real backend.
package devstub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hrbooteh/assessor/internal/middleware"
)

// Server holds the stub's in-memory state. Everything is lost on restart,
// which is the point: it mirrors a fresh backend per dev session.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu            sync.Mutex
	users         map[string]*account // keyed by email
	refreshTokens map[string]int64    // refresh token -> user id
	assessments   map[int64]*assessmentRecord
	nextUserID    int64
	nextSessionID int64
	nextMessageID int64
}

// Config tunes the stub backend.
type Config struct {
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	AllowedOrigins []string
}

type account struct {
	ID        int64
	Email     string
	FullName  string
	Password  string
	IsActive  bool
	CreatedAt time.Time
}

type assessmentRecord struct {
	ID             int64
	AssessmentType string
	UserID         int64
	Status         string
	Analysis       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Messages       []storedMessage
	userTurns      int
}

type storedMessage struct {
	ID           int64     `json:"id"`
	AssessmentID int64     `json:"assessment_id"`
	Sender       string    `json:"sender"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewServer creates an empty stub backend.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Server{
		cfg:           cfg,
		logger:        logger,
		users:         make(map[string]*account),
		refreshTokens: make(map[string]int64),
		assessments:   make(map[int64]*assessmentRecord),
	}
}

// Router builds the HTTP surface the client core consumes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(s.cfg.AllowedOrigins))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/me", s.handleMe)
		})
		r.Route("/assessments", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Get("/user", s.handleUserAssessments)
			r.Post("/{assessmentID}/message", s.handleMessage)
			r.Get("/{assessmentID}/results", s.handleResults)
			r.Get("/{assessmentID}", s.handleDetails)
		})
	})

	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a FastAPI-shaped error response: the detail field carries
// the human-readable text.
func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "assessor-devstub",
		"version": "dev",
	})
}

func newRefreshToken() string {
	return uuid.NewString()
}
