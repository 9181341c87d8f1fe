package server

import (
	"context"
	"encoding/json"
	"net/http"

	"contract-review/internal/config"
	"contract-review/internal/db"
	"contract-review/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
)

// ContractAnalyzer runs the full review pipeline for one uploaded PDF.
type ContractAnalyzer interface {
	AnalyzeContract(ctx context.Context, pdfPath string) (*models.ContractReport, error)
}

// AccountStore verifies API keys and meters credits.
type AccountStore interface {
	Verify(ctx context.Context, apiKey string) (*db.Profile, error)
	Deduct(ctx context.Context, userID string) error
}

// Server wires the analysis pipeline and the account store behind the HTTP
// endpoints.
type Server struct {
	cfg      *config.Config
	analyzer ContractAnalyzer
	accounts AccountStore
}

func New(cfg *config.Config, analyzer ContractAnalyzer, accounts AccountStore) *Server {
	return &Server{cfg: cfg, analyzer: analyzer, accounts: accounts}
}

// Router builds the HTTP routing table: a liveness endpoint at the root and
// the upload-and-analyze endpoint gated by the API-key middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(s.cfg.Server.AllowedOrigins))

	r.Get("/", s.handleRoot)

	r.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.accounts))
		r.Post("/analyze", s.handleAnalyze)
	})

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Contract Review API is running"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// dbAccounts is the Postgres-backed account store.
type dbAccounts struct {
	db *bun.DB
}

func NewAccounts(bunDB *bun.DB) AccountStore {
	return &dbAccounts{db: bunDB}
}

func (a *dbAccounts) Verify(ctx context.Context, apiKey string) (*db.Profile, error) {
	profile, _, err := db.VerifyAPIKey(ctx, a.db, apiKey)
	return profile, err
}

func (a *dbAccounts) Deduct(ctx context.Context, userID string) error {
	return db.DeductCredit(ctx, a.db, userID)
}
