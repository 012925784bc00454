package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/whatsapp-digest/internal/gateway"
	"github.com/whatsapp-digest/internal/models"
)

// Store is the persistence used by the dashboard API
type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error

	ListGroups(ctx context.Context) ([]models.Group, error)
	ListTargetGroups(ctx context.Context, ids []string) ([]models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	UpdateGroup(ctx context.Context, id string, patch models.GroupPatch) (*models.Group, error)
	DeleteGroups(ctx context.Context, ids []string) (groups, reports int, err error)

	ListPrompts(ctx context.Context) ([]models.Prompt, error)
	GetPrompt(ctx context.Context, id string) (*models.Prompt, error)
	CreatePrompt(ctx context.Context, prompt *models.Prompt) error
	UpdatePrompt(ctx context.Context, id, name, content string) (*models.Prompt, error)
	DeletePrompt(ctx context.Context, id string) error

	ListReports(ctx context.Context, limit int) ([]models.Report, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)

	CreateBroadcast(ctx context.Context, broadcast *models.Broadcast) error
	ListBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error)
	GetBroadcast(ctx context.Context, id string) (*models.Broadcast, error)

	ListTemplates(ctx context.Context) ([]models.MessageTemplate, error)
	CreateTemplate(ctx context.Context, template *models.MessageTemplate) error
	UpdateTemplate(ctx context.Context, id, name, content string) (*models.MessageTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error

	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
}

// Processor runs and redelivers reports
type Processor interface {
	Process(ctx context.Context, opts models.ProcessOptions) (*models.ProcessResult, error)
	Resend(ctx context.Context, reportID string) (*models.Report, error)
	EnsureDefaultPrompt(ctx context.Context, settings *models.Settings) (string, error)
}

// Gateway sends messages and lists the instance's groups
type Gateway interface {
	SendMessage(ctx context.Context, jid, text string) error
	FetchAllGroups(ctx context.Context) ([]gateway.RemoteGroup, error)
}

// GatewayFactory builds a gateway from the current settings
type GatewayFactory func(settings *models.Settings) (Gateway, error)

// Rewriter rewrites free text following an instruction
type Rewriter interface {
	Rewrite(ctx context.Context, text, instruction string) (string, error)
	Close() error
}

// RewriterFactory builds a rewriter from the current settings
type RewriterFactory func(settings *models.Settings) (Rewriter, error)

// Config holds the HTTP layer settings
type Config struct {
	Password     string
	SecureCookie bool
}

// Server is the dashboard HTTP API
type Server struct {
	router      *chi.Mux
	store       Store
	processor   Processor
	newGateway  GatewayFactory
	newRewriter RewriterFactory
	config      Config
	validate    *validator.Validate
	logger      zerolog.Logger
}

// NewServer creates the API and registers its routes
func NewServer(store Store, processor Processor, newGateway GatewayFactory, newRewriter RewriterFactory, config Config, logger zerolog.Logger) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		store:       store,
		processor:   processor,
		newGateway:  newGateway,
		newRewriter: newRewriter,
		config:      config,
		validate:    validator.New(),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/process", s.handleProcess)
			r.Get("/stats/dashboard", s.handleDashboardStats)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", s.handleListReports)
				r.Get("/{id}", s.handleGetReport)
				r.Post("/{id}/resend", s.handleResendReport)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", s.handleListGroups)
				r.Post("/", s.handleCreateGroup)
				r.Delete("/", s.handleDeleteGroups)
				r.Get("/remote", s.handleRemoteGroups)
				r.Put("/{id}", s.handleUpdateGroup)
				r.Delete("/{id}", s.handleDeleteGroup)
			})

			r.Route("/prompts", func(r chi.Router) {
				r.Get("/", s.handleListPrompts)
				r.Post("/", s.handleCreatePrompt)
				r.Put("/{id}", s.handleUpdatePrompt)
				r.Delete("/{id}", s.handleDeletePrompt)
			})

			r.Get("/settings", s.handleGetSettings)
			r.Post("/settings", s.handleSaveSettings)

			r.Route("/messages", func(r chi.Router) {
				r.Get("/broadcasts", s.handleListBroadcasts)
				r.Post("/send", s.handleSendMessage)
				r.Post("/rewrite", s.handleRewrite)
				r.Get("/{id}", s.handleGetBroadcast)
			})

			r.Route("/message-templates", func(r chi.Router) {
				r.Get("/", s.handleListTemplates)
				r.Post("/", s.handleCreateTemplate)
				r.Put("/{id}", s.handleUpdateTemplate)
				r.Delete("/{id}", s.handleDeleteTemplate)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
