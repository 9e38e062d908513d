package api

import (
	"log/slog"
	"time"

	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/api/handlers"
	"github.com/cmclain4200/approcure/internal/api/middleware"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/budget"
	"github.com/cmclain4200/approcure/internal/membership"
	"github.com/cmclain4200/approcure/internal/projects"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	Tokens      auth.TokenService
	AuthService auth.Authenticator
	Resolver    middleware.IdentityResolver
	AccessCodes *accesscode.Service
	Requests    *requests.Manager
	Budget      *budget.Service
	Projects    *projects.Service
	Members     *membership.Service

	AllowedOrigins []string      // CORS allowed origins
	RateLimitReqs  int           // Rate limit requests per window
	RateLimitSecs  int           // Rate limit window in seconds
	ClaimLimitReqs int           // Per-user access code claims per window
	StoreTimeout   time.Duration // Deadline applied to every API request
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow localhost in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	codeHandler := handlers.NewAccessCodeHandler(cfg.AccessCodes)
	requestHandler := handlers.NewRequestHandler(cfg.Requests)
	projectHandler := handlers.NewProjectHandler(cfg.Projects, cfg.Budget)
	memberHandler := handlers.NewMemberHandler(cfg.Members)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.StoreDeadline(cfg.StoreTimeout))

		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/roles", handlers.Roles)

		// Authenticated, organization membership optional
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Tokens))
			r.Use(middleware.Identity(cfg.Resolver))

			r.Get("/me", authHandler.Me)
			r.Post("/organizations", authHandler.CreateOrganization)

			r.With(middleware.RateLimitByUser(cfg.ClaimLimitReqs, cfg.RateLimitSecs)).
				Post("/access-codes/claim", codeHandler.Claim)

			// Organization members
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMember)

				r.Route("/access-codes", func(r chi.Router) {
					r.Get("/", codeHandler.List)
					r.Post("/", codeHandler.Issue)
					r.Post("/{id}/disable", codeHandler.Disable)
				})

				r.Route("/requests", func(r chi.Router) {
					r.Get("/", requestHandler.List)
					r.Post("/", requestHandler.Create)
					r.Get("/pending", requestHandler.Pending)
					r.Get("/needs-attention", requestHandler.NeedsAttention)
					r.Get("/vendor-count", requestHandler.VendorCount)
					r.Get("/{id}", requestHandler.Get)
					r.Get("/{id}/history", requestHandler.History)
					r.Post("/{id}/submit", requestHandler.Submit)
					r.Post("/{id}/approve", requestHandler.Approve)
					r.Post("/{id}/reject", requestHandler.Reject)
					r.Post("/{id}/purchase", requestHandler.Purchase)
					r.Put("/{id}/coding", requestHandler.UpdateCoding)
				})

				r.Route("/projects", func(r chi.Router) {
					r.Get("/", projectHandler.List)
					r.Post("/", projectHandler.Create)
					r.Get("/{id}", projectHandler.Get)
					r.Get("/{id}/budget", projectHandler.Budget)
					r.Put("/{id}/budget", projectHandler.SetBudget)
					r.Get("/{id}/budget/impact", projectHandler.BudgetImpact)
					r.Get("/{id}/finance-requirements", projectHandler.FinanceRequirements)
					r.Put("/{id}/finance-requirements", projectHandler.SetFinanceRequirements)
					r.Put("/{id}/members/{userID}", memberHandler.AssignProjectRole)
					r.Delete("/{id}/members/{userID}", memberHandler.RemoveProjectRole)
				})

				r.Get("/budget", projectHandler.BudgetOverview)

				r.Get("/cost-codes", projectHandler.CostCodes)
				r.Post("/cost-codes", projectHandler.CreateCostCode)
				r.Get("/vendors", projectHandler.Vendors)
				r.Post("/vendors", projectHandler.CreateVendor)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", memberHandler.List)
					r.Post("/leave", memberHandler.Leave)
					r.Put("/{userID}/role", memberHandler.SetOrgRole)
					r.Put("/{userID}/disabled", memberHandler.SetDisabled)
				})
			})
		})
	})

	return &Router{r}
}
