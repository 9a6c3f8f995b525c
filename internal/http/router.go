// Package httpapi wires the HTTP transport (Gin) to the interview services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, redacted logging, panic recovery, metrics,
// compression, CORS, security headers, caller identity, idempotency, and
// rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-interview-backend/docs"
	"github.com/tbourn/go-interview-backend/internal/ai"
	"github.com/tbourn/go-interview-backend/internal/config"
	"github.com/tbourn/go-interview-backend/internal/http/handlers"
	"github.com/tbourn/go-interview-backend/internal/http/middleware"
	"github.com/tbourn/go-interview-backend/internal/keylock"
	"github.com/tbourn/go-interview-backend/internal/repo"
	"github.com/tbourn/go-interview-backend/internal/services"
)

// Services bundles the application services behind the HTTP API.
type Services struct {
	Sessions    *services.SessionService
	Streams     *services.StreamService
	Assessments *services.AssessmentService
	Worker      *services.ScoringWorker
}

// NewServices builds the service graph over db and the AI provider. The
// scoring worker is returned unstarted; the caller owns Start and Stop.
func NewServices(db *gorm.DB, model ai.Interviewer, cfg config.Config) *Services {
	jobs := repo.NewJobStore(db)

	assess := &services.AssessmentService{
		DB:          db,
		AI:          model,
		Jobs:        jobs,
		Locks:       keylock.New(),
		MaxAttempts: cfg.Scoring.MaxAttempts,
	}
	worker := services.NewScoringWorker(db, assess, cfg.Scoring.Workers, cfg.Scoring.RetrySchedule,
		log.With().Str("component", "scoring_worker").Logger())

	sessions := &services.SessionService{
		DB:              db,
		MaxTurns:        cfg.Interview.MaxTurns,
		MaxContentRunes: cfg.Interview.MaxContentRunes,
		Notifier:        worker,
	}
	streams := &services.StreamService{
		Sessions:    sessions,
		AI:          model,
		Jobs:        jobs,
		Locks:       keylock.New(),
		IdleTimeout: cfg.Interview.StreamIdleTimeout,
	}
	return &Services{Sessions: sessions, Streams: streams, Assessments: assess, Worker: worker}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the interview API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip (never on the reply stream)
//  8. CORS and security headers
//
// Inside the API group, Identity runs before the rate limiter so buckets are
// keyed per caller, and the idempotency validator guards message posts.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc *Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{streamPathPattern(apiBase)}),
	))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		EnablePolicy:    true,
		NoStorePrefixes: []string{joinPath(apiBase, "/sessions"), joinPath(apiBase, "/applications")},
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Sessions, svc.Streams, svc.Assessments, db)
	if cfg.IdempotencyTTL > 0 {
		h.SetIdempotencyTTL(cfg.IdempotencyTTL)
	}

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, sessionID, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, userID, sessionID, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return true, nil
		},
	)

	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.Identity(), rl.Handler())
	{
		// Applications
		api.POST("/applications/:id/session", h.StartSession)
		api.GET("/applications/:id/assessment", h.GetAssessment)
		api.POST("/applications/:id/screen", h.ScreenResume)

		// Sessions
		api.GET("/sessions/:id", h.GetSession)
		api.GET("/sessions/:id/messages", h.ListMessages)
		api.POST("/sessions/:id/messages", idem, h.PostMessage)
		api.POST("/sessions/:id/complete", h.CompleteSession)
		api.POST("/sessions/:id/rescore", h.RescoreInterview)
	}
}

// corsMiddleware allows every origin when none are configured; otherwise it
// echoes allow-listed origins ahead of gin-contrib/cors.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", "If-None-Match",
			middleware.HeaderUserID, middleware.HeaderUserRole, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO even without an Origin header, for simple health checks.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// LiftStreamWriteDeadline clears the server write timeout for reply streams
// under apiBase, which are bounded by the stream idle timeout instead. It
// must wrap the engine directly so the connection's writer is reachable.
func LiftStreamWriteDeadline(next http.Handler, apiBase string) http.Handler {
	stream := regexp.MustCompile(streamPathPattern(apiBase))
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost && stream.MatchString(req.URL.Path) {
			_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
		}
		next.ServeHTTP(w, req)
	})
}

// streamPathPattern matches the SSE reply endpoint under base.
func streamPathPattern(base string) string {
	return "^" + regexp.QuoteMeta(joinPath(base, "/sessions/")) + "[^/]+/messages$"
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
