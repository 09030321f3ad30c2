// Package httpapi exposes the archive and moderation use cases over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
	"github.com/ersonp/influence-tracker/internal/domain/services"
	"github.com/ersonp/influence-tracker/internal/infrastructure/config"
)

const (
	shutdownTimeout        = 5 * time.Second
	limiterCleanupInterval = 10 * time.Minute
)

// Deps are the services and handlers the server routes to.
type Deps struct {
	Repo    *services.ContentRepository
	Auth    *services.AuthService
	Archive *handlers.ArchiveHandler
	Submit  *handlers.SubmitHandler
	Admin   *handlers.AdminHandler
}

// Server is the HTTP surface of the tracker.
type Server struct {
	cfg         config.ServerConfig
	router      *gin.Engine
	limiter     *IPRateLimiter
	unlock      *IPRateLimiter
	hub         *EventHub
	unsubscribe func()
}

// NewServer builds the router and subscribes the event hub to repository
// changes. Call Close to release the subscription.
func NewServer(deps Deps, cfg config.ServerConfig) *Server {
	hub := NewEventHub()
	s := &Server{
		cfg:         cfg,
		router:      gin.New(),
		limiter:     NewIPRateLimiter(rate.Limit(cfg.SubmitRPS), max(cfg.SubmitBurst, 1)),
		unlock:      NewIPRateLimiter(rate.Limit(cfg.SubmitRPS), max(cfg.SubmitBurst, 1)),
		hub:         hub,
		unsubscribe: deps.Repo.Subscribe(hub.Publish),
	}

	env := &Env{
		Archive:   deps.Archive,
		Submit:    deps.Submit,
		Admin:     deps.Admin,
		Hub:       hub,
		heartbeat: heartbeatInterval,
	}
	env.upgrader.CheckOrigin = s.checkOrigin

	s.setupRoutes(env, deps.Auth)
	return s
}

func (s *Server) setupRoutes(env *Env, auth *services.AuthService) {
	router := s.router

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())
	router.Use(cors.New(s.corsConfig()))

	api := router.Group("/api")
	{
		api.GET("/entries", env.ListEntries)
		api.GET("/entries/:id", env.GetEntry)
		api.GET("/featured", env.ListFeatured)
		api.GET("/categories", env.ListCategories)
		api.GET("/tags", env.ListTags)
		api.POST("/submissions", RateLimitMiddleware(s.limiter), env.CreateSubmission)
		api.GET("/events", env.StreamEvents)

		api.POST("/admin/unlock", RateLimitMiddleware(s.unlock), env.Unlock)

		admin := api.Group("/admin", AdminSessionMiddleware(auth))
		admin.POST("/lock", env.Lock)
		admin.GET("/submissions", env.ListQueue)
		admin.POST("/submissions/:id/approve", env.Approve)
		admin.POST("/submissions/:id/reject", env.Reject)
		admin.GET("/history", env.History)
	}

	router.GET("/ws", env.ServeWs)
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", AdminTokenHeader},
		ExposeHeaders: []string{"Content-Length"},
	}
	if s.cfg.CORSOrigin == "" || s.cfg.CORSOrigin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{s.cfg.CORSOrigin}
	}
	return cfg
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.CORSOrigin == "" || s.cfg.CORSOrigin == "*" {
		return true
	}
	return origin == s.cfg.CORSOrigin
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the change event hub.
func (s *Server) Hub() *EventHub {
	return s.hub
}

// Run listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Streaming requests end when ctx is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go s.limiter.Cleanup(ctx, limiterCleanupInterval)
	go s.unlock.Cleanup(ctx, limiterCleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting")
	return nil
}

// Close detaches the server from repository changes.
func (s *Server) Close() {
	s.unsubscribe()
}
