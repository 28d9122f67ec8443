package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/conversagent/core/channels"
	"github.com/conversagent/core/store"
	"github.com/conversagent/core/tenant"
)

// InboundHandler hands a verified inbound channel event to the ingress
// pool (per-conversation queue feeding the harmonizer/agent pipeline).
// Server only verifies and parses; it never runs the pipeline itself.
type InboundHandler func(ctx context.Context, event *channels.InboundEvent) error

// Server hosts the admin HTTP API: conversations, customers, and
// API-key management (spec.md §6), plus the inbound channel webhook
// endpoint. Grounded on server/router/api/v1/v1.go's APIV1Service
// composing one struct of shared infra (Store, Secret) plus per-domain
// handlers, re-themed from the teacher's connect-rpc services into
// plain echo handlers.
type Server struct {
	echo      *echo.Echo
	store     *store.Store
	resolver  *tenant.Resolver
	channels  *channels.Router
	onInbound InboundHandler
}

// Config bundles the collaborators Server needs; all are injected so
// this package never implements credential verification, RBAC
// evaluation, or channel wire protocols itself.
type Config struct {
	Store       *store.Store
	Resolver    *tenant.Resolver
	Authn       BearerAuthenticator
	Channels    *channels.Router
	OnInbound   InboundHandler
	RateLimitRPS   float64 // default 10
	RateLimitBurst int     // default 20
}

func New(cfg Config) *Server {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	e := echo.New()
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())

	s := &Server{echo: e, store: cfg.Store, resolver: cfg.Resolver, channels: cfg.Channels, onInbound: cfg.OnInbound}

	limiter := newTenantLimiter(rps, burst)
	auth := authMiddleware(cfg.Authn, cfg.Resolver)
	rateLimit := rateLimitMiddleware(limiter)

	v1 := e.Group("/v1", auth, rateLimit)
	v1.GET("/conversations", s.listConversations)
	v1.GET("/conversations/:id", s.getConversation)
	v1.GET("/customers", s.listCustomers)
	v1.GET("/customers/:id", s.getCustomer)
	v1.PATCH("/customers/:id", s.updateCustomer)
	v1.GET("/api-keys", s.listAPIKeys)
	v1.POST("/api-keys", s.createAPIKey)
	v1.DELETE("/api-keys/:id", s.revokeAPIKey)

	// The inbound webhook is unauthenticated by bearer token (the
	// channel gateway signs the payload instead); it resolves its own
	// tenant from the channel identity, so it sits outside the /v1
	// group's auth middleware.
	e.POST("/webhooks/:platform/:channel_identity", s.handleWebhook)

	return s
}

// Echo exposes the underlying echo.Echo for Start/Shutdown by cmd.
func (s *Server) Echo() *echo.Echo { return s.echo }
