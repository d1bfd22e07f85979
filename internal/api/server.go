// Package api exposes the HTTP surface of the gateway: provider webhook
// receivers and a small read-only admin API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/frontdesk/internal/analytics"
	"github.com/frontdesk/internal/responder"
	"github.com/frontdesk/internal/voipms"
	"github.com/frontdesk/internal/webhooksig"
	"github.com/frontdesk/pkg/models"
)

// InboundHandler processes verified webhook events. Satisfied by
// *responder.Responder.
type InboundHandler interface {
	HandleInboundSMS(ctx context.Context, msg responder.InboundMessage) (*responder.Outcome, error)
	HandleCallEvent(ctx context.Context, record *models.CallRecord) error
}

// HistoryProvider serves the admin endpoints that read straight from the
// telephony provider. Satisfied by *voipms.Client.
type HistoryProvider interface {
	GetAccountInfo(ctx context.Context) (*voipms.AccountInfo, error)
	GetCDR(ctx context.Context, filters voipms.CDRFilters) ([]models.CallRecord, error)
	GetSMS(ctx context.Context, filters voipms.SMSFilters) ([]models.MessageRecord, error)
	GetVoicemails(ctx context.Context, mailbox, folder string) ([]models.VoicemailRecord, error)
}

// AdminStore serves the admin endpoints backed by local persistence.
// Satisfied by *store.Store.
type AdminStore interface {
	GetConversation(ctx context.Context, phoneNumber string) models.ConversationContext
	ListPending(ctx context.Context, limit int) ([]models.PendingMessage, error)
}

// ReportBuilder builds the analytics rollup for the admin API. Satisfied by
// *analytics.Aggregator.
type ReportBuilder interface {
	Summarize(calls []models.CallRecord, sms []models.MessageRecord, voicemails []models.VoicemailRecord) *analytics.Report
}

// Deps wires handler collaborators into the server.
type Deps struct {
	Handler  InboundHandler
	Provider HistoryProvider
	Store    AdminStore
	Signer   *webhooksig.Signer

	// CallbackBase is the externally reachable base URL registered with the
	// provider, e.g. https://gateway.example.com. Signatures are verified
	// against CallbackBase plus the request path.
	CallbackBase string

	// Mailbox is the voicemail mailbox folded into analytics reports.
	Mailbox string

	Analytics ReportBuilder
}

// Server is the gateway HTTP server.
type Server struct {
	echo *echo.Echo
	port int
	deps Deps
}

// NewServer creates the server and registers all routes.
func NewServer(port int, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo: e,
		port: port,
		deps: deps,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// The provider delivers callbacks as GET requests with query parameters
	// but can be configured for POST, so both are accepted.
	s.echo.GET("/webhooks/sms", s.handleSMSWebhook)
	s.echo.POST("/webhooks/sms", s.handleSMSWebhook)
	s.echo.GET("/webhooks/call", s.handleCallWebhook)
	s.echo.POST("/webhooks/call", s.handleCallWebhook)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/balance", s.getBalance)
	v1.GET("/analytics", s.getAnalytics)
	v1.GET("/conversations/:phone", s.getConversation)
	v1.GET("/pending", s.getPending)
}

// Start runs the server until the context is cancelled or an interrupt
// arrives, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
