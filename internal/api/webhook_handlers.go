package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/frontdesk/internal/responder"
	"github.com/frontdesk/internal/voipms"
	"github.com/frontdesk/pkg/models"
)

// callbackTimeLayout is the timestamp format the provider puts in webhook
// parameters.
const callbackTimeLayout = "2006-01-02 15:04:05"

// verifySignature checks the ts and sig query parameters embedded in the
// callback URL at registration time. The signature covers the bare callback
// URL, CallbackBase plus the request path, not the per-event parameters the
// provider appends.
func (s *Server) verifySignature(c echo.Context) bool {
	if s.deps.Signer == nil {
		return true
	}
	ts := c.QueryParam("ts")
	sig := c.QueryParam("sig")
	url := s.deps.CallbackBase + c.Path()
	return s.deps.Signer.Verify(url, ts, sig)
}

// handleSMSWebhook receives inbound message callbacks. Parameters follow the
// provider's SMS callback template: to, from, message, id, date.
func (s *Server) handleSMSWebhook(c echo.Context) error {
	if !s.verifySignature(c) {
		log.Warn().Str("remote", c.RealIP()).Msg("sms webhook rejected, bad signature")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid signature",
		})
	}

	msg := responder.InboundMessage{
		ExternalID: param(c, "id"),
		From:       param(c, "from"),
		To:         param(c, "to"),
		Body:       param(c, "message"),
	}
	if msg.From == "" || msg.Body == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing from or message parameter",
		})
	}

	outcome, err := s.deps.Handler.HandleInboundSMS(c.Request().Context(), msg)
	if outcome == nil {
		// The message was not recorded, so a provider redelivery is safe.
		log.Error().Err(err).Str("from", msg.From).Msg("inbound sms handling failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "processing failed",
		})
	}

	status := "ok"
	if err != nil {
		// The inbound message is stored; a 5xx here would make the provider
		// redeliver and duplicate it. Only the reply was lost.
		log.Warn().Err(err).Str("from", msg.From).Msg("inbound sms stored but reply failed")
		status = "partial"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": status,
		"intent": outcome.Intent.Category,
		"action": outcome.Action,
	})
}

// handleCallWebhook receives call status callbacks. Parameters follow the
// provider's callback template: callerid, destination, disposition, duration,
// uniqueid, date.
func (s *Server) handleCallWebhook(c echo.Context) error {
	if !s.verifySignature(c) {
		log.Warn().Str("remote", c.RealIP()).Msg("call webhook rejected, bad signature")
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid signature",
		})
	}

	from := voipms.CleanPhoneNumber(param(c, "callerid"))
	if from == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing callerid parameter",
		})
	}

	record := &models.CallRecord{
		ExternalID:      param(c, "uniqueid"),
		FromNumber:      from,
		ToNumber:        voipms.CleanPhoneNumber(param(c, "destination")),
		Direction:       models.DirectionInbound,
		Status:          "completed",
		Disposition:     param(c, "disposition"),
		DurationSeconds: parseDuration(param(c, "duration")),
		StartedAt:       parseCallbackTime(param(c, "date")),
	}

	if err := s.deps.Handler.HandleCallEvent(c.Request().Context(), record); err != nil {
		log.Error().Err(err).Str("call_sid", record.ExternalID).Msg("call event handling failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "processing failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// param reads a callback parameter from the query string or, for POST
// deliveries, the form body.
func param(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return c.FormValue(name)
}

func parseDuration(raw string) int {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

func parseCallbackTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(callbackTimeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
