package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/frontdesk/internal/voipms"
)

// getBalance returns the provider account balance. Served from the client's
// short-TTL cache on repeated reads.
func (s *Server) getBalance(c echo.Context) error {
	info, err := s.deps.Provider.GetAccountInfo(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("balance lookup failed")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "provider unavailable",
		})
	}
	return c.JSON(http.StatusOK, info)
}

// getAnalytics aggregates provider history into a report. Date range comes
// from ?from=YYYY-MM-DD&to=YYYY-MM-DD, defaulting to the last 30 days.
func (s *Server) getAnalytics(c echo.Context) error {
	ctx := c.Request().Context()

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}
	if from == "" {
		from = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	for _, date := range []string{from, to} {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "dates must be YYYY-MM-DD",
			})
		}
	}

	calls, err := s.deps.Provider.GetCDR(ctx, voipms.CDRFilters{DateFrom: from, DateTo: to})
	if err != nil {
		log.Error().Err(err).Msg("cdr fetch failed")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "provider unavailable",
		})
	}

	sms, err := s.deps.Provider.GetSMS(ctx, voipms.SMSFilters{DateFrom: from, DateTo: to})
	if err != nil {
		log.Error().Err(err).Msg("sms history fetch failed")
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "provider unavailable",
		})
	}

	// Voicemail listing is best effort. Accounts without a mailbox still get
	// call and SMS analytics.
	voicemails, err := s.deps.Provider.GetVoicemails(ctx, s.deps.Mailbox, "")
	if err != nil {
		log.Warn().Err(err).Msg("voicemail fetch failed, continuing without")
		voicemails = nil
	}

	report := s.deps.Analytics.Summarize(calls, sms, voicemails)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"from":   from,
		"to":     to,
		"report": report,
	})
}

// getConversation returns the stored context for one phone number.
func (s *Server) getConversation(c echo.Context) error {
	phone := voipms.CleanPhoneNumber(c.Param("phone"))
	if phone == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid phone number",
		})
	}

	conv := s.deps.Store.GetConversation(c.Request().Context(), phone)
	return c.JSON(http.StatusOK, conv)
}

// getPending lists messages waiting for a human reply, oldest first.
func (s *Server) getPending(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	pending, err := s.deps.Store.ListPending(c.Request().Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("pending list failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "storage unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   len(pending),
		"pending": pending,
	})
}
