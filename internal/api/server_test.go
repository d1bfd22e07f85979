package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk/internal/analytics"
	"github.com/frontdesk/internal/responder"
	"github.com/frontdesk/internal/voipms"
	"github.com/frontdesk/internal/webhooksig"
	"github.com/frontdesk/pkg/models"
)

type fakeInbound struct {
	messages []responder.InboundMessage
	calls    []*models.CallRecord
	fail     bool
	sendFail bool
}

func (f *fakeInbound) HandleInboundSMS(_ context.Context, msg responder.InboundMessage) (*responder.Outcome, error) {
	if f.fail {
		return nil, errors.New("storage down")
	}
	f.messages = append(f.messages, msg)
	outcome := &responder.Outcome{
		Intent: models.Intent{Category: "hours", Priority: models.PriorityMedium},
		Action: responder.ActionAutoResponse,
		Reply:  "We are open Monday through Friday.",
	}
	if f.sendFail {
		return outcome, errors.New("provider unavailable")
	}
	return outcome, nil
}

func (f *fakeInbound) HandleCallEvent(_ context.Context, record *models.CallRecord) error {
	if f.fail {
		return errors.New("storage down")
	}
	f.calls = append(f.calls, record)
	return nil
}

type fakeProvider struct {
	balance    *voipms.AccountInfo
	calls      []models.CallRecord
	sms        []models.MessageRecord
	voicemails []models.VoicemailRecord

	balanceErr   error
	cdrErr       error
	smsErr       error
	voicemailErr error

	cdrFilters voipms.CDRFilters
}

func (f *fakeProvider) GetAccountInfo(context.Context) (*voipms.AccountInfo, error) {
	return f.balance, f.balanceErr
}

func (f *fakeProvider) GetCDR(_ context.Context, filters voipms.CDRFilters) ([]models.CallRecord, error) {
	f.cdrFilters = filters
	return f.calls, f.cdrErr
}

func (f *fakeProvider) GetSMS(context.Context, voipms.SMSFilters) ([]models.MessageRecord, error) {
	return f.sms, f.smsErr
}

func (f *fakeProvider) GetVoicemails(context.Context, string, string) ([]models.VoicemailRecord, error) {
	return f.voicemails, f.voicemailErr
}

type fakeAdminStore struct {
	conversations map[string]models.ConversationContext
	pending       []models.PendingMessage
	pendingErr    error
	lastLimit     int
}

func (f *fakeAdminStore) GetConversation(_ context.Context, phoneNumber string) models.ConversationContext {
	if conv, ok := f.conversations[phoneNumber]; ok {
		return conv
	}
	return models.ConversationContext{PhoneNumber: phoneNumber}
}

func (f *fakeAdminStore) ListPending(_ context.Context, limit int) ([]models.PendingMessage, error) {
	f.lastLimit = limit
	return f.pending, f.pendingErr
}

const testCallbackBase = "https://gateway.example.com"

type fixture struct {
	server   *Server
	inbound  *fakeInbound
	provider *fakeProvider
	store    *fakeAdminStore
	signer   *webhooksig.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inbound := &fakeInbound{}
	provider := &fakeProvider{balance: &voipms.AccountInfo{Balance: "12.34", BalanceCurrency: "USD"}}
	store := &fakeAdminStore{conversations: map[string]models.ConversationContext{}}
	signer := webhooksig.New("test-secret", 0)

	server := NewServer(0, Deps{
		Handler:      inbound,
		Provider:     provider,
		Store:        store,
		Signer:       signer,
		CallbackBase: testCallbackBase,
		Mailbox:      "1",
		Analytics:    &analytics.Aggregator{},
	})
	return &fixture{server: server, inbound: inbound, provider: provider, store: store, signer: signer}
}

// signedParams extracts the ts and sig values the provider would echo back
// after webhook registration.
func signedParams(t *testing.T, signer *webhooksig.Signer, path string) url.Values {
	t.Helper()
	signed, err := url.Parse(signer.Sign(testCallbackBase + path))
	require.NoError(t, err)
	return signed.Query()
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSMSWebhookDispatchesToResponder(t *testing.T) {
	f := newFixture(t)

	q := signedParams(t, f.signer, "/webhooks/sms")
	q.Set("id", "sms-100")
	q.Set("from", "5559876543")
	q.Set("to", "5551234567")
	q.Set("message", "What are your hours?")

	rec := f.do(http.MethodGet, "/webhooks/sms?"+q.Encode())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.inbound.messages, 1)
	assert.Equal(t, "sms-100", f.inbound.messages[0].ExternalID)
	assert.Equal(t, "What are your hours?", f.inbound.messages[0].Body)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "hours", body["intent"])
	assert.Equal(t, responder.ActionAutoResponse, body["action"])
}

func TestSMSWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/webhooks/sms?ts=123&sig=deadbeef&from=5559876543&message=hi")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.inbound.messages)
}

func TestSMSWebhookMissingParams(t *testing.T) {
	f := newFixture(t)

	q := signedParams(t, f.signer, "/webhooks/sms")
	q.Set("from", "5559876543")

	rec := f.do(http.MethodGet, "/webhooks/sms?"+q.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSMSWebhookHandlerFailure(t *testing.T) {
	f := newFixture(t)
	f.inbound.fail = true

	q := signedParams(t, f.signer, "/webhooks/sms")
	q.Set("from", "5559876543")
	q.Set("message", "hello")

	rec := f.do(http.MethodGet, "/webhooks/sms?"+q.Encode())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSMSWebhookReplyFailureStillAccepted(t *testing.T) {
	f := newFixture(t)
	f.inbound.sendFail = true

	q := signedParams(t, f.signer, "/webhooks/sms")
	q.Set("from", "5559876543")
	q.Set("message", "hello")

	rec := f.do(http.MethodGet, "/webhooks/sms?"+q.Encode())

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "partial", body["status"])
}

func TestSMSWebhookNoSignerAcceptsAll(t *testing.T) {
	f := newFixture(t)
	f.server.deps.Signer = nil

	rec := f.do(http.MethodGet, "/webhooks/sms?from=5559876543&message=hi")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCallWebhookStoresParsedRecord(t *testing.T) {
	f := newFixture(t)

	q := signedParams(t, f.signer, "/webhooks/call")
	q.Set("uniqueid", "call-42")
	q.Set("callerid", "(555) 987-6543")
	q.Set("destination", "5551234567")
	q.Set("disposition", "noanswer")
	q.Set("duration", "35")
	q.Set("date", "2025-06-02 14:30:00")

	rec := f.do(http.MethodGet, "/webhooks/call?"+q.Encode())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.inbound.calls, 1)
	call := f.inbound.calls[0]
	assert.Equal(t, "call-42", call.ExternalID)
	assert.Equal(t, "15559876543", call.FromNumber)
	assert.Equal(t, "15551234567", call.ToNumber)
	assert.Equal(t, "noanswer", call.Disposition)
	assert.Equal(t, 35, call.DurationSeconds)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), call.StartedAt)
}

func TestCallWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/webhooks/call?ts=1&sig=bad&callerid=5559876543")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.inbound.calls)
}

func TestBalanceEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/balance")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "12.34")

	f.provider.balanceErr = errors.New("timeout")
	rec = f.do(http.MethodGet, "/api/v1/balance")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.provider.calls = []models.CallRecord{
		{Direction: models.DirectionInbound, Disposition: "answered", DurationSeconds: 60, Cost: 0.05, FromNumber: "15551110001"},
	}
	f.provider.sms = []models.MessageRecord{
		{Direction: models.DirectionInbound, FromNumber: "15551110001"},
	}

	rec := f.do(http.MethodGet, "/api/v1/analytics?from=2025-06-01&to=2025-06-30")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, voipms.CDRFilters{DateFrom: "2025-06-01", DateTo: "2025-06-30"}, f.provider.cdrFilters)

	var body struct {
		From   string           `json:"from"`
		To     string           `json:"to"`
		Report analytics.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-06-01", body.From)
	assert.Equal(t, 1, body.Report.Calls.Total)
	assert.Equal(t, 1, body.Report.SMS.Received)
}

func TestAnalyticsEndpointBadDates(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/analytics?from=June+1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsEndpointVoicemailFailureTolerated(t *testing.T) {
	f := newFixture(t)
	f.provider.voicemailErr = errors.New("no mailbox")

	rec := f.do(http.MethodGet, "/api/v1/analytics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConversationEndpointCleansNumber(t *testing.T) {
	f := newFixture(t)
	f.store.conversations["15559876543"] = models.ConversationContext{
		PhoneNumber:  "15559876543",
		MessageCount: 7,
	}

	rec := f.do(http.MethodGet, "/api/v1/conversations/5559876543")
	require.Equal(t, http.StatusOK, rec.Code)

	var conv models.ConversationContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, 7, conv.MessageCount)
}

func TestPendingEndpoint(t *testing.T) {
	f := newFixture(t)
	f.store.pending = []models.PendingMessage{
		{PhoneNumber: "15559876543", Body: "need a cleaning", Category: "appointment"},
	}

	rec := f.do(http.MethodGet, "/api/v1/pending?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, f.store.lastLimit)
	assert.Contains(t, rec.Body.String(), "need a cleaning")
}
