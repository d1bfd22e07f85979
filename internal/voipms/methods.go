package voipms

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/frontdesk/pkg/models"
)

// smsMaxLength is the provider's per-message character limit.
const smsMaxLength = 160

const providerTimeLayout = "2006-01-02 15:04:05"

// AccountInfo is the cached getBalance result.
type AccountInfo struct {
	Balance         json.Number `json:"balance"`
	BalanceCurrency string      `json:"balance_currency"`
	SpentTotal      json.Number `json:"spent_total"`
	CallsTotal      json.Number `json:"calls_total"`
	TimeTotal       json.Number `json:"time_total"`
}

// GetAccountInfo fetches the account balance, serving repeated reads from the
// short-TTL cache.
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	const cacheKey = "account_info"
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*AccountInfo), nil
	}

	resp, err := c.Execute(ctx, "getBalance", nil)
	if err != nil {
		return nil, err
	}

	var info AccountInfo
	if err := json.Unmarshal(resp.Raw, &info); err != nil {
		return nil, fmt.Errorf("decoding balance: %w", err)
	}

	c.cache.Set(cacheKey, &info)
	return &info, nil
}

// DIDInfo describes one provisioned phone number.
type DIDInfo struct {
	DID         string `json:"did"`
	Description string `json:"description"`
	Routing     string `json:"routing"`
	SMSEnabled  string `json:"sms_enabled"`
}

// GetDIDs lists all numbers on the account.
func (c *Client) GetDIDs(ctx context.Context) ([]DIDInfo, error) {
	resp, err := c.Execute(ctx, "getDIDsInfo", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		DIDs []DIDInfo `json:"dids"`
	}
	if err := json.Unmarshal(resp.Raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding dids: %w", err)
	}
	return payload.DIDs, nil
}

// GetDIDInfo fetches a single number, defaulting to the configured DID.
func (c *Client) GetDIDInfo(ctx context.Context, did string) (*DIDInfo, error) {
	if did == "" {
		did = c.did
	}
	resp, err := c.Execute(ctx, "getDIDsInfo", map[string]string{"did": did})
	if err != nil {
		return nil, err
	}
	var payload struct {
		DIDs []DIDInfo `json:"dids"`
	}
	if err := json.Unmarshal(resp.Raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding did info: %w", err)
	}
	if len(payload.DIDs) == 0 {
		return nil, fmt.Errorf("did %s not found", did)
	}
	return &payload.DIDs[0], nil
}

// SendResult reports one sent SMS part.
type SendResult struct {
	ExternalID string
	Body       string
}

// SendSMS sends body to destination, splitting it at word boundaries into
// parts the provider will accept. Sends always reach the provider; nothing
// here is cached. Returns one result per part actually sent; on a mid-split
// failure the already-sent parts are returned with the error.
func (c *Client) SendSMS(ctx context.Context, destination, body string, from string) ([]SendResult, error) {
	if from == "" {
		from = c.did
	}
	dst := CleanPhoneNumber(destination)

	var results []SendResult
	for _, part := range SplitMessage(body) {
		resp, err := c.Execute(ctx, "sendSMS", map[string]string{
			"did":     from,
			"dst":     dst,
			"message": part,
		})
		if err != nil {
			return results, err
		}

		var payload struct {
			SMSID json.Number `json:"sms_id"`
		}
		if err := json.Unmarshal(resp.Raw, &payload); err != nil {
			return results, fmt.Errorf("decoding sendSMS response: %w", err)
		}
		results = append(results, SendResult{ExternalID: payload.SMSID.String(), Body: part})
	}
	return results, nil
}

// SMSFilters narrows a getSMS history query.
type SMSFilters struct {
	DID      string
	Contact  string
	DateFrom string // YYYY-MM-DD
	DateTo   string
	Type     string // "1" received, "0" sent
	Limit    int
}

// GetSMS fetches message history and converts it into MessageRecords.
func (c *Client) GetSMS(ctx context.Context, filters SMSFilters) ([]models.MessageRecord, error) {
	params := map[string]string{
		"did":   c.did,
		"limit": "100",
	}
	if filters.DID != "" {
		params["did"] = filters.DID
	}
	if filters.Limit > 0 {
		params["limit"] = strconv.Itoa(filters.Limit)
	}
	if filters.Contact != "" {
		params["contact"] = filters.Contact
	}
	if filters.DateFrom != "" {
		params["from"] = filters.DateFrom
	}
	if filters.DateTo != "" {
		params["to"] = filters.DateTo
	}
	if filters.Type != "" {
		params["type"] = filters.Type
	}

	resp, err := c.Execute(ctx, "getSMS", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		SMS []struct {
			ID      string `json:"id"`
			Date    string `json:"date"`
			Type    string `json:"type"` // "1" received, "0" sent
			DID     string `json:"did"`
			Contact string `json:"contact"`
			Message string `json:"message"`
		} `json:"sms"`
	}
	if err := json.Unmarshal(resp.Raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding sms history: %w", err)
	}

	records := make([]models.MessageRecord, 0, len(payload.SMS))
	for _, m := range payload.SMS {
		rec := models.MessageRecord{
			ExternalID: m.ID,
			Body:       m.Message,
		}
		if m.Type == "1" {
			rec.Direction = models.DirectionInbound
			rec.Status = models.StatusReceived
			rec.FromNumber = m.Contact
			rec.ToNumber = m.DID
		} else {
			rec.Direction = models.DirectionOutbound
			rec.Status = models.StatusSent
			rec.FromNumber = m.DID
			rec.ToNumber = m.Contact
		}
		if ts, err := time.Parse(providerTimeLayout, m.Date); err == nil {
			rec.CreatedAt = ts
		}
		records = append(records, rec)
	}
	return records, nil
}

// DeleteSMS removes a message from the provider's history.
func (c *Client) DeleteSMS(ctx context.Context, smsID string) error {
	_, err := c.Execute(ctx, "deleteSMS", map[string]string{"id": smsID})
	return err
}

// CDRFilters narrows a call-detail-record query.
type CDRFilters struct {
	DateFrom string // YYYY-MM-DD
	DateTo   string
	Timezone string
}

// GetCDR fetches call detail records for the date range and converts them
// into CallRecords.
func (c *Client) GetCDR(ctx context.Context, filters CDRFilters) ([]models.CallRecord, error) {
	params := map[string]string{
		"date_from":   filters.DateFrom,
		"date_to":     filters.DateTo,
		"calltype":    "all",
		"callbilling": "all",
	}
	if filters.Timezone != "" {
		params["timezone"] = filters.Timezone
	}

	resp, err := c.Execute(ctx, "getCDR", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		CDR []struct {
			UniqueID    string `json:"uniqueid"`
			CallerID    string `json:"callerid"`
			Destination string `json:"destination"`
			Date        string `json:"date"`
			Seconds     string `json:"seconds"`
			Disposition string `json:"disposition"`
			Total       string `json:"total"`
		} `json:"cdr"`
	}
	if err := json.Unmarshal(resp.Raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding cdr: %w", err)
	}

	records := make([]models.CallRecord, 0, len(payload.CDR))
	for _, row := range payload.CDR {
		rec := models.CallRecord{
			ExternalID:  row.UniqueID,
			FromNumber:  row.CallerID,
			ToNumber:    row.Destination,
			Direction:   directionFor(row.Destination, c.did),
			Status:      "completed",
			Disposition: strings.ToLower(row.Disposition),
		}
		rec.DurationSeconds, _ = strconv.Atoi(row.Seconds)
		rec.Cost, _ = strconv.ParseFloat(row.Total, 64)
		if ts, err := time.Parse(providerTimeLayout, row.Date); err == nil {
			rec.StartedAt = ts
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetVoicemails lists voicemail entries for the mailbox (defaults to the DID).
func (c *Client) GetVoicemails(ctx context.Context, mailbox, folder string) ([]models.VoicemailRecord, error) {
	if mailbox == "" {
		mailbox = c.did
	}
	params := map[string]string{"mailbox": mailbox}
	if folder != "" {
		params["folder"] = folder
	}

	resp, err := c.Execute(ctx, "getVoicemail", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Voicemails []struct {
			Message  string `json:"message"`
			Mailbox  string `json:"mailbox"`
			Folder   string `json:"folder"`
			CallerID string `json:"callerid"`
			Duration string `json:"duration"`
		} `json:"voicemails"`
	}
	if err := json.Unmarshal(resp.Raw, &payload); err != nil {
		return nil, fmt.Errorf("decoding voicemails: %w", err)
	}

	records := make([]models.VoicemailRecord, 0, len(payload.Voicemails))
	for _, vm := range payload.Voicemails {
		rec := models.VoicemailRecord{
			ID:       vm.Message,
			Mailbox:  vm.Mailbox,
			Folder:   vm.Folder,
			CallerID: vm.CallerID,
		}
		rec.DurationSeconds, _ = strconv.Atoi(vm.Duration)
		records = append(records, rec)
	}
	return records, nil
}

// ConfigureSMSWebhook points the provider's SMS callback at signedURL with
// delivery retries enabled.
func (c *Client) ConfigureSMSWebhook(ctx context.Context, signedURL string) error {
	_, err := c.Execute(ctx, "setSMS", map[string]string{
		"did":                 c.did,
		"enable":              "1",
		"url_callback_enable": "1",
		"url_callback":        signedURL,
		"url_callback_retry":  "1",
	})
	return err
}

// ConfigureCallWebhook points the provider's completed-call callback at
// signedURL. The provider fires it a couple of seconds after hangup.
func (c *Client) ConfigureCallWebhook(ctx context.Context, signedURL string) error {
	_, err := c.Execute(ctx, "setCallback", map[string]string{
		"did":                c.did,
		"delay":              "2",
		"url_callback":       signedURL,
		"url_callback_retry": "1",
	})
	return err
}

// CleanPhoneNumber strips non-digits and prepends the North American country
// code to bare 10-digit numbers.
func CleanPhoneNumber(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) == 10 {
		cleaned = "1" + cleaned
	}
	return cleaned
}

// SplitMessage splits body into provider-sized parts at word boundaries.
// Oversized single words are kept whole; the provider truncates those itself.
func SplitMessage(body string) []string {
	if len(body) <= smsMaxLength {
		return []string{body}
	}

	var parts []string
	var current string
	for _, word := range strings.Split(body, " ") {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if len(candidate) <= smsMaxLength {
			current = candidate
			continue
		}
		if current != "" {
			parts = append(parts, current)
		}
		current = word
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

func directionFor(destination, did string) string {
	if CleanPhoneNumber(destination) == CleanPhoneNumber(did) {
		return models.DirectionInbound
	}
	return models.DirectionOutbound
}
