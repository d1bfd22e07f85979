// Package responder decides what happens to every inbound SMS: auto-respond,
// hand off to a human, or escalate to staff.
package responder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/frontdesk/internal/hours"
	"github.com/frontdesk/internal/intent"
	"github.com/frontdesk/internal/voipms"
	"github.com/frontdesk/pkg/models"
)

// Action taken for an inbound message.
const (
	ActionAutoResponse = "auto_response"
	ActionHumanQueue   = "human_queue"
	ActionUrgent       = "urgent"
)

// MessageSender sends SMS replies. Satisfied by *voipms.Client.
type MessageSender interface {
	SendSMS(ctx context.Context, destination, body, from string) ([]voipms.SendResult, error)
}

// GatewayStore is the slice of the persistence adapter the orchestrator
// needs.
type GatewayStore interface {
	StoreMessage(ctx context.Context, record *models.MessageRecord) error
	UpdateMessageStatus(ctx context.Context, externalID, status string) error
	StoreCall(ctx context.Context, record *models.CallRecord) error
	GetConversation(ctx context.Context, phoneNumber string) models.ConversationContext
	UpdateConversation(ctx context.Context, phoneNumber string, patch models.ConversationPatch) error
	EnqueueHumanResponse(ctx context.Context, pending *models.PendingMessage) error
}

// StaffNotification describes an urgent inbound message for the on-call staff.
type StaffNotification struct {
	PhoneNumber string
	Body        string
	Category    string
}

// StaffNotifier escalates urgent messages. Satisfied by the job queue's
// notifier; failures must not block the caller's reply.
type StaffNotifier interface {
	NotifyStaff(ctx context.Context, n StaffNotification) error
}

// InboundMessage is a provider SMS webhook payload after verification.
type InboundMessage struct {
	ExternalID string
	From       string
	To         string
	Body       string
}

// Outcome reports how an inbound message was handled.
type Outcome struct {
	Intent models.Intent
	Action string
	Reply  string
}

// Responder is the per-message orchestrator. It owns no mutable state of its
// own; conversation state lives in the store, so two concurrent messages from
// the same number race there with last-writer-wins semantics.
type Responder struct {
	sender       MessageSender
	store        GatewayStore
	notifier     StaffNotifier
	classifier   *intent.Classifier
	schedule     *hours.Schedule
	personalizer *Personalizer
	now          func() time.Time
}

// New wires a Responder from its collaborators.
func New(sender MessageSender, store GatewayStore, notifier StaffNotifier, classifier *intent.Classifier, schedule *hours.Schedule, personalizer *Personalizer) *Responder {
	return &Responder{
		sender:       sender,
		store:        store,
		notifier:     notifier,
		classifier:   classifier,
		schedule:     schedule,
		personalizer: personalizer,
		now:          time.Now,
	}
}

// HandleInboundSMS runs the full inbound pipeline. The raw message is stored
// before any response logic, so a downstream failure loses at most the reply,
// never the record of receipt. The returned Outcome is valid whenever the
// inbound store succeeded, even if a later step errored.
func (r *Responder) HandleInboundSMS(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	from := voipms.CleanPhoneNumber(msg.From)

	classified := r.classifier.Classify(msg.Body)

	inbound := &models.MessageRecord{
		ExternalID: msg.ExternalID,
		FromNumber: from,
		ToNumber:   msg.To,
		Direction:  models.DirectionInbound,
		Status:     models.StatusReceived,
		Body:       msg.Body,
		Metadata: map[string]string{
			"category": classified.Category,
			"priority": classified.Priority,
		},
	}
	if err := r.store.StoreMessage(ctx, inbound); err != nil {
		return nil, fmt.Errorf("storing inbound message from %s: %w", from, err)
	}

	conv := r.store.GetConversation(ctx, from)

	outcome := &Outcome{Intent: classified}

	switch {
	case classified.Priority == models.PriorityUrgent:
		outcome.Action = ActionUrgent
		outcome.Reply = ResponseFor(classified.Category)
		if err := r.notifier.NotifyStaff(ctx, StaffNotification{
			PhoneNumber: from,
			Body:        msg.Body,
			Category:    classified.Category,
		}); err != nil {
			log.Error().Err(err).
				Str("phone", from).
				Msg("Staff notification failed for urgent message")
		}

	case r.schedule.IsOpenAt(r.now()) && conv.HasActiveConversation:
		outcome.Action = ActionHumanQueue
		outcome.Reply = holdingResponse
		err := r.store.EnqueueHumanResponse(ctx, &models.PendingMessage{
			PhoneNumber: from,
			Body:        msg.Body,
			Category:    classified.Category,
			Priority:    classified.Priority,
		})
		if err != nil {
			// Degrade to automation rather than promising a human reply
			// that nobody will see.
			log.Warn().Err(err).
				Str("phone", from).
				Msg("Human queue unavailable, falling back to auto-response")
			outcome.Action = ActionAutoResponse
			outcome.Reply = ResponseFor(classified.Category)
		}

	default:
		outcome.Action = ActionAutoResponse
		outcome.Reply = ResponseFor(classified.Category)
	}

	outcome.Reply = r.personalizer.Apply(outcome.Reply, conv.PatientName)

	sendErr := r.sendReply(ctx, from, outcome)

	patch := models.ConversationPatch{
		LastMessage:  msg.Body,
		LastIntent:   classified.Category,
		LastResponse: outcome.Reply,
		MessageCount: conv.MessageCount + 1,
	}
	if err := r.store.UpdateConversation(ctx, from, patch); err != nil {
		// Keep the send failure visible alongside the conversation one.
		return outcome, errors.Join(sendErr, err)
	}

	log.Info().
		Str("phone", from).
		Str("category", classified.Category).
		Str("priority", classified.Priority).
		Str("action", outcome.Action).
		Msg("Processed inbound SMS")

	return outcome, sendErr
}

// HandleCallEvent persists a completed-call webhook. Duplicate deliveries
// converge through the store's upsert.
func (r *Responder) HandleCallEvent(ctx context.Context, record *models.CallRecord) error {
	return r.store.StoreCall(ctx, record)
}

func (r *Responder) sendReply(ctx context.Context, to string, outcome *Outcome) error {
	// Record the reply as queued before handing it to the provider, then
	// settle it to sent or failed once the send resolves.
	record := &models.MessageRecord{
		ToNumber:  to,
		Direction: models.DirectionOutbound,
		Status:    models.StatusQueued,
		Body:      outcome.Reply,
		Metadata: map[string]string{
			"campaign": "auto_response",
			"category": outcome.Intent.Category,
			"action":   outcome.Action,
		},
	}
	queued := true
	if err := r.store.StoreMessage(ctx, record); err != nil {
		queued = false
		log.Error().Err(err).
			Str("phone", to).
			Msg("Failed to store outbound reply record")
	}

	results, sendErr := r.sender.SendSMS(ctx, to, outcome.Reply, "")

	status := models.StatusSent
	if sendErr != nil {
		status = models.StatusFailed
		log.Error().Err(sendErr).
			Str("phone", to).
			Msg("Failed to send reply")
	} else {
		for _, res := range results {
			log.Debug().
				Str("phone", to).
				Str("sms_id", res.ExternalID).
				Msg("Reply part accepted by provider")
		}
	}

	if queued {
		if err := r.store.UpdateMessageStatus(ctx, record.ExternalID, status); err != nil {
			log.Error().Err(err).
				Str("phone", to).
				Msg("Failed to settle outbound reply status")
		}
	}

	if sendErr != nil {
		return fmt.Errorf("sending reply to %s: %w", to, sendErr)
	}
	return nil
}
