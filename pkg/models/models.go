package models

import (
	"time"
)

// Message direction constants
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message status lifecycle: queued -> sent | failed. The provider sends no
// delivery receipts, so sent is terminal for successful messages. Inbound
// messages are stored with StatusReceived.
const (
	StatusQueued   = "queued"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusReceived = "received"
)

// MessageRecord represents a single inbound or outbound SMS. Immutable after
// insert except for status transitions.
type MessageRecord struct {
	ID         int64             `json:"id" db:"id"`
	ExternalID string            `json:"external_id" db:"message_sid"`
	FromNumber string            `json:"from_number" db:"from_number"`
	ToNumber   string            `json:"to_number" db:"to_number"`
	Direction  string            `json:"direction" db:"direction"`
	Body       string            `json:"body" db:"body"`
	Status     string            `json:"status" db:"status"`
	Metadata   map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// CallRecord represents one phone call. Upserted keyed by ExternalID so that
// duplicate webhook deliveries for the same call converge to one row.
type CallRecord struct {
	ID              int64     `json:"id" db:"id"`
	ExternalID      string    `json:"external_id" db:"call_sid"`
	FromNumber      string    `json:"from_number" db:"from_number"`
	ToNumber        string    `json:"to_number" db:"to_number"`
	Direction       string    `json:"direction" db:"direction"`
	Status          string    `json:"status" db:"status"`
	Disposition     string    `json:"disposition,omitempty" db:"disposition"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	Cost            float64   `json:"cost" db:"cost"`
	StartedAt       time.Time `json:"started_at" db:"started_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// VoicemailRecord is a provider-reported voicemail entry, used by analytics.
type VoicemailRecord struct {
	ID              string `json:"id"`
	Mailbox         string `json:"mailbox"`
	Folder          string `json:"folder"` // INBOX, Old, Urgent
	CallerID        string `json:"caller_id"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Intent is the classified purpose of an inbound text. Transient; embedded in
// message metadata and conversation context rather than stored on its own.
type Intent struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Score    int    `json:"score"`
}

// Intent priorities, strongest first.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ConversationContext tracks per-phone-number interaction history. Exactly one
// row per counterparty number; read-modify-write on every inbound message.
// Concurrent updates for the same number are last-writer-wins.
type ConversationContext struct {
	PhoneNumber           string    `json:"phone_number" db:"phone_number"`
	PatientName           string    `json:"patient_name,omitempty" db:"patient_name"`
	LastMessage           string    `json:"last_message" db:"last_message"`
	LastIntent            string    `json:"last_intent" db:"last_intent"`
	LastResponse          string    `json:"last_response" db:"last_response"`
	MessageCount          int       `json:"message_count" db:"message_count"`
	HasActiveConversation bool      `json:"has_active_conversation" db:"has_active_conversation"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// ConversationPatch carries the fields updated after handling an inbound
// message. MessageCount is the new absolute count, not a delta.
type ConversationPatch struct {
	LastMessage  string
	LastIntent   string
	LastResponse string
	MessageCount int
}

// PendingMessage is a message waiting in the human-response queue.
type PendingMessage struct {
	ID          int64     `json:"id" db:"id"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	Body        string    `json:"body" db:"body"`
	Category    string    `json:"category" db:"category"`
	Priority    string    `json:"priority" db:"priority"`
	Status      string    `json:"status" db:"status"` // pending, answered, dismissed
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
