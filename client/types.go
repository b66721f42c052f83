package client

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded knowledge-base file and its processing state.
type Document struct {
	ID        int64     `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"file_path"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Document processing states.
const (
	DocumentPending    = "pending"
	DocumentProcessing = "processing"
	DocumentProcessed  = "processed"
	DocumentFailed     = "failed"
)

// Message is a single chat exchange entry.
type Message struct {
	ID         int64     `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	UserPhone  string    `json:"user_phone"`
	Direction  string    `json:"direction"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// MessageQuery filters the message listing.
type MessageQuery struct {
	Limit     int
	Offset    int
	UserPhone string
}

// Conversation summarizes the exchange with one end user.
type Conversation struct {
	UserPhone     string    `json:"user_phone"`
	LastMessageAt time.Time `json:"last_message_at"`
	MessageCount  int       `json:"message_count"`
}

// BillingUsage pairs current usage counters with the plan's limits.
type BillingUsage struct {
	CurrentUsage UsageCounters  `json:"current_usage"`
	Limits       map[string]any `json:"limits"`
}

// UsageCounters are the metered quantities for the current period.
type UsageCounters struct {
	Messages  int `json:"messages"`
	Documents int `json:"documents"`
}

// Invoice is one historical billing record.
type Invoice struct {
	ID          int64      `json:"id"`
	CustomerID  uuid.UUID  `json:"customer_id"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
	AmountCents int64      `json:"amount_cents"`
	Status      string     `json:"status"`
}
