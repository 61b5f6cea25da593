package main

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TypeEmail = "email"
	TypeSMS   = "sms"
	TypePush  = "push"
	TypeInApp = "in_app"
)

const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusDelivered = "delivered"
)

const (
	PriorityLow    = 1
	PriorityHigh   = 5
	defaultRetries = 3
)

var NotificationStatuses = []string{StatusPending, StatusSent, StatusFailed, StatusDelivered}

func isValidType(t string) bool {
	switch t {
	case TypeEmail, TypeSMS, TypePush, TypeInApp:
		return true
	}
	return false
}

func isValidStatus(s string) bool {
	for _, status := range NotificationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Notification is one message to one recipient, created from a domain event.
type Notification struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type          string             `bson:"type" json:"type"`
	Recipient     string             `bson:"recipient" json:"recipient"`
	Subject       *string            `bson:"subject,omitempty" json:"subject"`
	Message       string             `bson:"message" json:"message"`
	Status        string             `bson:"status" json:"status"`
	SentAt        *time.Time         `bson:"sent_at,omitempty" json:"sent_at"`
	DeliveredAt   *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at"`
	EventType     string             `bson:"event_type" json:"event_type"`
	EventData     map[string]any     `bson:"event_data" json:"event_data"`
	SourceService string             `bson:"source_service" json:"source_service"`
	TemplateID    *string            `bson:"template_id,omitempty" json:"template_id"`
	Priority      int                `bson:"priority" json:"priority"`
	RetryCount    int                `bson:"retry_count" json:"retry_count"`
	MaxRetries    int                `bson:"max_retries" json:"max_retries"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// Draft is what a producer of notifications supplies; the rest is defaulted.
type Draft struct {
	Type          string
	Recipient     string
	Subject       string
	Message       string
	EventType     string
	EventData     map[string]any
	SourceService string
	Priority      int
}

func NewNotification(d Draft, maxRetries int, now time.Time) *Notification {
	n := &Notification{
		ID:            primitive.NewObjectIDFromTimestamp(now),
		Type:          d.Type,
		Recipient:     d.Recipient,
		Message:       d.Message,
		Status:        StatusPending,
		EventType:     d.EventType,
		EventData:     d.EventData,
		SourceService: d.SourceService,
		Priority:      d.Priority,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if d.Subject != "" {
		n.Subject = &d.Subject
	}
	if n.EventData == nil {
		n.EventData = map[string]any{}
	}
	if n.Priority < PriorityLow || n.Priority > PriorityHigh {
		n.Priority = PriorityLow
	}
	if n.MaxRetries <= 0 {
		n.MaxRetries = defaultRetries
	}
	return n
}

func (n *Notification) markSent(now time.Time) {
	n.Status = StatusSent
	n.SentAt = &now
	n.UpdatedAt = now
}

func (n *Notification) markDelivered(now time.Time) {
	n.Status = StatusDelivered
	n.DeliveredAt = &now
	n.UpdatedAt = now
}

func (n *Notification) markFailed(now time.Time) {
	n.Status = StatusFailed
	n.RetryCount++
	n.UpdatedAt = now
}

// Retryable reports whether a failed notification still has attempts left.
func (n *Notification) Retryable() bool {
	return n.Status == StatusFailed && n.RetryCount < n.MaxRetries
}

type NotificationStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Sent      int64 `json:"sent"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// add folds one per-status count into the totals.
func (s *NotificationStats) add(status string, count int64) {
	s.Total += count
	switch status {
	case StatusPending:
		s.Pending = count
	case StatusSent:
		s.Sent = count
	case StatusDelivered:
		s.Delivered = count
	case StatusFailed:
		s.Failed = count
	}
}
