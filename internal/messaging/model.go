// Package messaging keeps the append-only logs of outbound reminders and
// templated messages. Rows are never updated or deleted.
package messaging

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/validation"
)

type EntityType string

const (
	EntityAppointment EntityType = "appointment"
	EntityMedication  EntityType = "medication"
	EntityVaccination EntityType = "vaccination"
	EntityPayment     EntityType = "payment"
)

type Channel string

const ChannelWhatsApp Channel = "whatsapp"

type ReminderStatus string

const (
	ReminderSent   ReminderStatus = "sent"
	ReminderFailed ReminderStatus = "failed"
)

type ReminderLog struct {
	ID            uuid.UUID
	ClinicID      uuid.UUID
	EntityType    EntityType
	EntityID      string
	Channel       Channel
	Status        ReminderStatus
	FailureReason string
	SentAt        *time.Time
	CreatedAt     time.Time
}

type ReminderInput struct {
	EntityType    EntityType
	EntityID      string
	Channel       Channel
	Status        ReminderStatus
	FailureReason string
	// SentAt is an RFC 3339 timestamp; empty means unknown.
	SentAt string
}

func (in *ReminderInput) normalize() (*time.Time, error) {
	v := validation.Violations{}
	switch in.EntityType {
	case EntityAppointment, EntityMedication, EntityVaccination, EntityPayment:
	default:
		v.Add("entity_type", "invalid")
	}
	in.EntityID = strings.TrimSpace(in.EntityID)
	validation.Required("entity_id", in.EntityID, v)
	if in.Channel == "" {
		in.Channel = ChannelWhatsApp
	} else if in.Channel != ChannelWhatsApp {
		v.Add("channel", "invalid")
	}
	if in.Status != ReminderSent && in.Status != ReminderFailed {
		v.Add("status", "invalid")
	}
	in.FailureReason = strings.TrimSpace(in.FailureReason)

	var sentAt *time.Time
	if s := strings.TrimSpace(in.SentAt); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			v.Add("sent_at", "invalid")
		} else {
			sentAt = &t
		}
	}
	return sentAt, v.Err()
}

type MessageStatus string

const (
	MessageQueued MessageStatus = "queued"
	MessageSent   MessageStatus = "sent"
	MessageFailed MessageStatus = "failed"
)

type MessageLog struct {
	ID                uuid.UUID
	ClinicID          uuid.UUID
	RecipientPhone    string
	TemplateName      string
	Payload           json.RawMessage
	Status            MessageStatus
	ProviderMessageID string
	CreatedAt         time.Time
}

type MessageInput struct {
	RecipientPhone    string
	TemplateName      string
	Payload           json.RawMessage
	Status            MessageStatus
	ProviderMessageID string
}

func (in *MessageInput) normalize() error {
	v := validation.Violations{}
	in.RecipientPhone = strings.TrimSpace(in.RecipientPhone)
	in.TemplateName = strings.TrimSpace(in.TemplateName)
	validation.Required("recipient_phone", in.RecipientPhone, v)
	validation.Required("template_name", in.TemplateName, v)
	if !isObject(in.Payload) {
		v.Add("payload", "must_be_json_object")
	}
	if in.Status == "" {
		in.Status = MessageQueued
	}
	switch in.Status {
	case MessageQueued, MessageSent, MessageFailed:
	default:
		v.Add("status", "invalid")
	}
	in.ProviderMessageID = strings.TrimSpace(in.ProviderMessageID)
	return v.Err()
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var obj map[string]any
	return json.Unmarshal(trimmed, &obj) == nil
}
