package entity

import (
	"strings"
	"time"
)

type CallbackStatus string

const (
	CallbackStatusPending  CallbackStatus = "pending"
	CallbackStatusApproved CallbackStatus = "approved"
	CallbackStatusDeclined CallbackStatus = "declined"
	CallbackStatusCanceled CallbackStatus = "canceled"
	CallbackStatusOther    CallbackStatus = "other"
)

// ParseCallbackStatus maps a processor status onto the known set.
// Unknown values become CallbackStatusOther.
func ParseCallbackStatus(raw string) CallbackStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return CallbackStatusPending
	case "approved":
		return CallbackStatusApproved
	case "declined":
		return CallbackStatusDeclined
	case "canceled", "cancelled":
		return CallbackStatusCanceled
	default:
		return CallbackStatusOther
	}
}

// Terminal reports whether the processor will not move the transaction further.
func (s CallbackStatus) Terminal() bool {
	switch s {
	case CallbackStatusApproved, CallbackStatusDeclined, CallbackStatusCanceled:
		return true
	default:
		return false
	}
}

type ReferenceSource string

const (
	ReferenceSourceField    ReferenceSource = "reference"
	ReferenceSourceMetadata ReferenceSource = "metadata"
)

const WarningReferenceMismatch = "reference_mismatch"

type CallbackPayload struct {
	TransactionID   string
	Status          CallbackStatus
	RawStatus       string
	Amount          int64
	Mode            string
	Reference       string
	ReferenceSource ReferenceSource
	Customer        *Customer
	Metadata        map[string]string
	ProcessedAt     *time.Time
	Warnings        []string

	// Raw is the body as received, kept for the audit trail.
	Raw []byte
}

func (p *CallbackPayload) UserID() string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(p.Metadata[MetadataUserID])
}

func (p *CallbackPayload) HasWarning(warning string) bool {
	for _, w := range p.Warnings {
		if w == warning {
			return true
		}
	}
	return false
}
