package domain

import (
	"fmt"
	"time"
)

// CodeValidity is how long an issued verification code stays usable.
const CodeValidity = 10 * time.Minute

// VerificationCode is one issued code per recipient email.
// PK: email — a later write for the same address overwrites the earlier one.
// ExpiresAt is stored as an RFC 3339 string; expiry is derived from it at
// read time, never stored as a flag.
type VerificationCode struct {
	Email       string     `json:"email" dynamodbav:"email"`
	Code        string     `json:"code" dynamodbav:"code"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt   string     `json:"expires_at" dynamodbav:"expires_at"`
	EmailSent   *bool      `json:"email_sent,omitempty" dynamodbav:"email_sent,omitempty"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty" dynamodbav:"email_sent_at,omitempty"`
	EmailError  string     `json:"email_error,omitempty" dynamodbav:"email_error,omitempty"`
}

// ExpiresAtTime parses the stored expiry instant. It is the only expiry
// accessor; callers compare the instant against their own clock.
func (v *VerificationCode) ExpiresAtTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, v.ExpiresAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expires_at %q: %w", v.ExpiresAt, err)
	}
	return t, nil
}

// Outcome is the result of exactly one delivery attempt. It can only be built
// through DeliveredAt or FailedWith, so a record update can never carry both a
// success timestamp and a failure reason.
type Outcome struct {
	delivered bool
	sentAt    time.Time
	reason    string
}

// DeliveredAt builds a successful delivery outcome.
func DeliveredAt(at time.Time) Outcome {
	return Outcome{delivered: true, sentAt: at}
}

// FailedWith builds a failed delivery outcome.
func FailedWith(reason string) Outcome {
	return Outcome{delivered: false, reason: reason}
}

func (o Outcome) Delivered() bool   { return o.delivered }
func (o Outcome) SentAt() time.Time { return o.sentAt }
func (o Outcome) Reason() string    { return o.reason }
