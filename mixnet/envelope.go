package mixnet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"
	"time"
)

// MessageKind distinguishes group from private payloads. The cascade treats
// both identically; the kind only informs payload shape on delivery.
type MessageKind string

const (
	KindGroup   MessageKind = "group"
	KindPrivate MessageKind = "private"
)

// Valid returns true if the message kind is recognized.
func (k MessageKind) Valid() bool {
	switch k {
	case KindGroup, KindPrivate:
		return true
	}
	return false
}

// Envelope wraps one in-flight message. The ciphertext and sender metadata
// are opaque to the cascade and forwarded untouched; only the mixing
// metadata (provenance, release delay, last stage) is mutated, and only by
// the stage currently processing the envelope's batch.
type Envelope struct {
	// Ciphertext is the pre-encrypted payload. Never inspected.
	Ciphertext []byte `json:"ciphertext"`

	// RecipientID addresses the envelope. Opaque to the cascade.
	RecipientID string `json:"recipient_id"`

	// SenderMeta is an opaque sender payload forwarded untouched.
	SenderMeta []byte `json:"sender_meta,omitempty"`

	// MessageID uniquely identifies the message. Caller-supplied or
	// generated on submission.
	MessageID string `json:"message_id"`

	// Kind is the payload shape hint for delivery.
	Kind MessageKind `json:"kind"`

	// SubmittedAt records when the envelope entered the cascade.
	SubmittedAt time.Time `json:"submitted_at"`

	// Provenance lists the stages already traversed, in cascade order,
	// without duplicates. Its length never exceeds the number of
	// configured stages.
	Provenance []string `json:"provenance"`

	// ReleaseDelayMs is the delay stamped by the most recent stage to
	// process the envelope. Each stage overwrites it; the value is never
	// accumulated across stages.
	ReleaseDelayMs int `json:"release_delay_ms"`

	// LastProcessedBy names the stage that most recently processed the
	// envelope.
	LastProcessedBy string `json:"last_processed_by"`
}

// FullyMixed reports whether the envelope traversed every configured stage,
// in cascade order.
func (e *Envelope) FullyMixed(stageNames []string) bool {
	return len(stageNames) > 0 && slices.Equal(e.Provenance, stageNames)
}

// NewMessageID generates a random 128-bit hex message identifier.
func NewMessageID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(b[:])
}
