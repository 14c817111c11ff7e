package chat

import (
	"sort"
	"strings"

	"github.com/ruteri/go-mixcascade/mixnet"
)

// User is a member of the room. PublicKey holds the user's encryption key
// as published through the key directory; it is opaque to the server.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PublicKey string `json:"publicKey,omitempty"`
	JoinedAt  int64  `json:"joinedAt"`
	InRoom    bool   `json:"inRoom"`
}

// JoinRequest asks to join the room under a display name.
type JoinRequest struct {
	Name string `json:"name"`
}

// JoinResponse carries the initial room state for a new member.
type JoinResponse struct {
	Self  *User   `json:"self"`
	Users []*User `json:"users"`
	Polls []*Poll `json:"polls"`
}

// GroupMessageRequest submits an encrypted message to the whole room.
type GroupMessageRequest struct {
	SenderID   string `json:"senderId"`
	Ciphertext []byte `json:"ciphertext"`
}

// PrivateMessageRequest submits an encrypted message to a single recipient.
type PrivateMessageRequest struct {
	SenderID   string `json:"senderId"`
	To         string `json:"to"`
	Ciphertext []byte `json:"ciphertext"`
}

// SubmitResponse returns the message id assigned to a submission.
type SubmitResponse struct {
	MessageID string `json:"messageId"`
}

// KeyUpdateRequest publishes a user's public encryption key.
type KeyUpdateRequest struct {
	UserID    string `json:"userId"`
	PublicKey string `json:"publicKey"`
}

// Delivery is a completed cascade delivery as recorded in the journal and
// pushed to live clients. Mixed reports whether the message traversed
// every relay stage in order.
type Delivery struct {
	MessageID     string             `json:"messageId"`
	Conversation  string             `json:"conversation"`
	SenderID      string             `json:"senderId"`
	RecipientID   string             `json:"recipientId"`
	Kind          mixnet.MessageKind `json:"kind"`
	Ciphertext    []byte             `json:"ciphertext"`
	DeliveredAtMs int64              `json:"deliveredAtMs"`
	Mixed         bool               `json:"mixed"`
}

// Event is the envelope for all websocket pushes.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// DMKey returns the canonical conversation key for a user pair, the same
// regardless of direction.
func DMKey(id1, id2 string) string {
	pair := []string{id1, id2}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}
