package chat

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/ruteri/go-mixcascade/mixnet"
)

var ErrEmptyCiphertext = errors.New("ciphertext is required")

// routing is remembered per in-flight message so a delivery callback can be
// journaled under its conversation and pushed to the right connections. The
// cascade itself only carries recipient and kind.
type routing struct {
	senderID     string
	conversation string
}

// Service is the room service. It owns the directory, the live hub, the
// poll board and the delivery journal, and it is the delivery sink of its
// mixing cascade: every message leaves through the cascade and comes back
// via DeliverEncrypted.
type Service struct {
	log     *slog.Logger
	cascade *mixnet.Cascade

	Directory *Directory
	Hub       *Hub
	Polls     *PollBoard

	journal Journal

	mu       sync.Mutex
	inFlight map[string]routing
}

// NewService wires a service and its cascade from the given stage
// configuration.
func NewService(cfg *mixnet.CascadeConfig, journal Journal, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	svc := &Service{
		log:       log,
		Directory: NewDirectory(),
		Hub:       NewHub(log),
		Polls:     NewPollBoard(),
		journal:   journal,
		inFlight:  make(map[string]routing),
	}

	cascade, err := mixnet.NewCascadeFromConfig(cfg, svc, log)
	if err != nil {
		return nil, err
	}
	svc.cascade = cascade

	return svc, nil
}

// Cascade exposes the underlying cascade, primarily for the tick driver.
func (s *Service) Cascade() *mixnet.Cascade {
	return s.cascade
}

// SubmitGroup routes an encrypted room message through the cascade.
func (s *Service) SubmitGroup(senderID string, ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", ErrEmptyCiphertext
	}
	if _, ok := s.Directory.Get(senderID); !ok {
		return "", ErrUnknownUser
	}

	messageID, err := s.cascade.Submit(ciphertext, RoomName, nil, "", mixnet.KindGroup)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.inFlight[messageID] = routing{senderID: senderID, conversation: RoomName}
	s.mu.Unlock()

	return messageID, nil
}

// SubmitPrivate routes an encrypted direct message through the cascade.
func (s *Service) SubmitPrivate(senderID, recipientID string, ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", ErrEmptyCiphertext
	}
	if _, ok := s.Directory.Get(senderID); !ok {
		return "", ErrUnknownUser
	}
	if _, ok := s.Directory.Get(recipientID); !ok {
		return "", ErrUnknownUser
	}

	messageID, err := s.cascade.Submit(ciphertext, recipientID, nil, "", mixnet.KindPrivate)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.inFlight[messageID] = routing{senderID: senderID, conversation: DMKey(senderID, recipientID)}
	s.mu.Unlock()

	return messageID, nil
}

// DeliverEncrypted implements mixnet.DeliverySink. The delivery is
// journaled first, then pushed live: group messages to the whole room,
// private messages to recipient and sender.
func (s *Service) DeliverEncrypted(recipientID string, kind mixnet.MessageKind, ciphertext []byte, messageID string, deliveredAtMs int64, mixed bool) {
	s.mu.Lock()
	route, known := s.inFlight[messageID]
	delete(s.inFlight, messageID)
	s.mu.Unlock()

	if !known {
		// Delivery for a message this service did not submit.
		s.log.Warn("delivery without routing info", "messageId", messageID)
		route.conversation = recipientID
	}

	delivery := &Delivery{
		MessageID:     messageID,
		Conversation:  route.conversation,
		SenderID:      route.senderID,
		RecipientID:   recipientID,
		Kind:          kind,
		Ciphertext:    ciphertext,
		DeliveredAtMs: deliveredAtMs,
		Mixed:         mixed,
	}

	if err := s.journal.Record(delivery); err != nil {
		s.log.Error("journaling delivery failed", "messageId", messageID, "err", err)
	}

	event := &Event{Event: "message_delivered", Data: delivery}
	switch kind {
	case mixnet.KindGroup:
		s.Hub.Broadcast(event)
	case mixnet.KindPrivate:
		s.Hub.Push(recipientID, event)
		if route.senderID != "" && route.senderID != recipientID {
			s.Hub.Push(route.senderID, event)
		}
	default:
		s.log.Warn("delivery with unknown kind", "messageId", messageID, "kind", kind)
	}
}

// RoomHistory returns the most recent room deliveries.
func (s *Service) RoomHistory(limit int) ([]*Delivery, error) {
	return s.journal.History(RoomName, limit)
}

// PrivateHistory returns the most recent deliveries between two users.
func (s *Service) PrivateHistory(user1, user2 string, limit int) ([]*Delivery, error) {
	return s.journal.History(DMKey(user1, user2), limit)
}

// Join admits a user and announces them to the room.
func (s *Service) Join(name string) (*JoinResponse, error) {
	user, err := s.Directory.Join(name)
	if err != nil {
		return nil, err
	}

	s.Hub.Broadcast(&Event{Event: "user_joined", Data: user})

	return &JoinResponse{
		Self:  user,
		Users: s.Directory.List(),
		Polls: s.Polls.List(),
	}, nil
}

// Leave marks a user out of the room and announces it.
func (s *Service) Leave(userID string) error {
	user, err := s.Directory.Leave(userID)
	if err != nil {
		return err
	}
	s.Hub.Broadcast(&Event{Event: "user_left", Data: user})
	return nil
}

// UpdateKey publishes a user's public key and announces the change so
// clients can encrypt for them.
func (s *Service) UpdateKey(userID, publicKey string) (*User, error) {
	user, err := s.Directory.UpdateKey(userID, publicKey)
	if err != nil {
		return nil, err
	}
	s.Hub.Broadcast(&Event{Event: "user_key_updated", Data: user})
	return user, nil
}

// CreatePoll opens a poll and announces it.
func (s *Service) CreatePoll(userID, question string, options []string) (*Poll, error) {
	user, ok := s.Directory.Get(userID)
	if !ok {
		return nil, ErrUnknownUser
	}

	poll, err := s.Polls.Create(user.Name, question, options)
	if err != nil {
		return nil, err
	}
	s.Hub.Broadcast(&Event{Event: "poll_new", Data: poll})
	return poll, nil
}

// Vote records a poll vote and announces the updated tallies.
func (s *Service) Vote(pollID, userID, optionID string) (*Poll, error) {
	if _, ok := s.Directory.Get(userID); !ok {
		return nil, ErrUnknownUser
	}

	poll, err := s.Polls.Vote(pollID, userID, optionID)
	if err != nil {
		return nil, err
	}
	s.Hub.Broadcast(&Event{Event: "poll_update", Data: poll})
	return poll, nil
}

// Close releases the journal.
func (s *Service) Close() error {
	return s.journal.Close()
}
