package chat

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MaxPollOptions caps the number of options a poll may carry; extra
// options are silently dropped.
const MaxPollOptions = 8

var (
	ErrTooFewOptions = errors.New("provide at least 2 options")
	ErrUnknownPoll   = errors.New("unknown poll")
	ErrUnknownOption = errors.New("unknown option")
	ErrEmptyQuestion = errors.New("question is required")
)

// PollOption is a single choice with its running tally.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is a room poll. VotesByUser maps user id to the option they last
// voted for; changing a vote moves the tally, it does not add to it.
type Poll struct {
	ID          string            `json:"id"`
	Question    string            `json:"question"`
	CreatedBy   string            `json:"createdBy"`
	Options     []*PollOption     `json:"options"`
	VotesByUser map[string]string `json:"votesByUser"`
	CreatedAt   int64             `json:"createdAt"`
}

// PollBoard holds all polls for the room.
type PollBoard struct {
	mu    sync.RWMutex
	polls map[string]*Poll
	order []string
}

func NewPollBoard() *PollBoard {
	return &PollBoard{polls: make(map[string]*Poll)}
}

// Create opens a new poll. Blank options are discarded, the option count is
// capped at MaxPollOptions, and at least two options must survive cleaning.
func (b *PollBoard) Create(createdBy, question string, options []string) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	clean := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			clean = append(clean, o)
		}
	}
	if len(clean) > MaxPollOptions {
		clean = clean[:MaxPollOptions]
	}
	if len(clean) < 2 {
		return nil, ErrTooFewOptions
	}

	poll := &Poll{
		ID:          newPollID(),
		Question:    question,
		CreatedBy:   createdBy,
		Options:     make([]*PollOption, 0, len(clean)),
		VotesByUser: make(map[string]string),
		CreatedAt:   time.Now().UnixMilli(),
	}
	for _, text := range clean {
		poll.Options = append(poll.Options, &PollOption{ID: newPollID(), Text: text})
	}

	b.mu.Lock()
	b.polls[poll.ID] = poll
	b.order = append(b.order, poll.ID)
	b.mu.Unlock()

	return poll.clone(), nil
}

// Vote records a user's vote. A revote first decrements the user's prior
// choice, so each user contributes at most one tally.
func (b *PollBoard) Vote(pollID, userID, optionID string) (*Poll, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	poll, ok := b.polls[pollID]
	if !ok {
		return nil, ErrUnknownPoll
	}

	opt := poll.findOption(optionID)
	if opt == nil {
		return nil, ErrUnknownOption
	}

	if prev, voted := poll.VotesByUser[userID]; voted {
		if prevOpt := poll.findOption(prev); prevOpt != nil && prevOpt.Votes > 0 {
			prevOpt.Votes--
		}
	}

	poll.VotesByUser[userID] = optionID
	opt.Votes++

	return poll.clone(), nil
}

// List returns all polls in creation order.
func (b *PollBoard) List() []*Poll {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*Poll, 0, len(b.order))
	for _, id := range b.order {
		result = append(result, b.polls[id].clone())
	}
	return result
}

func (p *Poll) findOption(id string) *PollOption {
	for _, o := range p.Options {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (p *Poll) clone() *Poll {
	cp := &Poll{
		ID:          p.ID,
		Question:    p.Question,
		CreatedBy:   p.CreatedBy,
		Options:     make([]*PollOption, 0, len(p.Options)),
		VotesByUser: make(map[string]string, len(p.VotesByUser)),
		CreatedAt:   p.CreatedAt,
	}
	for _, o := range p.Options {
		oc := *o
		cp.Options = append(cp.Options, &oc)
	}
	for k, v := range p.VotesByUser {
		cp.VotesByUser[k] = v
	}
	return cp
}

func newPollID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return hex.EncodeToString(buf[:])
}
