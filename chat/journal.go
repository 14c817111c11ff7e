package chat

import "sync"

// HistoryCap bounds how many deliveries are retained per conversation.
const HistoryCap = 200

// Journal records completed cascade deliveries and serves conversation
// history. Only deliveries are journaled; messages still pooled inside the
// cascade are never persisted.
type Journal interface {
	Record(d *Delivery) error
	History(conversation string, limit int) ([]*Delivery, error)
	Close() error
}

// MemoryJournal implements Journal without a database.
type MemoryJournal struct {
	mu            sync.RWMutex
	conversations map[string][]*Delivery
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{conversations: make(map[string][]*Delivery)}
}

// Record appends a delivery to its conversation, evicting the oldest entry
// once the conversation exceeds HistoryCap.
func (j *MemoryJournal) Record(d *Delivery) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	hist := append(j.conversations[d.Conversation], d)
	if len(hist) > HistoryCap {
		hist = hist[1:]
	}
	j.conversations[d.Conversation] = hist
	return nil
}

// History returns the most recent deliveries for a conversation in
// delivery order. A limit of 0 or less means no limit beyond HistoryCap.
func (j *MemoryJournal) History(conversation string, limit int) ([]*Delivery, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	hist := j.conversations[conversation]
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}

	result := make([]*Delivery, len(hist))
	copy(result, hist)
	return result, nil
}

func (j *MemoryJournal) Close() error {
	return nil
}
