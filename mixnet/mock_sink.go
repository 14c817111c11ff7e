package mixnet

import "sync"

// Delivery records one sink invocation.
type Delivery struct {
	RecipientID   string
	Kind          MessageKind
	Ciphertext    []byte
	MessageID     string
	DeliveredAtMs int64
	Mixed         bool
}

// MockSink implements DeliverySink for testing. It records every delivery
// and optionally forwards to a custom function.
type MockSink struct {
	mu         sync.Mutex
	deliveries []Delivery
	deliverFn  func(Delivery)
}

// NewMockSink creates an empty recording sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// SetDeliverFunc installs a hook invoked on every delivery, after recording.
func (m *MockSink) SetDeliverFunc(fn func(Delivery)) {
	m.mu.Lock()
	m.deliverFn = fn
	m.mu.Unlock()
}

// DeliverEncrypted implements DeliverySink.
func (m *MockSink) DeliverEncrypted(recipientID string, kind MessageKind, ciphertext []byte, messageID string, deliveredAtMs int64, mixed bool) {
	d := Delivery{
		RecipientID:   recipientID,
		Kind:          kind,
		Ciphertext:    ciphertext,
		MessageID:     messageID,
		DeliveredAtMs: deliveredAtMs,
		Mixed:         mixed,
	}

	m.mu.Lock()
	m.deliveries = append(m.deliveries, d)
	fn := m.deliverFn
	m.mu.Unlock()

	if fn != nil {
		fn(d)
	}
}

// Deliveries returns a copy of all recorded deliveries.
func (m *MockSink) Deliveries() []Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Delivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

// Count returns the number of recorded deliveries.
func (m *MockSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}
