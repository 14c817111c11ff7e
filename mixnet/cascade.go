package mixnet

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ErrNoStages is returned by Submit when the cascade has no configured
// relay stages.
var ErrNoStages = errors.New("no relay stages configured")

// Cascade owns an ordered, immutable-after-setup sequence of relay stages
// and drives one processing tick across the whole chain. Envelopes are
// delivered only once they have traversed every configured stage; the
// traversal is recorded in each envelope's provenance trail.
type Cascade struct {
	log  *slog.Logger
	sink DeliverySink

	// ticking enforces single-flight ticks: an overlapping Tick call is
	// dropped, never queued.
	ticking atomic.Bool

	mu     sync.RWMutex
	stages []*RelayStage
}

// NewCascade creates an empty cascade delivering to the given sink.
func NewCascade(sink DeliverySink, log *slog.Logger) *Cascade {
	if log == nil {
		log = slog.Default()
	}
	return &Cascade{
		log:  log,
		sink: sink,
	}
}

// AddNode appends a relay stage to the cascade. Setup-time only: there is no
// contract for adding or removing stages once traffic has begun. Stage names
// must be unique within the cascade.
func (c *Cascade) AddNode(stage *RelayStage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.stages {
		if existing.Name() == stage.Name() {
			return fmt.Errorf("duplicate stage name %q", stage.Name())
		}
	}
	c.stages = append(c.stages, stage)
	return nil
}

// StageNames returns the configured stage names in cascade order.
func (c *Cascade) StageNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.stages))
	for i, stage := range c.stages {
		names[i] = stage.Name()
	}
	return names
}

// Submit accepts one pre-encrypted message into the cascade, enqueueing it at
// stage 0. The message identifier is generated when empty. Submit fails only
// when the cascade has no configured stages.
func (c *Cascade) Submit(ciphertext []byte, recipientID string, senderMeta []byte, messageID string, kind MessageKind) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.stages) == 0 {
		return "", ErrNoStages
	}

	if messageID == "" {
		messageID = NewMessageID()
	}

	env := &Envelope{
		Ciphertext:  ciphertext,
		RecipientID: recipientID,
		SenderMeta:  senderMeta,
		MessageID:   messageID,
		Kind:        kind,
		SubmittedAt: time.Now(),
	}
	c.stages[0].AddMessage(env)

	c.log.Debug("message submitted", "messageId", messageID, "kind", kind, "pool", c.stages[0].PoolSize())
	return messageID, nil
}

// Tick runs one processing pass over the whole chain: drain a batch from
// stage 0, feed it forward stage by stage, and deliver whatever clears the
// final stage. At most one tick runs at a time; a call arriving while a tick
// is in progress is dropped. A tick is a no-op when every stage's pool is
// empty.
//
// When an intermediate stage's threshold is unmet the tick halts there: the
// just-fed envelopes stay parked in that stage's pool, provenance intact, and
// are reconsidered on a future tick. That is normal backpressure, not an
// error.
func (c *Cascade) Tick() {
	if !c.ticking.CompareAndSwap(false, true) {
		c.log.Debug("tick already in progress, dropping")
		return
	}
	defer c.ticking.Store(false)

	c.mu.RLock()
	stages := c.stages
	c.mu.RUnlock()

	if len(stages) == 0 {
		return
	}

	idle := true
	for _, stage := range stages {
		if stage.PoolSize() > 0 {
			idle = false
			break
		}
	}
	if idle {
		return
	}

	batch := stages[0].ProcessBatch()
	if len(batch) == 0 {
		return
	}

	for _, stage := range stages[1:] {
		for _, env := range batch {
			stage.AddMessage(env)
		}
		batch = stage.ProcessBatch()
		if len(batch) == 0 {
			c.log.Debug("tick halted mid-chain", "stage", stage.Name(), "parked", stage.PoolSize())
			return
		}
	}

	c.deliver(batch)
}

// deliver hands a terminal batch to the sink. Each envelope's release delay
// is applied before the sink call, asynchronously per envelope so a large
// batch does not stall subsequent ticks. The per-envelope order of stamp
// delay, wait, deliver is preserved, and the asynchronous path never touches
// stage pools.
//
// An envelope whose provenance does not cover every configured stage is
// flagged mixed=false but still delivered: fail-open for observability.
func (c *Cascade) deliver(batch []*Envelope) {
	names := c.StageNames()

	for _, env := range batch {
		mixed := env.FullyMixed(names)
		if !mixed {
			c.log.Warn("provenance mismatch on terminal envelope",
				"messageId", env.MessageID, "provenance", env.Provenance)
		}

		go func(env *Envelope, mixed bool) {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("delivery sink panicked", "messageId", env.MessageID, "panic", r)
				}
			}()

			time.Sleep(time.Duration(env.ReleaseDelayMs) * time.Millisecond)
			c.sink.DeliverEncrypted(env.RecipientID, env.Kind, env.Ciphertext, env.MessageID, time.Now().UnixMilli(), mixed)
		}(env, mixed)
	}
}
