package mixnet

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// BaseDelayMs is the minimum release delay any stage stamps on an envelope.
const BaseDelayMs = 10

// RelayStage is a single mix hop. It pools envelopes in arrival order and
// releases them only in uniformly permuted batches of exactly the configured
// threshold, stamping each released envelope with a randomized release delay.
//
// AddMessage and ProcessBatch are safe for concurrent use; the pool is a
// critical section because submissions can race the tick.
type RelayStage struct {
	name           string
	batchThreshold int
	maxDelayMs     int

	mu   sync.Mutex
	pool []*Envelope
}

// NewRelayStage creates a relay stage. The batch threshold must be at least 1
// (a threshold of 1 degenerates to delay-only mixing and is allowed), and the
// maximum delay must be at least BaseDelayMs so the random delay range does
// not underflow.
func NewRelayStage(name string, batchThreshold, maxDelayMs int) (*RelayStage, error) {
	if name == "" {
		return nil, errors.New("stage name cannot be empty")
	}
	if batchThreshold < 1 {
		return nil, fmt.Errorf("stage %s: batch threshold must be at least 1, got %d", name, batchThreshold)
	}
	if maxDelayMs < BaseDelayMs {
		return nil, fmt.Errorf("stage %s: max delay %dms is below the base delay %dms", name, maxDelayMs, BaseDelayMs)
	}

	return &RelayStage{
		name:           name,
		batchThreshold: batchThreshold,
		maxDelayMs:     maxDelayMs,
	}, nil
}

// Name returns the stage's unique name within its cascade.
func (s *RelayStage) Name() string {
	return s.name
}

// BatchThreshold returns the minimum pool size required to release a batch.
func (s *RelayStage) BatchThreshold() int {
	return s.batchThreshold
}

// PoolSize returns the number of envelopes currently queued at this stage.
func (s *RelayStage) PoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

// AddMessage appends an envelope to the tail of the pool. It always succeeds:
// there is no deduplication and no backpressure, so the pool grows without
// bound if batches rarely fill.
func (s *RelayStage) AddMessage(env *Envelope) {
	s.mu.Lock()
	s.pool = append(s.pool, env)
	s.mu.Unlock()
}

// ProcessBatch releases one batch if the pool has reached the threshold.
//
// Below threshold it returns nil and leaves the pool untouched. Otherwise it
// removes exactly the oldest batchThreshold envelopes (the remainder keeps
// its relative order), applies a uniform random permutation to the removed
// batch, and stamps each envelope: the stage name is appended to the
// provenance, LastProcessedBy is set, and ReleaseDelayMs is overwritten with
// BaseDelayMs + Uniform(0, maxDelayMs-BaseDelayMs) so the stamped delay is
// always within [BaseDelayMs, maxDelayMs].
func (s *RelayStage) ProcessBatch() []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pool) < s.batchThreshold {
		return nil
	}

	batch := make([]*Envelope, s.batchThreshold)
	copy(batch, s.pool[:s.batchThreshold])
	s.pool = append(s.pool[:0:0], s.pool[s.batchThreshold:]...)

	rand.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})

	for _, env := range batch {
		env.Provenance = append(env.Provenance, s.name)
		env.LastProcessedBy = s.name
		env.ReleaseDelayMs = BaseDelayMs + rand.Intn(s.maxDelayMs-BaseDelayMs+1)
	}

	return batch
}
