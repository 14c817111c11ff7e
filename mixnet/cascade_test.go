package mixnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func buildCascade(t *testing.T, sink DeliverySink, descs ...StageDescriptor) *Cascade {
	t.Helper()

	cascade := NewCascade(sink, nil)
	for _, desc := range descs {
		stage, err := NewRelayStage(desc.Name, desc.BatchThreshold, desc.MaxDelayMs)
		require.NoError(t, err)
		require.NoError(t, cascade.AddNode(stage))
	}
	return cascade
}

func TestSubmitNoStages(t *testing.T) {
	cascade := NewCascade(NewMockSink(), nil)

	_, err := cascade.Submit([]byte("payload"), "recipient", nil, "", KindGroup)
	require.ErrorIs(t, err, ErrNoStages)
}

func TestSubmitGeneratesUniqueMessageIDs(t *testing.T) {
	cascade := buildCascade(t, NewMockSink(),
		StageDescriptor{Name: "stage1", BatchThreshold: 2, MaxDelayMs: 50})

	id1, err := cascade.Submit([]byte("a"), "r", nil, "", KindGroup)
	require.NoError(t, err)
	id2, err := cascade.Submit([]byte("b"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	require.NotEmpty(t, id1)
	require.NotEmpty(t, id2)
	require.NotEqual(t, id1, id2)
}

func TestSubmitKeepsCallerMessageID(t *testing.T) {
	cascade := buildCascade(t, NewMockSink(),
		StageDescriptor{Name: "stage1", BatchThreshold: 2, MaxDelayMs: 50})

	id, err := cascade.Submit([]byte("a"), "r", nil, "caller-id", KindPrivate)
	require.NoError(t, err)
	require.Equal(t, "caller-id", id)
}

func TestAddNodeRejectsDuplicateName(t *testing.T) {
	cascade := NewCascade(NewMockSink(), nil)

	s1, err := NewRelayStage("stage1", 2, 50)
	require.NoError(t, err)
	s2, err := NewRelayStage("stage1", 3, 60)
	require.NoError(t, err)

	require.NoError(t, cascade.AddNode(s1))
	require.Error(t, cascade.AddNode(s2))
}

func TestTickNoOpBelowThreshold(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 2, MaxDelayMs: 50})

	_, err := cascade.Submit([]byte("a"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	cascade.Tick()
	cascade.Tick()

	require.Equal(t, 0, sink.Count())
	cascade.mu.RLock()
	require.Equal(t, 1, cascade.stages[0].PoolSize())
	cascade.mu.RUnlock()
}

// Scenario A: three stages, two messages, one tick delivers both fully mixed.
func TestThreeStageCascadeDeliversInOneTick(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 2, MaxDelayMs: 50},
		StageDescriptor{Name: "stage2", BatchThreshold: 2, MaxDelayMs: 75},
		StageDescriptor{Name: "stage3", BatchThreshold: 2, MaxDelayMs: 60})

	idA, err := cascade.Submit([]byte("msg-a"), "alice", nil, "", KindPrivate)
	require.NoError(t, err)
	idB, err := cascade.Submit([]byte("msg-b"), "bob", nil, "", KindPrivate)
	require.NoError(t, err)

	cascade.Tick()

	require.Eventually(t, func() bool { return sink.Count() == 2 }, time.Second, 5*time.Millisecond)

	delivered := map[string]Delivery{}
	for _, d := range sink.Deliveries() {
		delivered[d.MessageID] = d
	}
	require.Contains(t, delivered, idA)
	require.Contains(t, delivered, idB)
	require.True(t, delivered[idA].Mixed)
	require.True(t, delivered[idB].Mixed)
	require.Equal(t, "alice", delivered[idA].RecipientID)
	require.Equal(t, []byte("msg-a"), delivered[idA].Ciphertext)
}

// Scenario B: a single message below threshold waits indefinitely; the second
// submission releases both together.
func TestSingleStageWaitsForSibling(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 2, MaxDelayMs: 20})

	_, err := cascade.Submit([]byte("first"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		cascade.Tick()
	}
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, sink.Count())

	_, err = cascade.Submit([]byte("second"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	cascade.Tick()
	require.Eventually(t, func() bool { return sink.Count() == 2 }, time.Second, 5*time.Millisecond)
}

// Scenario C: both hops clear within a single tick thanks to the chain walk.
func TestTwoStageChainClearsInOneTick(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 2, MaxDelayMs: 20},
		StageDescriptor{Name: "stage2", BatchThreshold: 2, MaxDelayMs: 20})

	_, err := cascade.Submit([]byte("a"), "r", nil, "", KindGroup)
	require.NoError(t, err)
	_, err = cascade.Submit([]byte("b"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	cascade.Tick()

	require.Eventually(t, func() bool { return sink.Count() == 2 }, time.Second, 5*time.Millisecond)
	for _, d := range sink.Deliveries() {
		require.True(t, d.Mixed)
	}
}

// A tick that stalls at an intermediate stage parks the in-flight envelopes
// there, provenance intact, and a later tick carries them the rest of the way.
func TestTickHaltsMidChainAndResumes(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 1, MaxDelayMs: 20},
		StageDescriptor{Name: "stage2", BatchThreshold: 2, MaxDelayMs: 20})

	_, err := cascade.Submit([]byte("straggler"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	cascade.Tick()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, sink.Count())

	cascade.mu.RLock()
	stage2 := cascade.stages[1]
	cascade.mu.RUnlock()
	require.Equal(t, 1, stage2.PoolSize())

	stage2.mu.Lock()
	require.Equal(t, []string{"stage1"}, stage2.pool[0].Provenance)
	stage2.mu.Unlock()

	_, err = cascade.Submit([]byte("second"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	cascade.Tick()
	require.Eventually(t, func() bool { return sink.Count() == 2 }, time.Second, 5*time.Millisecond)
	for _, d := range sink.Deliveries() {
		require.True(t, d.Mixed)
	}
}

func TestTickDroppedWhileAnotherInProgress(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 1, MaxDelayMs: 10})

	_, err := cascade.Submit([]byte("a"), "r", nil, "", KindGroup)
	require.NoError(t, err)

	// Simulate an in-progress tick: the overlapping call must be dropped,
	// leaving the pool untouched.
	cascade.ticking.Store(true)
	cascade.Tick()
	cascade.mu.RLock()
	require.Equal(t, 1, cascade.stages[0].PoolSize())
	cascade.mu.RUnlock()

	cascade.ticking.Store(false)
	cascade.Tick()
	require.Eventually(t, func() bool { return sink.Count() == 1 }, time.Second, 5*time.Millisecond)
}

// Delivery is fail-open: an envelope with incomplete provenance is still
// handed to the sink, flagged mixed=false.
func TestDeliverFailOpenOnProvenanceMismatch(t *testing.T) {
	sink := NewMockSink()
	cascade := buildCascade(t, sink,
		StageDescriptor{Name: "stage1", BatchThreshold: 1, MaxDelayMs: 10},
		StageDescriptor{Name: "stage2", BatchThreshold: 1, MaxDelayMs: 10})

	env := testEnvelope("gappy")
	env.Provenance = []string{"stage2"}
	env.ReleaseDelayMs = BaseDelayMs
	cascade.deliver([]*Envelope{env})

	require.Eventually(t, func() bool { return sink.Count() == 1 }, time.Second, 5*time.Millisecond)
	require.False(t, sink.Deliveries()[0].Mixed)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CascadeConfig
		wantErr bool
	}{
		{"default is valid", *DefaultCascadeConfig(), false},
		{"no stages", CascadeConfig{TickInterval: time.Second}, true},
		{"zero tick interval", CascadeConfig{Stages: []StageDescriptor{{Name: "s", BatchThreshold: 1, MaxDelayMs: 10}}}, true},
		{"duplicate names", CascadeConfig{
			TickInterval: time.Second,
			Stages: []StageDescriptor{
				{Name: "s", BatchThreshold: 1, MaxDelayMs: 10},
				{Name: "s", BatchThreshold: 1, MaxDelayMs: 10},
			},
		}, true},
		{"bad stage bounds", CascadeConfig{
			TickInterval: time.Second,
			Stages:       []StageDescriptor{{Name: "s", BatchThreshold: 0, MaxDelayMs: 10}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewCascadeFromConfig(t *testing.T) {
	sink := NewMockSink()
	cascade, err := NewCascadeFromConfig(DefaultCascadeConfig(), sink, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"entry", "core", "exit"}, cascade.StageNames())
}
