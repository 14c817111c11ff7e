package mixnet

import (
	"fmt"
	"log/slog"
	"time"
)

// StageDescriptor configures one relay stage.
type StageDescriptor struct {
	// Name uniquely identifies the stage within the cascade.
	Name string `yaml:"name" json:"name"`

	// BatchThreshold is the minimum pool size required before the stage
	// releases a batch. Must be at least 1.
	BatchThreshold int `yaml:"batch_threshold" json:"batch_threshold"`

	// MaxDelayMs is the upper bound of the randomized release delay the
	// stage stamps on each envelope. Must be at least BaseDelayMs.
	MaxDelayMs int `yaml:"max_delay_ms" json:"max_delay_ms"`
}

// CascadeConfig is the startup configuration surface of the cascade. It is
// applied once at setup; there is no runtime mutation contract.
type CascadeConfig struct {
	// TickInterval is the cadence at which the tick driver invokes Tick.
	TickInterval time.Duration `yaml:"tick_interval" json:"tick_interval,string"`

	// Stages lists the relay stages in cascade order.
	Stages []StageDescriptor `yaml:"stages" json:"stages"`
}

// DefaultCascadeConfig returns a three-stage cascade with the historical
// defaults of a single-node mixer (threshold 3, max delay 500ms).
func DefaultCascadeConfig() *CascadeConfig {
	return &CascadeConfig{
		TickInterval: 100 * time.Millisecond,
		Stages: []StageDescriptor{
			{Name: "entry", BatchThreshold: 3, MaxDelayMs: 500},
			{Name: "core", BatchThreshold: 3, MaxDelayMs: 500},
			{Name: "exit", BatchThreshold: 3, MaxDelayMs: 500},
		},
	}
}

// Validate checks stage bounds and name uniqueness.
func (c *CascadeConfig) Validate() error {
	if len(c.Stages) == 0 {
		return fmt.Errorf("cascade needs at least one stage")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}

	seen := make(map[string]bool, len(c.Stages))
	for _, desc := range c.Stages {
		if seen[desc.Name] {
			return fmt.Errorf("duplicate stage name %q", desc.Name)
		}
		seen[desc.Name] = true

		if _, err := NewRelayStage(desc.Name, desc.BatchThreshold, desc.MaxDelayMs); err != nil {
			return err
		}
	}
	return nil
}

// NewCascadeFromConfig builds a cascade with one relay stage per descriptor,
// in order, delivering to the given sink.
func NewCascadeFromConfig(cfg *CascadeConfig, sink DeliverySink, log *slog.Logger) (*Cascade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cascade config: %w", err)
	}

	cascade := NewCascade(sink, log)
	for _, desc := range cfg.Stages {
		stage, err := NewRelayStage(desc.Name, desc.BatchThreshold, desc.MaxDelayMs)
		if err != nil {
			return nil, err
		}
		if err := cascade.AddNode(stage); err != nil {
			return nil, err
		}
	}
	return cascade, nil
}
