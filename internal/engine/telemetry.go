package engine

import (
	"context"
	"time"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// Event describes one finished compilation for analytics.
type Event struct {
	CompilationID string              `json:"compilation_id"`
	TemplateID    string              `json:"template_id"`
	Style         string              `json:"style"`
	Complexity    template.Complexity `json:"complexity"`
	PromptLength  int                 `json:"prompt_length"`
	Duration      time.Duration       `json:"duration"`
	CacheHit      bool                `json:"cache_hit"`
	Warnings      int                 `json:"warnings"`
}

// Telemetry receives compilation events. Implementations must tolerate
// being called from the compile path; a returned error is logged and never
// fails the compilation.
type Telemetry interface {
	RecordCompilation(ctx context.Context, event Event) error
}

// record invokes telemetry, containing any failure.
func (c *Compiler) record(ctx context.Context, event Event) {
	if c.telemetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.WithFields(map[string]any{"panic": r}).Warn("telemetry panicked")
		}
	}()
	if err := c.telemetry.RecordCompilation(ctx, event); err != nil {
		c.log.Error(err, "telemetry failed")
	}
}
