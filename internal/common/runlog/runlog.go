// Package runlog keeps a bounded history of summary runs for the debug endpoint.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"qfusion/internal/common/database"
)

// Run is one orchestrator execution, successful or not.
type Run struct {
	ID         string            `json:"id"`
	EntityType string            `json:"entityType"`
	Model      string            `json:"model,omitempty"`
	Query      map[string]string `json:"query,omitempty"`
	Stage      string            `json:"stage"`
	FailedAt   string            `json:"failedAt,omitempty"`
	Code       string            `json:"code,omitempty"`
	Error      string            `json:"error,omitempty"`
	ItemCount  int               `json:"itemCount"`
	StartedAt  time.Time         `json:"startedAt"`
	DurationMs int64             `json:"durationMs"`
}

type Recorder interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, n int) ([]Run, error)
}

// RedisRecorder stores runs newest-first in a capped Redis list.
type RedisRecorder struct {
	client *database.RedisClient
	key    string
	size   int
}

func NewRedisRecorder(client *database.RedisClient, key string, size int) *RedisRecorder {
	return &RedisRecorder{client: client, key: key, size: size}
}

func (r *RedisRecorder) Record(ctx context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return r.client.PushCapped(ctx, r.key, data, r.size)
}

func (r *RedisRecorder) Recent(ctx context.Context, n int) ([]Run, error) {
	vals, err := r.client.Head(ctx, r.key, n)
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(vals))
	for _, v := range vals {
		var run Run
		if err := json.Unmarshal([]byte(v), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// MemoryRecorder keeps runs in process; used when Redis is disabled.
type MemoryRecorder struct {
	mu   sync.RWMutex
	runs []Run
	size int
}

func NewMemoryRecorder(size int) *MemoryRecorder {
	return &MemoryRecorder{size: size}
}

func (m *MemoryRecorder) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append([]Run{run}, m.runs...)
	if m.size > 0 && len(m.runs) > m.size {
		m.runs = m.runs[:m.size]
	}
	return nil
}

func (m *MemoryRecorder) Recent(_ context.Context, n int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.runs) {
		n = len(m.runs)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Run, n)
	copy(out, m.runs[:n])
	return out, nil
}
