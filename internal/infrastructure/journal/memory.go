package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/pos-settlement/internal/infrastructure/kafka"
	"github.com/google/uuid"
)

// MemoryJournal keeps the journal in memory. It backs terminals running
// without a DATABASE_URL and doubles as the test journal; the error
// hooks let tests fail specific calls.
type MemoryJournal struct {
	mu      sync.RWMutex
	events  []Event
	orphans map[string]*Orphan

	producer *kafka.Producer

	RecordErr error
	SaveErr   error
}

func NewMemoryJournal(producer *kafka.Producer) *MemoryJournal {
	return &MemoryJournal{
		orphans:  make(map[string]*Orphan),
		producer: producer,
	}
}

func (m *MemoryJournal) Record(ctx context.Context, eventType, paymentID string, data any) (*Event, error) {
	if m.RecordErr != nil {
		return nil, m.RecordErr
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		PaymentID: paymentID,
		Data:      jsonData,
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.producer != nil {
		if err := m.producer.Publish(ctx, event.PaymentID, event); err != nil {
			return nil, err
		}
	}
	return &event, nil
}

// Events returns the recorded events in order.
func (m *MemoryJournal) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryJournal) SaveOrphan(ctx context.Context, o *Orphan) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orphans[o.PaymentID]; exists {
		return nil
	}
	now := time.Now()
	saved := *o
	saved.Status = OrphanPending
	saved.CreatedAt = now
	saved.UpdatedAt = now
	m.orphans[o.PaymentID] = &saved
	return nil
}

func (m *MemoryJournal) GetOrphan(ctx context.Context, paymentID string) (*Orphan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orphans[paymentID]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (m *MemoryJournal) PendingOrphans(ctx context.Context) ([]Orphan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Orphan
	for _, o := range m.orphans {
		if o.Status == OrphanPending {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *MemoryJournal) MarkOrphan(ctx context.Context, paymentID, status string, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orphans[paymentID]
	if !ok {
		return nil
	}
	o.Status = status
	o.Attempts = attempts
	o.UpdatedAt = time.Now()
	return nil
}
