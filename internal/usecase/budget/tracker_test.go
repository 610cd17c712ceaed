package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/dietwatch/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTracker(daily, monthly int64, action Action, clock *fakeClock) *Tracker {
	tr := NewTracker("openai", daily, monthly, action, nil)
	tr.now = clock.Now
	tr.lastDayReset = truncateToDay(clock.t)
	tr.lastMonthReset = truncateToMonth(clock.t)
	return tr
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)}
}

// --- Mock Store ---

type mockStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]int64)}
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

func (m *mockStore) value(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// --- Limits ---

func TestTracker_Check(t *testing.T) {
	tests := []struct {
		name    string
		daily   int64
		monthly int64
		action  Action
		used    int64
		wantErr bool
	}{
		{name: "daily reject", daily: 100, action: ActionReject, used: 100, wantErr: true},
		{name: "monthly reject", monthly: 500, action: ActionReject, used: 500, wantErr: true},
		{name: "below limit", daily: 1000, monthly: 10000, action: ActionReject, used: 500},
		{name: "warn lets through", daily: 100, action: ActionWarn, used: 200},
		{name: "unlimited", action: ActionReject, used: 999999999},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTracker(tc.daily, tc.monthly, tc.action, newClock())
			tr.Record(tc.used)

			err := tr.Check(context.Background())
			if tc.wantErr {
				if !errors.Is(err, domain.ErrSummarizationQuota) {
					t.Fatalf("expected ErrSummarizationQuota, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTracker_Remaining(t *testing.T) {
	tr := newTestTracker(1000, 10000, ActionWarn, newClock())
	tr.Record(300)

	if got := tr.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := tr.RemainingMonthly(); got != 9700 {
		t.Errorf("expected monthly remaining 9700, got %d", got)
	}

	tr.Record(5000)
	if got := tr.RemainingDaily(); got != 0 {
		t.Errorf("overspent daily budget must report 0, got %d", got)
	}

	unlimited := newTestTracker(0, 0, ActionWarn, newClock())
	if unlimited.RemainingDaily() != -1 || unlimited.RemainingMonthly() != -1 {
		t.Error("expected -1 for unlimited budgets")
	}
}

func TestTracker_RollOver(t *testing.T) {
	clock := newClock()
	tr := newTestTracker(100, 1000, ActionReject, clock)
	tr.Record(100)

	if err := tr.Check(context.Background()); err == nil {
		t.Fatal("expected daily budget to be exhausted")
	}

	// 2024-02-01: both the day and the month roll over.
	clock.t = clock.t.Add(2 * time.Hour)
	if err := tr.Check(context.Background()); err != nil {
		t.Fatalf("expected fresh budget after rollover, got %v", err)
	}
	if tr.RemainingDaily() != 100 || tr.RemainingMonthly() != 1000 {
		t.Errorf("counters not reset: daily=%d monthly=%d", tr.RemainingDaily(), tr.RemainingMonthly())
	}
}

// --- Persistence ---

func TestTracker_WithStore_LoadsValues(t *testing.T) {
	clock := newClock()
	store := newMockStore()
	store.data["dietwatch:budget:openai:daily:2024-01-31"] = 300
	store.data["dietwatch:budget:openai:monthly:2024-01"] = 5000

	tr := newTestTracker(1000, 10000, ActionReject, clock).WithStore(context.Background(), store)

	if got := tr.RemainingDaily(); got != 700 {
		t.Errorf("expected daily remaining 700, got %d", got)
	}
	if got := tr.RemainingMonthly(); got != 5000 {
		t.Errorf("expected monthly remaining 5000, got %d", got)
	}
}

func TestTracker_Record_PersistsToStore(t *testing.T) {
	store := newMockStore()
	tr := newTestTracker(10000, 100000, ActionWarn, newClock()).WithStore(context.Background(), store)

	tr.Record(100)
	tr.Record(200)

	if got := store.value("dietwatch:budget:openai:daily:2024-01-31"); got != 300 {
		t.Errorf("expected store daily=300, got %d", got)
	}
	if got := store.value("dietwatch:budget:openai:monthly:2024-01"); got != 300 {
		t.Errorf("expected store monthly=300, got %d", got)
	}
}

func TestTracker_StoreErrors(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection refused")

	tr := newTestTracker(1000, 0, ActionReject, newClock()).WithStore(context.Background(), store)
	if got := tr.RemainingDaily(); got != 1000 {
		t.Errorf("load error must leave counters at zero, remaining=%d", got)
	}

	store.mu.Lock()
	store.setErr = errors.New("write timeout")
	store.mu.Unlock()

	tr.Record(50)
	if got := tr.RemainingDaily(); got != 950 {
		t.Errorf("write error must not lose the in-memory spend, remaining=%d", got)
	}
}
