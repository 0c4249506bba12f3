package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewJobSystemInvalid(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		size    int
		want    error
	}{
		{"no workers", 0, 1, ErrNoWorkers},
		{"negative size", 1, -1, ErrNegativeChannelSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJobSystem(tt.workers, tt.size); !errors.Is(err, tt.want) {
				t.Errorf("NewJobSystem() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	if err != nil {
		t.Fatalf("NewJobSystem() error = %v", err)
	}
	if got := js.Workers(); got != 4 {
		t.Errorf("Workers() = %d, want 4", got)
	}

	var completed, failed, callbacks atomic.Int32
	var mu sync.Mutex
	results := map[int]bool{}
	for i := 0; i < 20; i++ {
		err := js.Submit(JobTask{
			Name: "job",
			Run: func() (interface{}, error) {
				if i%5 == 0 {
					return nil, errors.New("boom")
				}
				return i, nil
			},
			OnComplete: func(result interface{}) {
				completed.Add(1)
				mu.Lock()
				results[result.(int)] = true
				mu.Unlock()
			},
			OnFailure:            func(error) { failed.Add(1) },
			OnCompletionCallback: func() { callbacks.Add(1) },
		})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if err := js.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if completed.Load() != 16 || failed.Load() != 4 || callbacks.Load() != 20 {
		t.Errorf("completed, failed, callbacks = %d, %d, %d, want 16, 4, 20", completed.Load(), failed.Load(), callbacks.Load())
	}
	if len(results) != 16 {
		t.Errorf("distinct results = %d, want 16", len(results))
	}
}

func TestJobSystemSubmitAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	if err != nil {
		t.Fatalf("NewJobSystem() error = %v", err)
	}
	if err := js.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := js.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	run := func() (interface{}, error) { return nil, nil }
	if err := js.Submit(JobTask{Name: "late", Run: run}); !errors.Is(err, ErrJobSystemClosed) {
		t.Errorf("Submit() error = %v, want ErrJobSystemClosed", err)
	}
	if err := js.Submit(JobTask{Name: "empty"}); err == nil {
		t.Errorf("Submit() without Run returned no error")
	}
}
