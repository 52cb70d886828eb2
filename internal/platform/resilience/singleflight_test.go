package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFlight_CollapsesConcurrentCalls(t *testing.T) {
	t.Parallel()

	var f Flight[[]byte]
	var calls atomic.Int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			value, _, err := f.Do("/fixtures?live=all", func() ([]byte, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return []byte(`{"response":[]}`), nil
			})
			if err != nil || string(value) != `{"response":[]}` {
				t.Errorf("unexpected result %q err=%v", value, err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one execution, got %d", got)
	}
}

func TestFlight_ErrorReturnsZeroValue(t *testing.T) {
	t.Parallel()

	var f Flight[*int]
	value, _, err := f.Do("k", func() (*int, error) {
		return nil, errors.New("boom")
	})
	if err == nil || value != nil {
		t.Fatalf("expected error and nil value, got %v %v", value, err)
	}
}
