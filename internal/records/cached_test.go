package records

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ledgerview/internal/core"
)

type countingRepo struct {
	calls atomic.Int32
	err   error
	gate  chan struct{}
	recs  []core.Record
}

func (r *countingRepo) Fetch(ctx context.Context, _ core.Kind, _ core.Scope) ([]core.Record, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return append([]core.Record(nil), r.recs...), nil
}

var acme = core.Scope{Rule: core.ScopeTenant, ID: "acme"}

func TestCachedServesRepeatFetchesFromCache(t *testing.T) {
	repo := &countingRepo{recs: []core.Record{{ID: "1", Number: "INV-1"}}}
	c := NewCached(repo, 8, time.Minute)
	ctx := context.Background()

	first, err := c.Fetch(ctx, core.KindInvoice, acme)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	first[0].Number = "mutated"

	second, err := c.Fetch(ctx, core.KindInvoice, acme)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if repo.calls.Load() != 1 {
		t.Fatalf("backend called %d times, want 1", repo.calls.Load())
	}
	if second[0].Number != "INV-1" {
		t.Fatalf("cached slice was mutated through a previous result")
	}

	c.Invalidate(core.KindInvoice, acme)
	if _, err := c.Fetch(ctx, core.KindInvoice, acme); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if repo.calls.Load() != 2 {
		t.Fatalf("expected refetch after invalidate, calls = %d", repo.calls.Load())
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := &countingRepo{err: boom}
	c := NewCached(repo, 8, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(ctx, core.KindInvoice, acme); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if repo.calls.Load() != 2 {
		t.Fatalf("errors should not be cached, calls = %d", repo.calls.Load())
	}
}

func TestCachedKeysByKindAndScope(t *testing.T) {
	repo := &countingRepo{}
	c := NewCached(repo, 8, time.Minute)
	ctx := context.Background()

	_, _ = c.Fetch(ctx, core.KindInvoice, acme)
	_, _ = c.Fetch(ctx, core.KindInvoice, core.Scope{Rule: core.ScopeTenant, ID: "globex"})
	_, _ = c.Fetch(ctx, core.KindPurchaseOrder, acme)
	if repo.calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", repo.calls.Load())
	}
}

func TestCachedCollapsesConcurrentMisses(t *testing.T) {
	repo := &countingRepo{gate: make(chan struct{})}
	c := NewCached(repo, 8, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Fetch(context.Background(), core.KindInvoice, acme)
		}()
	}
	// Let the first caller reach the backend before releasing it.
	deadline := time.Now().Add(time.Second)
	for repo.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(repo.gate)
	wg.Wait()

	if n := repo.calls.Load(); n < 1 || n > 5 {
		t.Fatalf("unexpected backend calls: %d", n)
	}
}

func waitForCalls(t *testing.T, repo *countingRepo, n int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for repo.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("backend calls = %d, want %d", repo.calls.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCachedSharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	repo := &countingRepo{gate: make(chan struct{}), recs: []core.Record{{ID: "1", Number: "INV-1"}}}
	c := NewCached(repo, 8, time.Minute)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctxA, core.KindInvoice, acme)
		errA <- err
	}()
	waitForCalls(t, repo, 1)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("caller A err = %v, want context.Canceled", err)
	}

	type result struct {
		recs []core.Record
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		recs, err := c.Fetch(context.Background(), core.KindInvoice, acme)
		resB <- result{recs, err}
	}()
	close(repo.gate)

	got := <-resB
	if got.err != nil {
		t.Fatalf("caller B err = %v", got.err)
	}
	if len(got.recs) != 1 || got.recs[0].Number != "INV-1" {
		t.Fatalf("caller B records = %+v", got.recs)
	}
	if n := repo.calls.Load(); n != 1 {
		t.Fatalf("backend calls = %d, want 1 shared call", n)
	}
}

func TestCachedSharedFetchIsBounded(t *testing.T) {
	repo := &countingRepo{gate: make(chan struct{})}
	c := NewCached(repo, 8, time.Minute).WithTimeout(20 * time.Millisecond)

	_, err := c.Fetch(context.Background(), core.KindInvoice, acme)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
