package download

import (
	"context"
	"testing"
	"time"

	"clipstream/internal/domain"
)

func TestQueuePopReturnsTasksInOrder(t *testing.T) {
	q := newQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.push(domain.Task{ID: id})
	}

	ctx := context.Background()
	for _, want := range []string{"a", "b", "c"} {
		task, err := q.pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if task.ID != want {
			t.Fatalf("pop order: got %q, want %q", task.ID, want)
		}
	}
	if q.len() != 0 {
		t.Fatalf("len = %d after draining, want 0", q.len())
	}
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := newQueue()
	got := make(chan domain.Task, 1)

	go func() {
		task, err := q.pop(context.Background())
		if err != nil {
			return
		}
		got <- task
	}()

	// Give the consumer a moment to block.
	time.Sleep(20 * time.Millisecond)
	q.push(domain.Task{ID: "late"})

	select {
	case task := <-got:
		if task.ID != "late" {
			t.Fatalf("got task %q, want %q", task.ID, "late")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not wake up after push")
	}
}

func TestQueuePopHonorsContextCancellation(t *testing.T) {
	q := newQueue()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.pop(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("pop error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pop did not return after cancellation")
	}
}

func TestQueueBurstOfPushesFullyDrained(t *testing.T) {
	// Many pushes collapse into one ready signal; pop must still be able
	// to drain everything.
	q := newQueue()
	const n = 50
	for i := 0; i < n; i++ {
		q.push(domain.Task{ID: "t"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < n; i++ {
		if _, err := q.pop(ctx); err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
	}
	if q.len() != 0 {
		t.Fatalf("len = %d after draining, want 0", q.len())
	}
}
