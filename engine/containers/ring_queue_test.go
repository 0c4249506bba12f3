package containers

import (
	"errors"
	"reflect"
	"testing"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	if err := rq.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue() on a full queue error = %v, want ErrQueueFull", err)
	}
	if v, _ := rq.Peek(); v != 1 {
		t.Errorf("Peek() = %d, want 1", v)
	}
	for want := 1; want <= 3; want++ {
		got, err := rq.Dequeue()
		if err != nil || got != want {
			t.Errorf("Dequeue() = %d, %v, want %d", got, err, want)
		}
	}
	if _, err := rq.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Dequeue() on an empty queue error = %v, want ErrQueueEmpty", err)
	}
}

func TestRingQueuePushWraps(t *testing.T) {
	rq := NewRingQueue[string](2)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		rq.Push(s)
	}
	if got, want := rq.Items(), []string{"d", "e"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Items() = %v, want %v", got, want)
	}
	if rq.Len() != 2 || !rq.IsFull() {
		t.Errorf("Len() = %d, IsFull() = %t, want 2 and true", rq.Len(), rq.IsFull())
	}
}

func TestRingQueueMinimumSize(t *testing.T) {
	rq := NewRingQueue[int](0)
	rq.Push(7)
	rq.Push(8)
	if got := rq.Items(); len(got) != 1 || got[0] != 8 {
		t.Errorf("Items() = %v, want [8]", got)
	}
}
