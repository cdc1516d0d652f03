package link

import (
	"testing"

	"github.com/battlesnake/iplink/internal/testutil/testlog"
)

func TestByteQueuePushAdvanceBytes(t *testing.T) {
	testlog.Start(t)
	var q byteQueue
	q.Push([]byte("hello"))
	q.Push([]byte(" world"))
	if string(q.Bytes()) != "hello world" {
		t.Fatalf("got=%q", q.Bytes())
	}
	q.Advance(6)
	if string(q.Bytes()) != "world" {
		t.Fatalf("got=%q", q.Bytes())
	}
	if q.Empty() {
		t.Fatalf("should not be empty")
	}
	q.Advance(5)
	if !q.Empty() {
		t.Fatalf("should be empty after consuming everything")
	}
}

func TestByteQueueCompactsLargeConsumedPrefix(t *testing.T) {
	testlog.Start(t)
	var q byteQueue
	q.Push(make([]byte, 10000))
	q.Push([]byte("tail"))
	q.Advance(9999)
	if q.head != 0 {
		t.Fatalf("head=%d want=0 after compaction", q.head)
	}
	if q.Len() != len("tail")+1 {
		t.Fatalf("len=%d want=%d", q.Len(), len("tail")+1)
	}
}

func TestFrameQueueFIFO(t *testing.T) {
	testlog.Start(t)
	var q frameQueue
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	f, ok := q.Pop()
	if !ok || string(f) != "a" {
		t.Fatalf("got=%q ok=%v", f, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("len=%d want=1", q.Len())
	}
	q.Clear()
	if !q.Empty() {
		t.Fatalf("should be empty after Clear")
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop on empty queue should report ok=false")
	}
}
