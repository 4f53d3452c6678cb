package events

import (
	"context"
	"errors"
	"testing"
)

func TestPublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventSignedIn, func(ctx context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("audit sink down")
	})
	d.Subscribe(EventSignedIn, func(ctx context.Context, e Event) error {
		calls = append(calls, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventSignedOut, func(ctx context.Context, e Event) error {
		calls = append(calls, "unexpected")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventSignedIn, "u-1"))
	if err == nil {
		t.Fatal("expected joined handler error")
	}
	if len(calls) != 2 || calls[1] != "second:u-1" {
		t.Fatalf("unexpected calls %v", calls)
	}
}
