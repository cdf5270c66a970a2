package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func waitAsync(h *Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	return errCh
}

func TestHandler_HooksRunInReverse(t *testing.T) {
	h := NewHandler(time.Second)

	var order []string
	for _, name := range []string{"close storage", "persist", "stop listener"} {
		name := name
		h.OnShutdown(func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	errCh := waitAsync(h)
	h.Trigger("test")

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return")
	}

	want := []string{"stop listener", "persist", "close storage"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done() should be closed after Wait")
	}
}

func TestHandler_Trigger(t *testing.T) {
	h := NewHandler(time.Second)
	if h.Reason() != "" {
		t.Errorf("Reason() before shutdown = %q", h.Reason())
	}

	errCh := waitAsync(h)
	h.Trigger("local command")
	h.Trigger("ignored")

	if err := <-errCh; err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if h.Reason() != "local command" {
		t.Errorf("Reason() = %q, want local command", h.Reason())
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := NewHandler(time.Second)
	boom := errors.New("persist failed")

	ran := false
	h.OnShutdown(func(context.Context) error {
		ran = true
		return nil
	})
	h.OnShutdown(func(context.Context) error { return boom })

	errCh := waitAsync(h)
	h.Trigger("test")

	if err := <-errCh; !errors.Is(err, boom) {
		t.Errorf("Wait() error = %v, want %v", err, boom)
	}
	if !ran {
		t.Error("a failing hook must not stop later hooks")
	}
}

func TestHandler_HookDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)

	h.OnShutdown(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("hook context has no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h)
	h.Trigger("test")

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("hook deadline not applied")
	}
}
