package api

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestReportErrDeliversWhenChannelFree(t *testing.T) {
	errCh := make(chan error, 1)

	reportErr(context.Background(), errCh, fmt.Errorf("read message: boom"))

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected non-nil error")
		}
	default:
		t.Fatal("expected error on channel")
	}
}

func TestReportErrDoesNotBlockAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	errCh <- fmt.Errorf("read message: first failure")
	cancel()

	done := make(chan struct{})
	go func() {
		reportErr(ctx, errCh, fmt.Errorf("write ping: second failure"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on a full channel after cancellation")
	}
}
