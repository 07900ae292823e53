package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed delivery channel", errors.New("message channel closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"handler failure", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "diary", queueName: "entry_changes"}

	if client.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit should open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should half-open after timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", client.state)
	}

	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("a failure while half-open should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "diary", queueName: "entry_changes"}
	msg := NewEntryChangedMessage("e1", ActionCreated, "2026-03-15")

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	err := client.PublishEntryChanged(context.Background(), msg)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	client.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishEntryChanged(ctx, msg); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEntryChangedMessage_JSON(t *testing.T) {
	msg := &EntryChangedMessage{
		ID:        "e1",
		Action:    ActionDeleted,
		EntryDate: "2026-03-15",
		Timestamp: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(body), `"entry_date":"2026-03-15"`) {
		t.Fatalf("unexpected body %s", body)
	}
	parsed, err := EntryChangedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("EntryChangedMessageFromJSON() error = %v", err)
	}
	if *parsed != *msg {
		t.Fatalf("parsed = %+v, want %+v", parsed, msg)
	}
	if parsed.Year() != 2026 {
		t.Fatalf("Year() = %d", parsed.Year())
	}
}

func TestEntryChangedMessage_Invalid(t *testing.T) {
	for _, body := range []string{
		`{"id": 5}`,
		`{"id":"x","action":"exploded"}`,
		`not json`,
		`{"id":"e1","action":"created","entry_date":"garbage"}`,
		`{"id":"e1","action":"created"}`,
	} {
		if _, err := EntryChangedMessageFromJSON([]byte(body)); err == nil {
			t.Errorf("expected error for %s", body)
		}
	}
	if (&EntryChangedMessage{EntryDate: "garbage"}).Year() != 0 {
		t.Error("unparseable date should give year 0")
	}
}

func TestProcessDelivery(t *testing.T) {
	valid := `{"id":"e1","action":"created","entry_date":"2026-03-15"}`
	tests := []struct {
		name       string
		body       string
		handlerErr error
		want       deliveryOutcome
		wantCalled bool
	}{
		{name: "handled", body: valid, want: outcomeAck, wantCalled: true},
		{name: "transient failure requeued", body: valid, handlerErr: errors.New("sheets quota"), want: outcomeRequeue, wantCalled: true},
		{name: "permanent failure dropped", body: valid, handlerErr: fmt.Errorf("bad row: %w", ErrPermanent), want: outcomeDrop, wantCalled: true},
		{name: "unusable date dropped", body: `{"id":"e1","action":"created","entry_date":"garbage"}`, want: outcomeDrop},
		{name: "malformed json dropped", body: `{`, want: outcomeDrop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			got := processDelivery(context.Background(), []byte(tt.body), func(context.Context, *EntryChangedMessage) error {
				called = true
				return tt.handlerErr
			})
			if got != tt.want {
				t.Errorf("processDelivery() = %d, want %d", got, tt.want)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}
