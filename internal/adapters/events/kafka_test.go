package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/ports"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second}

	open := false
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(),
		ports.StatusEvent{Type: ports.EventMallToggled, MallID: 1, IsOpen: &open, Actor: "admin", Role: entities.RoleAdmin, OccurredAt: at},
		ports.StatusEvent{Type: ports.EventStoreToggled, MallID: 1, StoreID: 2, IsOpen: &open, Actor: "admin", Role: entities.RoleAdmin, Cascade: true, OccurredAt: at},
	)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}

	m := w.msgs[1]
	if string(m.Key) != "1" {
		t.Fatalf("expected key \"1\", got %q", m.Key)
	}
	if !m.Time.Equal(at) {
		t.Fatalf("unexpected message time %s", m.Time)
	}
	if len(m.Headers) != 1 || string(m.Headers[0].Value) != "store.toggled" {
		t.Fatalf("unexpected headers %+v", m.Headers)
	}

	var got map[string]any
	if err := json.Unmarshal(m.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["type"] != "store.toggled" || got["storeId"] != float64(2) || got["isOpen"] != false || got["cascade"] != true {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestKafkaPublisher_NoEvents(t *testing.T) {
	w := &recordingWriter{err: errors.New("should not be called")}
	p := &KafkaPublisher{writer: w}
	if err := p.Publish(context.Background()); err != nil {
		t.Fatalf("empty publish must be a no-op, got %v", err)
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &recordingWriter{err: boom}}
	err := p.Publish(context.Background(), ports.StatusEvent{Type: ports.EventStoreUpdated, MallID: 2, StoreID: 3})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	if err := p.Close(); err != nil || !w.closed {
		t.Fatalf("Close: %v closed=%v", err, w.closed)
	}
}

func TestNoop(t *testing.T) {
	var p ports.EventPublisher = Noop{}
	if err := p.Publish(context.Background(), ports.StatusEvent{Type: ports.EventMallToggled}); err != nil {
		t.Fatalf("Noop.Publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Noop.Close: %v", err)
	}
}
