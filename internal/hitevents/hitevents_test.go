package hitevents

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
)

func TestPublisher_SendsKeyedJSON(t *testing.T) {
	prod := mocks.NewAsyncProducer(t, nil)

	var got Event
	prod.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "digipin-lookups" {
			t.Errorf("topic=%q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "4P3-JK8-52C9" {
			t.Errorf("key=%q", key)
		}
		val, _ := msg.Value.Encode()
		return json.Unmarshal(val, &got)
	})

	p := newWithProducer(prod, "digipin-lookups", 4, zerolog.Nop())
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !p.Publish(Event{DigiPin: "4P3-JK8-52C9", Lat: 12.9716, Lon: 77.5946, TS: ts, Source: "encode"}) {
		t.Fatal("Publish should queue")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	want := Event{DigiPin: "4P3-JK8-52C9", Lat: 12.9716, Lon: 77.5946, TS: ts, Source: "encode"}
	if got != want {
		t.Fatalf("event=%+v want %+v", got, want)
	}
}

func TestPublisher_ProducerErrorsAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	prod := mocks.NewAsyncProducer(t, nil)
	prod.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	p := newWithProducer(prod, "t", 4, zerolog.Nop())
	p.Publish(Event{DigiPin: "39J-49L-L8T4", Source: "decode"})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	expected := `
# HELP hit_events_total Lookup events by outcome (queued, dropped, error, consumed, decode_error, invalid).
# TYPE hit_events_total counter
hit_events_total{outcome="error"} 1
hit_events_total{outcome="queued"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "hit_events_total"); err != nil {
		t.Fatal(err)
	}
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)
	t.Cleanup(func() { observability.Init(nil, false) })

	// no pump: the queue only drains when a consumer exists
	p := &Publisher{events: make(chan Event, 1)}
	if !p.Publish(Event{DigiPin: "FFF-FFF-FFFF"}) {
		t.Fatal("first event should be queued")
	}
	if p.Publish(Event{DigiPin: "FFF-FFF-FFFF"}) {
		t.Fatal("second event should be dropped")
	}

	ev := <-p.events
	if ev.TS.IsZero() {
		t.Fatal("Publish should stamp a timestamp")
	}

	expected := `
# HELP hit_events_total Lookup events by outcome (queued, dropped, error, consumed, decode_error, invalid).
# TYPE hit_events_total counter
hit_events_total{outcome="dropped"} 1
hit_events_total{outcome="queued"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "hit_events_total"); err != nil {
		t.Fatal(err)
	}
}

func TestDiscard(t *testing.T) {
	var s Sink = Discard{}
	if s.Publish(Event{}) {
		t.Fatal("Discard must not queue")
	}
}
