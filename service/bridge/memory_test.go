package bridge

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemoryBridgeDeliversToRoomSubscribers(t *testing.T) {
	b := NewMemoryBridge()

	var got []Envelope
	if _, err := b.Subscribe("chat:1", func(env Envelope) { got = append(got, env) }); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe("chat:2", func(env Envelope) { t.Error("wrong room received envelope") }); err != nil {
		t.Fatal(err)
	}

	env := Envelope{Room: "chat:1", Event: "message:new", Payload: json.RawMessage(`{"id":"m1"}`)}
	if err := b.Publish(context.Background(), env); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || got[0].Event != "message:new" {
		t.Fatalf("got %v, want one message:new envelope", got)
	}
}

func TestMemoryBridgeMultipleSubscribers(t *testing.T) {
	b := NewMemoryBridge()

	n := 0
	for i := 0; i < 3; i++ {
		if _, err := b.Subscribe("user:a", func(Envelope) { n++ }); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Publish(context.Background(), Envelope{Room: "user:a", Event: "user:online"}); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("delivered to %d subscribers, want 3", n)
	}
}

func TestMemoryBridgeUnsubscribe(t *testing.T) {
	b := NewMemoryBridge()

	n := 0
	sub, err := b.Subscribe("user:a", func(Envelope) { n++ })
	if err != nil {
		t.Fatal(err)
	}
	if err := sub.Unsubscribe(); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(context.Background(), Envelope{Room: "user:a", Event: "user:online"}); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Error("unsubscribed handler still received envelope")
	}
}

func TestMemoryBridgePublishNoSubscribers(t *testing.T) {
	b := NewMemoryBridge()
	if err := b.Publish(context.Background(), Envelope{Room: "chat:none", Event: "message:new"}); err != nil {
		t.Errorf("publish to empty room should be a no-op, got %v", err)
	}
}
