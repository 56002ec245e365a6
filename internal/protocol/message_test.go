package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"realtime-canvas/internal/model"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := Decode([]byte(`{"type":"submit","payload":{"kind":"dot","x":1,"y":2}}`))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if env.Type != TypeSubmit {
		t.Fatalf("type = %q, want submit", env.Type)
	}

	p, err := DecodeSubmit(env.Payload)
	if err != nil {
		t.Fatalf("DecodeSubmit() error: %v", err)
	}
	if p.Kind != model.OpKindDot || p.X == nil || *p.X != 1 || p.Y == nil || *p.Y != 2 {
		t.Fatalf("payload = %+v", p)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{``, `not json`, `{}`, `{"payload":{}}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%q) succeeded, want error", in)
		}
	}
}

func TestDecodeSubmitInvalid(t *testing.T) {
	if _, err := DecodeSubmit(nil); !errors.Is(err, model.ErrInvalidOperation) {
		t.Fatalf("DecodeSubmit(nil) = %v", err)
	}
	if _, err := DecodeSubmit(json.RawMessage(`{"kind":1}`)); !errors.Is(err, model.ErrInvalidOperation) {
		t.Fatalf("DecodeSubmit(bad kind) = %v", err)
	}
}

func TestSubmitPayloadColorFallback(t *testing.T) {
	x, y := 1.0, 1.0

	noColor := SubmitPayload{Kind: model.OpKindDot, X: &x, Y: &y}
	if got := noColor.Operation("red").Color; got != "red" {
		t.Fatalf("fallback color = %q, want red", got)
	}

	withColor := SubmitPayload{Kind: model.OpKindDot, Color: "#123456", X: &x, Y: &y}
	if got := withColor.Operation("red").Color; got != "#123456" {
		t.Fatalf("explicit color = %q, want #123456", got)
	}
}

func TestEncodeOmitsEmptyPayload(t *testing.T) {
	b, err := Encode(TypeCleared, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"cleared"}` {
		t.Fatalf("Encode(cleared) = %s", b)
	}

	b = MustEncode(TypePresence, PresencePayload{Count: 2})
	if string(b) != `{"type":"presence","payload":{"count":2}}` {
		t.Fatalf("Encode(presence) = %s", b)
	}
}

func TestAppliedWireShape(t *testing.T) {
	op := model.NewDot(3, 4, "red")
	op.Sequence = 7
	op.AppliedAt = 1000

	b := MustEncode(TypeApplied, op)

	var got struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != "applied" {
		t.Fatalf("type = %q", got.Type)
	}
	for _, key := range []string{"kind", "color", "x", "y", "sequence", "ts"} {
		if _, ok := got.Payload[key]; !ok {
			t.Errorf("applied payload missing %q: %s", key, b)
		}
	}
	if _, ok := got.Payload["path"]; ok {
		t.Errorf("dot payload carries path: %s", b)
	}
}
