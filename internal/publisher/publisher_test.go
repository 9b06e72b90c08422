package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/alarmdesk/console/pkg/model"
)

// --- mock types ---

type mockJetStream struct {
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream"}, nil
}

func newTestPublisher(js jetStreamPublisher) *Publisher {
	return &Publisher{
		js:      js,
		subject: "evt.auth.login.v1",
		service: "authd",
	}
}

// --- tests ---

func TestPublishEnvelope_SetsHeaders(t *testing.T) {
	js := &mockJetStream{}
	p := newTestPublisher(js)

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		Subject:       "admin",
		EventType:     "auth.login.succeeded",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
	}

	if err := p.PublishEnvelope(context.Background(), "", env); err != nil {
		t.Fatalf("PublishEnvelope failed: %v", err)
	}

	if len(js.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(js.published))
	}

	msg := js.published[0]
	if msg.Subject != "evt.auth.login.v1" {
		t.Errorf("expected default subject, got %s", msg.Subject)
	}
	if got := msg.Header.Get("event_type"); got != "auth.login.succeeded" {
		t.Errorf("expected event_type header, got %s", got)
	}
	if got := msg.Header.Get("service"); got != "authd" {
		t.Errorf("expected service header=authd, got %s", got)
	}
}

func TestPublishLoginEvent_WrapsPayload(t *testing.T) {
	js := &mockJetStream{}
	p := newTestPublisher(js)

	ev := model.LoginEvent{
		Username:  "admin",
		Outcome:   "failed",
		Reason:    "invalid credentials",
		RemoteIP:  "10.0.0.7",
		Timestamp: time.Now().UTC(),
	}

	if err := p.PublishLoginEvent(context.Background(), ev); err != nil {
		t.Fatalf("PublishLoginEvent failed: %v", err)
	}

	if len(js.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(js.published))
	}

	var env model.Envelope
	if err := json.Unmarshal(js.published[0].Data, &env); err != nil {
		t.Fatalf("failed to unmarshal envelope: %v", err)
	}
	if env.EventType != "auth.login.failed" {
		t.Errorf("expected event_type=auth.login.failed, got %s", env.EventType)
	}
	if env.Subject != "admin" {
		t.Errorf("expected subject=admin, got %s", env.Subject)
	}

	var payload model.LoginEvent
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.Reason != "invalid credentials" {
		t.Errorf("expected reason in payload, got %s", payload.Reason)
	}
}

func TestPublishEnvelope_MarshalError(t *testing.T) {
	js := &mockJetStream{}
	p := newTestPublisher(js)

	// Truncated raw JSON makes the envelope unmarshalable.
	env := &model.Envelope{
		ID:        uuid.New(),
		EventType: "auth.login.succeeded",
		Payload:   json.RawMessage(`{"broken`),
	}

	if err := p.PublishEnvelope(context.Background(), "", env); err == nil {
		t.Fatal("expected error for unmarshalable envelope")
	}
	if len(js.published) != 0 {
		t.Fatalf("expected nothing published, got %d", len(js.published))
	}
}

func TestPublishLoginEvent_PublishError(t *testing.T) {
	js := &mockJetStream{fail: true}
	p := newTestPublisher(js)

	err := p.PublishLoginEvent(context.Background(), model.LoginEvent{
		Username: "admin",
		Outcome:  "succeeded",
	})
	if err == nil {
		t.Fatal("expected error when JetStream publish fails")
	}
}
