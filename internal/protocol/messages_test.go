package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageUserMessage(t *testing.T) {
	raw := []byte(`{"type":"user_message","session_id":"s1","text":"create task"}`)
	got, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() = %v", err)
	}
	msg, ok := got.(UserMessage)
	if !ok {
		t.Fatalf("ParseClientMessage() type = %T, want UserMessage", got)
	}
	if msg.SessionID != "s1" || msg.Text != "create task" {
		t.Fatalf("msg = %+v", msg)
	}
}

func TestParseClientMessageRejectsIncomplete(t *testing.T) {
	cases := []string{
		`{"type":"user_message","session_id":"s1"}`,
		`{"type":"user_message","text":"hi"}`,
		`{"type":"user_message"}`,
	}
	for _, raw := range cases {
		if _, err := ParseClientMessage([]byte(raw)); err == nil {
			t.Errorf("ParseClientMessage(%s) = nil error, want rejection", raw)
		}
	}
}

func TestParseClientMessageRejectsOtherTypes(t *testing.T) {
	cases := []string{
		`{"type":"assistant_message","session_id":"s1","text":"hi"}`,
		`{"type":"notification_event"}`,
		`{"type":"ping"}`,
		`{}`,
	}
	for _, raw := range cases {
		_, err := ParseClientMessage([]byte(raw))
		if !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("ParseClientMessage(%s) = %v, want ErrUnsupportedType", raw, err)
		}
	}
}

func TestParseClientMessageRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":`)); err == nil {
		t.Fatal("malformed frame accepted")
	}
}
