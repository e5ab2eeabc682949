package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"testing"
)

func TestJSONLoggerEvent(t *testing.T) {
	var buf bytes.Buffer
	a := NewJSONLogger(log.New(&buf, "", 0))

	a.Event(context.Background(), EventCodeReplay, map[string]any{
		"client_id": "c1",
		"family_id": "fam-1",
	})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a JSON line: %v", err)
	}
	if got["event"] != EventCodeReplay {
		t.Fatalf("event = %v", got["event"])
	}
	if got["client_id"] != "c1" || got["family_id"] != "fam-1" {
		t.Fatalf("fields not carried: %v", got)
	}
	if got["ts"] == "" {
		t.Fatal("missing timestamp")
	}
}

func TestJSONLoggerNilFields(t *testing.T) {
	var buf bytes.Buffer
	a := NewJSONLogger(log.New(&buf, "", 0))
	a.Event(context.Background(), EventFamilyRevoked, nil)
	if buf.Len() == 0 {
		t.Fatal("nothing written")
	}
}
