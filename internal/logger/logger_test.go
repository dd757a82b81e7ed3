package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutput_JSONOutsideLocal(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	log := NewWithOutput(&buf).Module("locator")
	log.WithError(errors.New("boom")).Info("search failed")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["module"] != "locator" || line["error"] != "boom" || line["service"] != "mashup" {
		t.Fatalf("unexpected fields: %#v", line)
	}
}

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"noise": logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := levelFromEnv(in); got != want {
			t.Fatalf("levelFromEnv(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithRequest_GeneratesRequestID(t *testing.T) {
	req := httptest.NewRequest("POST", "/mashup", nil)
	entry := Discard().WithRequest(req)
	if id, _ := entry.Data["req_id"].(string); id == "" {
		t.Fatalf("expected generated req_id, got %#v", entry.Data)
	}

	req.Header.Set("X-Request-ID", "abc")
	entry = Discard().WithRequest(req)
	if entry.Data["req_id"] != "abc" {
		t.Fatalf("expected propagated req_id, got %#v", entry.Data["req_id"])
	}
}
