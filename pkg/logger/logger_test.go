package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLevelFallback(t *testing.T) {
	log := New(LoggingConfig{Level: "loud"})
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info", log.GetLevel())
	}

	log = New(LoggingConfig{Level: "debug", Format: "text"})
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("formatter = %T, want text", log.Formatter)
	}
}

func TestComponentField(t *testing.T) {
	log := NewDefault("transfers")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithField("transfer_id", "t-1").Info("transfer applied")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["component"] != "transfers" {
		t.Errorf("component = %v, want transfers", line["component"])
	}
	if line["transfer_id"] != "t-1" {
		t.Errorf("transfer_id = %v, want t-1", line["transfer_id"])
	}
}

func TestNamedSharesOutput(t *testing.T) {
	root := NewDefault("app")
	var buf bytes.Buffer
	root.SetOutput(&buf)

	child := root.Named("graph")
	child.WithField("relation", "like").Info("edge created")

	if !bytes.Contains(buf.Bytes(), []byte(`"component":"graph"`)) {
		t.Fatalf("expected graph component in %s", buf.String())
	}
	if root.Component() != "app" {
		t.Fatalf("root component changed to %q", root.Component())
	}
}
