package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(&buf, "warn")

	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("Expected info to be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected warn to be written, got %q", buf.String())
	}
}

func TestFieldsAndEvents(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput(&buf, "not-a-level")

	log.With(Fields{"item": "i1"}).Info("thrown")
	log.Event("ITEM_PICKED_UP", "P1", "Ammo x3")

	out := buf.String()
	for _, want := range []string{"item=i1", "event=ITEM_PICKED_UP", "actor=P1", "Ammo x3"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output %q", want, out)
		}
	}
}
