package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	l, err := New("warn", false)
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zap.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}

	if _, err := New("loud", true); err == nil {
		t.Error("expected error for unknown level")
	}
}
