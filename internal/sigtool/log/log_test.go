package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
)

func TestSetupAndRecover(t *testing.T) {
	var buf bytes.Buffer
	Setup(charmlog.New(&buf), false)
	if !Initialized() {
		t.Fatal("Setup did not initialize")
	}

	slog.Info("routed", "component", "test")
	if !strings.Contains(buf.String(), "routed") {
		t.Errorf("slog output not routed: %q", buf.String())
	}

	cleaned := false
	func() {
		defer RecoverPanic("worker", func() { cleaned = true })
		panic("boom")
	}()
	if !cleaned {
		t.Error("cleanup not called")
	}
	if !strings.Contains(buf.String(), "Panic in worker") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}
