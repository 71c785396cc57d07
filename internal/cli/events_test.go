package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/logging"
)

func TestEventLogger(t *testing.T) {
	var buf bytes.Buffer
	el := newEventLogger(logging.NewLogger(&buf))

	el.bus.PublishLog(events.WarnLevel, "render pass rejected", "renderer", nil)
	el.bus.PublishError("renderer", "/data/a.txt", errors.New("boom"))
	if dropped := el.Stop(); dropped != 0 {
		t.Errorf("Stop() dropped = %d, want 0", dropped)
	}

	out := buf.String()
	for _, want := range []string{"render pass rejected", "/data/a.txt", "boom", "renderer"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
