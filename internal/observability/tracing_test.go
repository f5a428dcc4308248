package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestNewTracerProvider_LogsEndedSpans(t *testing.T) {
	var buf bytes.Buffer
	tp := NewTracerProvider(NewLogger("debug", "text", &buf))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := Tracer(tp).Start(context.Background(), "daily-cycle")
	span.SetAttributes(attribute.Int("phase.day", 2))
	span.End()

	out := buf.String()
	for _, want := range []string{"span ended", "span=daily-cycle", "phase.day=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
