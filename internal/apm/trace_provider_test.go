package apm

import (
	"bytes"
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/fd1az/curve-arbitrage/internal/logger"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", in: "", want: map[string]string{}},
		{name: "single", in: "api-key=abc", want: map[string]string{"api-key": "abc"}},
		{name: "several", in: "a=1, b=2", want: map[string]string{"a": "1", "b": "2"}},
		{name: "value_with_equals", in: "auth=Basic x==", want: map[string]string{"auth": "Basic x=="}},
		{name: "missing_value", in: "novalue", wantErr: true},
		{name: "missing_key", in: "=v", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaders(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestNewTraceProvider_Console(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTraceProvider(context.Background(), Config{
		ServiceName: "curvearb-test",
		Provider:    ConsoleProvider,
		Writer:      &buf,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTraceProvider() error = %v", err)
	}

	ctx, span := otel.Tracer("test").Start(context.Background(), "scan")
	if TraceID(ctx) == "" {
		t.Error("TraceID() empty inside a recording span")
	}
	span.End()

	if err := tp.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"Name": "scan"`)) {
		t.Errorf("exported spans missing \"scan\":\n%s", buf.String())
	}
}

func TestNewTraceProvider_Disabled(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), Config{Provider: EmptyProvider}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewTraceProvider() error = %v", err)
	}
	if err := tp.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestNewTraceProvider_Unknown(t *testing.T) {
	if _, err := NewTraceProvider(context.Background(), Config{Provider: "jaeger"}, logger.NewNop()); err == nil {
		t.Error("NewTraceProvider() with unknown provider should fail")
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("TraceID() = %q, want empty", id)
	}
}
