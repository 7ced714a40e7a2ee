// Package httpclient builds the instrumented HTTP client used for JSON-RPC.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultDialKeepAlive         = 30 * time.Second
	defaultRequestTimeout        = 15 * time.Second
	defaultMaxIdleConnsPerHost   = 8
	defaultMaxConnsPerHost       = 16
	defaultIdleConnTimeout       = 90 * time.Second
	defaultExpectContinueTimeout = 100 * time.Millisecond

	metricRequestCounter = "rpc_http_requests_total"
)

// New returns an http.Client whose transport traces and counts every
// request. Pass it to rpc.WithHTTPClient.
func New(opts ...ClientOption) (*http.Client, error) {
	o := NewClientOptions(opts...)

	base := o.roundTripper
	if base == nil {
		base = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	name := o.providerName
	if name == "" {
		name = "rpc"
	}

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("rpc_http_client",
		metric.WithInstrumentationAttributes(attribute.String("provider", name)),
	)
	counter, err := meter.Int64Counter(metricRequestCounter,
		metric.WithDescription("JSON-RPC HTTP requests by status class"),
	)
	if err != nil {
		return nil, err
	}

	traced := otelhttp.NewTransport(
		&countingTransport{next: base, counter: counter, provider: name},
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return name + " " + r.Method
		}),
	)

	timeout := defaultRequestTimeout
	if o.requestTimeout != nil {
		timeout = *o.requestTimeout
	}

	return &http.Client{Transport: traced, Timeout: timeout}, nil
}

// countingTransport records one counter sample per round trip.
type countingTransport struct {
	next     http.RoundTripper
	counter  metric.Int64Counter
	provider string
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)

	class := "error"
	if err == nil {
		class = statusClass(resp.StatusCode)
	}
	t.counter.Add(req.Context(), 1, metric.WithAttributes(
		attribute.String("provider", t.provider),
		attribute.String("status", class),
	))
	return resp, err
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "1xx"
}
