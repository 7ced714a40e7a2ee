// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/curve-arbitrage/business/blockchain/app"
	"github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const (
	tracerName = "blockchain-ethereum"
	meterName  = "blockchain-ethereum"
)

var _ app.LogSubscriber = (*Subscriber)(nil)

// PollClient is the HTTP surface used while polling eth_getLogs.
type PollClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// StreamClient is the websocket surface used for eth_subscribe.
type StreamClient interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	Close()
}

// Dialer opens a StreamClient.
type Dialer func(ctx context.Context, url string) (StreamClient, error)

// DialEthclient dials url with ethclient.
func DialEthclient(ctx context.Context, url string) (StreamClient, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// SubscriberConfig holds configuration for the log subscriber.
type SubscriberConfig struct {
	WSURL          string        // websocket endpoint (primary)
	PollInterval   time.Duration // eth_getLogs polling interval in fallback
	ReconnectDelay time.Duration // delay before redialing the websocket
	WSRetryAfter   time.Duration // how long to poll before trying the websocket again
	MaxBlockRange  uint64        // widest eth_getLogs range per poll
	BufferSize     int
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          wsURL,
		PollInterval:   4 * time.Second,
		ReconnectDelay: 5 * time.Second,
		WSRetryAfter:   2 * time.Minute,
		MaxBlockRange:  2000,
		BufferSize:     64,
	}
}

type subscriberMetrics struct {
	logsReceived     metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	connectionState  metric.Int64Gauge
	httpFallbackUsed metric.Int64Counter
}

// Subscriber streams contract logs over a websocket subscription and falls
// back to eth_getLogs polling over the shared HTTP client.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface
	poll   PollClient
	dial   Dialer

	wsClient StreamClient
	clientMu sync.Mutex

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	usingHTTP  atomic.Bool
	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	done    chan struct{}
	closeMu sync.Mutex
	closed  atomic.Bool

	pollCB *circuitbreaker.CircuitBreaker[[]types.Log]

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a log subscriber. dial may be nil when no websocket
// endpoint is configured.
func NewSubscriber(cfg SubscriberConfig, poll PollClient, dial Dialer, log logger.LoggerInterface) (*Subscriber, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = 2000
	}

	s := &Subscriber{
		config: cfg,
		logger: log,
		poll:   poll,
		dial:   dial,
		state:  domain.StateDisconnected,
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	pollCfg := circuitbreaker.DefaultConfig("eth-logs-http")
	pollCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.pollCB = circuitbreaker.New[[]types.Log](pollCfg)

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.logsReceived, err = meter.Int64Counter(
		"eth_logs_received_total",
		metric.WithDescription("Contract logs delivered to subscribers"),
		metric.WithUnit("{log}"),
	)
	if err != nil {
		return err
	}

	s.metrics.subscribeErrors, err = meter.Int64Counter(
		"eth_subscribe_errors_total",
		metric.WithDescription("Log subscription and polling errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Log subscription state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	s.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"eth_http_fallback_total",
		metric.WithDescription("Times eth_getLogs polling was used"),
		metric.WithUnit("{fallback}"),
	)
	return err
}

// Subscribe starts delivering logs matching filter until ctx is done.
func (s *Subscriber) Subscribe(ctx context.Context, filter domain.LogFilter) (<-chan types.Log, error) {
	_, span := s.tracer.Start(ctx, "eth.subscribe_logs",
		trace.WithAttributes(
			attribute.Int("addresses", len(filter.Addresses)),
			attribute.Bool("ws_configured", s.config.WSURL != ""),
		),
	)
	defer span.End()

	if s.closed.Load() {
		err := errors.New("subscriber is closed")
		span.RecordError(err)
		return nil, err
	}
	if len(filter.Addresses) == 0 {
		err := apperror.Validation(apperror.CodeInvalidInput, "log filter needs at least one address")
		span.RecordError(err)
		return nil, err
	}

	q := ethereum.FilterQuery{Addresses: filter.Addresses, Topics: filter.Topics}
	out := make(chan types.Log, s.config.BufferSize)

	s.setState(domain.StateConnecting)
	go s.run(ctx, q, out)

	span.SetStatus(codes.Ok, "subscribed")
	return out, nil
}

func (s *Subscriber) run(ctx context.Context, q ethereum.FilterQuery, out chan<- types.Log) {
	defer close(out)

	// last block delivered to this subscription
	var cursor uint64

	for !s.stopped(ctx) {
		stream, err := s.connectWS(ctx)
		if err == nil {
			s.usingHTTP.Store(false)
			s.setState(domain.StateConnected)

			err = s.runWSSubscription(ctx, stream, q, out, &cursor)
			if s.stopped(ctx) {
				return
			}

			s.logger.Warn(ctx, "log subscription ended, reconnecting", "error", err)
			s.metrics.subscribeErrors.Add(ctx, 1)
			s.dropWS()
			s.setState(domain.StateReconnecting)
			s.reconnects.Add(1)
			if !s.sleep(ctx, s.config.ReconnectDelay) {
				return
			}
			continue
		}

		if s.config.WSURL != "" {
			s.logger.Warn(ctx, "ws connection failed, polling eth_getLogs", "error", err)
		}
		s.usingHTTP.Store(true)
		s.metrics.httpFallbackUsed.Add(ctx, 1)
		s.setState(domain.StateConnected)

		window := s.config.WSRetryAfter
		if s.config.WSURL == "" {
			window = 0 // poll until stopped
		}
		s.runHTTPPoller(ctx, q, out, window, &cursor)
	}
}

// connectWS returns the shared websocket client, dialing it if needed.
func (s *Subscriber) connectWS(ctx context.Context) (StreamClient, error) {
	if s.config.WSURL == "" || s.dial == nil {
		return nil, errors.New("ws url not configured")
	}

	s.clientMu.Lock()
	defer s.clientMu.Unlock()

	if s.wsClient != nil {
		return s.wsClient, nil
	}

	ctx, span := s.tracer.Start(ctx, "eth.connect.ws")
	defer span.End()

	client, err := s.dial(ctx, s.config.WSURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, fmt.Errorf("dial ws: %w", err)
	}

	s.wsClient = client
	span.SetStatus(codes.Ok, "connected")
	return client, nil
}

func (s *Subscriber) dropWS() {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if s.wsClient != nil {
		s.wsClient.Close()
		s.wsClient = nil
	}
}

func (s *Subscriber) runWSSubscription(ctx context.Context, client StreamClient, q ethereum.FilterQuery, out chan<- types.Log, cursor *uint64) error {
	logs := make(chan types.Log, s.config.BufferSize)

	sub, err := client.SubscribeFilterLogs(ctx, q, logs)
	if err != nil {
		return apperror.New(apperror.CodeEthereumSubscribeFailed, apperror.WithCause(err))
	}
	defer sub.Unsubscribe()

	s.logger.Info(ctx, "subscribed to contract logs via ws", "addresses", len(q.Addresses))

	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case l := <-logs:
			if !s.emit(ctx, l, out, cursor) {
				return ctx.Err()
			}
		}
	}
}

// runHTTPPoller polls eth_getLogs from the cursor. A zero window polls until
// stopped.
func (s *Subscriber) runHTTPPoller(ctx context.Context, q ethereum.FilterQuery, out chan<- types.Log, window time.Duration, cursor *uint64) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if window > 0 {
		t := time.NewTimer(window)
		defer t.Stop()
		deadline = t.C
	}

	s.logger.Info(ctx, "starting eth_getLogs polling", "interval", s.config.PollInterval)

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			s.pollLogs(ctx, q, out, cursor)
		}
	}
}

// pollLogs fetches logs in (cursor, head]. With no cursor only the head
// block is read.
func (s *Subscriber) pollLogs(ctx context.Context, q ethereum.FilterQuery, out chan<- types.Log, cursor *uint64) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.logs")
	defer span.End()

	if s.poll == nil {
		span.AddEvent("no_http_client")
		return
	}

	head, err := s.poll.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		s.metrics.subscribeErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "block number poll failed", "error", err)
		return
	}

	from := head
	if *cursor > 0 {
		from = *cursor + 1
	}
	if from > head {
		span.AddEvent("no_new_blocks")
		return
	}
	if head-from+1 > s.config.MaxBlockRange {
		from = head - s.config.MaxBlockRange + 1
	}

	rq := q
	rq.FromBlock = new(big.Int).SetUint64(from)
	rq.ToBlock = new(big.Int).SetUint64(head)

	logs, err := s.pollCB.Execute(func() ([]types.Log, error) {
		return s.poll.FilterLogs(ctx, rq)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "filter logs failed")
		s.metrics.subscribeErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "eth_getLogs poll failed", "from", from, "to", head, "error", err)
		return
	}

	for _, l := range logs {
		if !s.emit(ctx, l, out, cursor) {
			return
		}
	}
	*cursor = head
	s.observeBlock(head)

	span.SetAttributes(attribute.Int("logs", len(logs)))
	span.SetStatus(codes.Ok, "polled")
}

// emit forwards l unless it was removed by a reorg. It reports false when ctx
// ended first.
func (s *Subscriber) emit(ctx context.Context, l types.Log, out chan<- types.Log, cursor *uint64) bool {
	if l.Removed {
		return true
	}
	if l.BlockNumber > *cursor {
		*cursor = l.BlockNumber
	}
	s.observeBlock(l.BlockNumber)

	select {
	case out <- l:
		s.metrics.logsReceived.Add(ctx, 1)
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

func (s *Subscriber) observeBlock(n uint64) {
	for {
		last := s.lastBlock.Load()
		if n <= last || s.lastBlock.CompareAndSwap(last, n) {
			return
		}
	}
}

func (s *Subscriber) stopped(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	return domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.lastBlock.Load(),
		LastUpdate: time.Now(),
		Reconnects: int(s.reconnects.Load()),
		UsingHTTP:  s.usingHTTP.Load(),
	}
}

// Close stops every subscription and closes the websocket.
func (s *Subscriber) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed.Load() {
		return nil
	}

	s.logger.Info(context.Background(), "closing log subscriber")

	s.closed.Store(true)
	close(s.done)
	s.dropWS()
	s.setState(domain.StateDisconnected)

	return nil
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	stateValue := int64(0)
	switch state {
	case domain.StateConnecting:
		stateValue = 1
	case domain.StateConnected:
		stateValue = 2
	case domain.StateReconnecting:
		stateValue = 3
	}

	s.metrics.connectionState.Record(context.Background(), stateValue)
}
