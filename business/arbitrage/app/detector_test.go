package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/fd1az/curve-arbitrage/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/curve-arbitrage/business/blockchain/domain"
	curveDomain "github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	dave  = common.HexToAddress("0x00000000000000000000000000000000000000d0")
)

type fakeOracle struct {
	records map[common.Address]domain.PriceRecord
	errs    map[common.Address]error
}

func (f *fakeOracle) PriceRecord(_ context.Context, _ uint64, entity common.Address) (domain.PriceRecord, error) {
	if err := f.errs[entity]; err != nil {
		return domain.PriceRecord{}, err
	}
	return f.records[entity], nil
}

type fakePositions struct {
	players []common.Address
	bps     map[common.Address]uint32
	err     error

	mu      sync.Mutex
	scans   int
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakePositions) Participants(context.Context) ([]common.Address, error) {
	f.mu.Lock()
	f.scans++
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return f.players, f.err
}

func (f *fakePositions) Position(_ context.Context, player common.Address) (curveDomain.Position, error) {
	bps, ok := f.bps[player]
	if !ok {
		return curveDomain.Position{}, errors.New("no position")
	}
	return curveDomain.Position{Participant: player, ProbabilityBps: bps}, nil
}

func (f *fakePositions) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

type captureReporter struct {
	reports chan domain.Report
}

func (r *captureReporter) Report(_ context.Context, rep domain.Report) error {
	r.reports <- rep
	return nil
}

type fakeWatcher struct {
	logs   chan types.Log
	filter blockchainDomain.LogFilter
}

func (w *fakeWatcher) WatchLogs(_ context.Context, f blockchainDomain.LogFilter) (<-chan types.Log, error) {
	w.filter = f
	return w.logs, nil
}

func active(sentimentBps uint64) domain.PriceRecord {
	return domain.PriceRecord{MarketSentimentBps: sentimentBps, Active: true}
}

func newTestDetector(t *testing.T, oracle OracleReader, positions PositionSource, cfg DetectorConfig) *Detector {
	t.Helper()
	d, err := NewDetector(cfg, oracle, positions, nil, logger.NewNop())
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func TestDetector_Scan(t *testing.T) {
	oracle := &fakeOracle{
		records: map[common.Address]domain.PriceRecord{
			alice: active(1050), // curve 0.1000 vs market 0.1050
			bob:   active(1010), // curve 0.1000 vs market 0.1010, below threshold
			carol: {MarketSentimentBps: 9000, Active: false},
			dave:  active(2000),
		},
		errs: map[common.Address]error{},
	}
	positions := &fakePositions{
		players: []common.Address{alice, bob, carol, dave},
		bps:     map[common.Address]uint32{alice: 1000, bob: 1000, carol: 100}, // dave has no readable position
	}

	d := newTestDetector(t, oracle, positions, DefaultDetectorConfig())
	report, err := d.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if report.Entities != 4 || len(report.Results) != 4 {
		t.Fatalf("entities = %d, results = %d", report.Entities, len(report.Results))
	}
	if len(report.Opportunities) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(report.Opportunities))
	}

	opp := report.Opportunities[0]
	if opp.Entity != alice || opp.Direction != domain.DirectionBuyCurve {
		t.Errorf("opportunity = %+v", opp)
	}
	if got := opp.ProfitabilityBps.Round(1); !got.Equal(decimal.RequireFromString("487.8")) {
		t.Errorf("profitability = %s, want 487.8", got)
	}

	skips := report.SkipCounts()
	want := map[domain.SkipReason]int{
		domain.SkipBelowThreshold:     1,
		domain.SkipOracleInactive:     1,
		domain.SkipPositionReadFailed: 1,
	}
	for reason, n := range want {
		if skips[reason] != n {
			t.Errorf("skips[%s] = %d, want %d", reason, skips[reason], n)
		}
	}

	if last, ok := d.Last(); !ok || last.Entities != 4 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestDetector_OracleFailureSkipsOnlyThatEntity(t *testing.T) {
	oracle := &fakeOracle{
		records: map[common.Address]domain.PriceRecord{bob: active(3000)},
		errs:    map[common.Address]error{alice: errors.New("execution reverted")},
	}
	positions := &fakePositions{
		players: []common.Address{alice, bob},
		bps:     map[common.Address]uint32{alice: 1000, bob: 2000},
	}

	report, err := newTestDetector(t, oracle, positions, DefaultDetectorConfig()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(report.Opportunities) != 1 || report.Opportunities[0].Entity != bob {
		t.Errorf("opportunities = %+v, want bob only", report.Opportunities)
	}
	if report.Opportunities[0].Direction != domain.DirectionBuyCurve {
		t.Errorf("direction = %s", report.Opportunities[0].Direction)
	}
	if report.SkipCounts()[domain.SkipOracleReadFailed] != 1 {
		t.Errorf("skips = %v", report.SkipCounts())
	}
}

func TestDetector_RanksAndCaps(t *testing.T) {
	oracle := &fakeOracle{
		records: map[common.Address]domain.PriceRecord{
			alice: active(1200), // ~1818 bps
			bob:   active(4000), // ~2222 bps
			carol: active(3100), // ~328 bps
		},
		errs: map[common.Address]error{},
	}
	positions := &fakePositions{
		players: []common.Address{alice, bob, carol},
		bps:     map[common.Address]uint32{alice: 1000, bob: 5000, carol: 3000},
	}

	cfg := DefaultDetectorConfig()
	cfg.MaxResults = 2
	report, err := newTestDetector(t, oracle, positions, cfg).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(report.Opportunities) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(report.Opportunities))
	}
	if report.Opportunities[0].Entity != bob || report.Opportunities[1].Entity != alice {
		t.Errorf("ranking = %s, %s", report.Opportunities[0].Entity.Hex(), report.Opportunities[1].Entity.Hex())
	}
	if report.Opportunities[0].Direction != domain.DirectionBuyMarket {
		t.Errorf("bob direction = %s, want buy_market", report.Opportunities[0].Direction)
	}
}

func TestDetector_ParticipantsFailureFailsPass(t *testing.T) {
	positions := &fakePositions{err: errors.New("rpc down")}
	if _, err := newTestDetector(t, &fakeOracle{}, positions, DefaultDetectorConfig()).Scan(context.Background()); err == nil {
		t.Error("Scan() should fail when participants cannot be listed")
	}
}

func TestNewDetector_RejectsNegativeThreshold(t *testing.T) {
	cfg := DefaultDetectorConfig()
	cfg.MinProfitabilityBps = decimal.NewFromInt(-1)
	if _, err := NewDetector(cfg, &fakeOracle{}, &fakePositions{}, nil, logger.NewNop()); err == nil {
		t.Error("negative threshold should be rejected")
	}
}

func TestDetector_RunCollapsesBursts(t *testing.T) {
	oracle := &fakeOracle{records: map[common.Address]domain.PriceRecord{alice: active(1500)}, errs: map[common.Address]error{}}
	positions := &fakePositions{
		players: []common.Address{alice},
		bps:     map[common.Address]uint32{alice: 1000},
	}

	d := newTestDetector(t, oracle, positions, DefaultDetectorConfig())
	rep := &captureReporter{reports: make(chan domain.Report, 10)}
	d.AddReporter(rep)

	watcher := &fakeWatcher{logs: make(chan types.Log, 10)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, watcher) }()

	waitReport := func() {
		t.Helper()
		select {
		case <-rep.reports:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for report")
		}
	}

	// initial pass
	waitReport()

	// hold the triggered pass open while a burst arrives
	positions.mu.Lock()
	positions.entered = make(chan struct{}, 1)
	positions.gate = make(chan struct{})
	positions.mu.Unlock()

	watcher.logs <- types.Log{BlockNumber: 1}
	<-positions.entered
	for i := 0; i < 3; i++ {
		watcher.logs <- types.Log{BlockNumber: uint64(2 + i)}
	}

	positions.mu.Lock()
	positions.entered = nil
	gate := positions.gate
	positions.gate = nil
	positions.mu.Unlock()
	close(gate)

	waitReport() // the held pass
	waitReport() // one follow-up for the whole burst

	time.Sleep(50 * time.Millisecond)
	if n := positions.scanCount(); n != 3 {
		t.Errorf("scans = %d, want 3", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestDetector_RunEvery(t *testing.T) {
	oracle := &fakeOracle{records: map[common.Address]domain.PriceRecord{alice: active(1500)}, errs: map[common.Address]error{}}
	positions := &fakePositions{
		players: []common.Address{alice},
		bps:     map[common.Address]uint32{alice: 1000},
	}

	d := newTestDetector(t, oracle, positions, DefaultDetectorConfig())
	rep := &captureReporter{reports: make(chan domain.Report, 10)}
	d.AddReporter(rep)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.RunEvery(ctx, 10*time.Millisecond) }()

	for i := 0; i < 2; i++ {
		select {
		case r := <-rep.reports:
			if len(r.Opportunities) != 1 {
				t.Errorf("pass %d: opportunities = %d, want 1", i, len(r.Opportunities))
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for pass %d", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunEvery() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery() did not return after cancel")
	}
}

func TestDetector_RunEveryRejectsZeroInterval(t *testing.T) {
	d := newTestDetector(t, &fakeOracle{}, &fakePositions{}, DefaultDetectorConfig())
	if err := d.RunEvery(context.Background(), 0); err == nil {
		t.Error("RunEvery(0) should fail")
	}
}
