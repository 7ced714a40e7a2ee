package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/apperror"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

type staticSnapshots struct{ snap *domain.Snapshot }

func (s staticSnapshots) Snapshot() *domain.Snapshot { return s.snap }

type fakeEstimator struct {
	buy, sell *big.Int
	err       error
	calls     int
}

func (f *fakeEstimator) EstimateBuy(_ context.Context, _ common.Address, _ uint64) (*big.Int, error) {
	f.calls++
	return f.buy, f.err
}

func (f *fakeEstimator) EstimateSell(_ context.Context, _ common.Address, _ uint64) (*big.Int, error) {
	f.calls++
	return f.sell, f.err
}

func snapshotAt(supply uint64, steps []domain.BondStep) *domain.Snapshot {
	return &domain.Snapshot{
		Curve:     curveA,
		Config:    domain.CurveConfig{TotalSupply: supply, BuyFeeBps: 250, SellFeeBps: 250},
		Steps:     steps,
		UpdatedAt: time.Now(),
	}
}

func newTestQuoteService(t *testing.T, snap *domain.Snapshot, est Estimator) *QuoteService {
	t.Helper()
	s, err := NewQuoteService(staticSnapshots{snap: snap}, est, time.Minute, logger.NewNop())
	if err != nil {
		t.Fatalf("NewQuoteService() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestQuoteService_RemoteEstimate(t *testing.T) {
	est := &fakeEstimator{buy: big.NewInt(1000), sell: big.NewInt(1000)}
	s := newTestQuoteService(t, snapshotAt(150, testSteps()), est)
	ctx := context.Background()

	buy, err := s.Quote(ctx, domain.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("Quote(buy) error = %v", err)
	}
	if buy.TotalWithFee.Int64() != 1025 || buy.Source != domain.SourceRemote {
		t.Errorf("buy total = %s source = %s, want 1025 remote", buy.TotalWithFee, buy.Source)
	}

	sell, err := s.Quote(ctx, domain.DirectionSell, 10)
	if err != nil {
		t.Fatalf("Quote(sell) error = %v", err)
	}
	if sell.TotalWithFee.Int64() != 975 {
		t.Errorf("sell total = %s, want 975", sell.TotalWithFee)
	}

	if _, err := s.Quote(ctx, domain.DirectionBuy, 10); err != nil {
		t.Fatalf("Quote(buy) repeat error = %v", err)
	}
	if est.calls != 2 {
		t.Errorf("estimator calls = %d, want 2 (repeat served from memo)", est.calls)
	}
}

func TestQuoteService_LocalFallback(t *testing.T) {
	est := &fakeEstimator{err: errors.New("execution reverted")}
	s := newTestQuoteService(t, snapshotAt(95, testSteps()), est)

	q, err := s.Quote(context.Background(), domain.DirectionBuy, 10)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if q.Source != domain.SourceLocal {
		t.Errorf("source = %s, want local", q.Source)
	}
	if q.BaseAmount.Int64() != 15 {
		t.Errorf("base = %s, want 15", q.BaseAmount)
	}
}

func TestQuoteService_Errors(t *testing.T) {
	tests := []struct {
		name     string
		snap     *domain.Snapshot
		est      *fakeEstimator
		dir      domain.Direction
		quantity uint64
		wantCode apperror.Code
		wantCall bool
	}{
		{
			name:     "zero_quantity",
			snap:     snapshotAt(10, testSteps()),
			est:      &fakeEstimator{buy: big.NewInt(1)},
			dir:      domain.DirectionBuy,
			quantity: 0,
			wantCode: apperror.CodeInvalidQuantity,
		},
		{
			name:     "empty_cache",
			est:      &fakeEstimator{buy: big.NewInt(1)},
			dir:      domain.DirectionBuy,
			quantity: 1,
			wantCode: apperror.CodeCacheEmpty,
		},
		{
			name:     "over_capacity",
			snap:     snapshotAt(290, testSteps()),
			est:      &fakeEstimator{buy: big.NewInt(1)},
			dir:      domain.DirectionBuy,
			quantity: 11,
			wantCode: apperror.CodeCapacityExceeded,
		},
		{
			name:     "sell_above_supply",
			snap:     snapshotAt(5, testSteps()),
			est:      &fakeEstimator{sell: big.NewInt(1)},
			dir:      domain.DirectionSell,
			quantity: 6,
			wantCode: apperror.CodeSupplyExceeded,
		},
		{
			name:     "remote_failed_no_steps",
			snap:     snapshotAt(5, nil),
			est:      &fakeEstimator{err: errors.New("boom")},
			dir:      domain.DirectionBuy,
			quantity: 1,
			wantCode: apperror.CodeEstimateFailed,
			wantCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestQuoteService(t, tt.snap, tt.est)
			_, err := s.Quote(context.Background(), tt.dir, tt.quantity)
			if got := apperror.GetCode(err); got != tt.wantCode {
				t.Fatalf("code = %s, want %s (err %v)", got, tt.wantCode, err)
			}
			if called := tt.est.calls > 0; called != tt.wantCall {
				t.Errorf("estimator called = %v, want %v", called, tt.wantCall)
			}
		})
	}
}

func TestQuoteService_SpotPrice(t *testing.T) {
	s := newTestQuoteService(t, snapshotAt(100, testSteps()), &fakeEstimator{})

	got, err := s.SpotPrice()
	if err != nil {
		t.Fatalf("SpotPrice() error = %v", err)
	}
	if got.Int64() != 2 {
		t.Errorf("SpotPrice() = %s, want 2 (ticket 101 is in the second step)", got)
	}
}
