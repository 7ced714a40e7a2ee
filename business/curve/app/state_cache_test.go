package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

var (
	curveA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	curveB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func testSteps() []domain.BondStep {
	return []domain.BondStep{
		{Step: 1, RangeTo: 100, Price: big.NewInt(1)},
		{Step: 2, RangeTo: 300, Price: big.NewInt(2)},
	}
}

type fakeStateReader struct {
	mu        sync.Mutex
	supply    uint64
	steps     []domain.BondStep
	err       error
	reads     int
	stepReads int
	targets   []common.Address

	started chan struct{} // signalled on each read when set
	gate    chan struct{} // reads block until closed when set
}

func (f *fakeStateReader) ReadState(ctx context.Context, curve common.Address, withSteps bool) (*domain.StateRead, error) {
	// supply is observed when the read starts, like a call at a block
	f.mu.Lock()
	started, gate, supply := f.started, f.gate, f.supply
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	f.targets = append(f.targets, curve)
	if withSteps {
		f.stepReads++
	}
	if f.err != nil {
		return nil, f.err
	}

	read := &domain.StateRead{
		Config: domain.CurveConfig{
			TotalSupply: supply,
			BuyFeeBps:   100,
			SellFeeBps:  200,
		},
		Current: domain.CurrentStep{Index: 1, Price: big.NewInt(2), RangeTo: 300},
	}
	if withSteps {
		read.Steps = f.steps
	}
	return read, nil
}

func (f *fakeStateReader) counts() (reads, stepReads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.stepReads
}

func (f *fakeStateReader) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func newTestCache(t *testing.T, reader StateReader, cfg StateCacheConfig) *StateCache {
	t.Helper()
	c, err := NewStateCache(reader, cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewStateCache() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStateCache_StepsReadOncePerTarget(t *testing.T) {
	reader := &fakeStateReader{supply: 150, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})
	ctx := context.Background()

	c.SetTarget(curveA)
	for range 3 {
		c.Refresh(ctx)
	}

	reads, stepReads := reader.counts()
	if reads != 3 {
		t.Errorf("reads = %d, want 3", reads)
	}
	if stepReads != 1 {
		t.Errorf("step reads = %d, want 1", stepReads)
	}

	snap := c.Snapshot()
	if !snap.StepsLoaded() || snap.Config.TotalSupply != 150 {
		t.Fatalf("snapshot = %+v, want steps loaded and supply 150", snap)
	}
	if got := snap.PriceAtSupply(150); got.Int64() != 2 {
		t.Errorf("PriceAtSupply(150) = %s, want 2", got)
	}

	// same address again is a no-op
	c.SetTarget(curveA)
	c.Refresh(ctx)
	if _, stepReads := reader.counts(); stepReads != 1 {
		t.Errorf("step reads after same target = %d, want 1", stepReads)
	}

	c.SetTarget(curveB)
	if c.Snapshot() != nil {
		t.Error("snapshot should be dropped on target change")
	}
	c.Refresh(ctx)
	if _, stepReads := reader.counts(); stepReads != 2 {
		t.Errorf("step reads after target change = %d, want 2", stepReads)
	}
	if got := c.Snapshot().Curve; got != curveB {
		t.Errorf("snapshot curve = %s, want %s", got.Hex(), curveB.Hex())
	}
}

func TestStateCache_ReadFailureKeepsSnapshot(t *testing.T) {
	reader := &fakeStateReader{supply: 150, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})
	ctx := context.Background()

	c.SetTarget(curveA)
	c.Refresh(ctx)
	before := c.Snapshot()

	reader.setErr(errors.New("rpc down"))
	c.Refresh(ctx)

	after := c.Snapshot()
	if after == nil || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("snapshot changed after failed read: before %+v after %+v", before, after)
	}
}

func TestStateCache_FailedStepReadRetried(t *testing.T) {
	reader := &fakeStateReader{supply: 10, steps: testSteps(), err: errors.New("timeout")}
	c := newTestCache(t, reader, StateCacheConfig{})
	ctx := context.Background()

	c.SetTarget(curveA)
	c.Refresh(ctx)
	if c.Snapshot() != nil {
		t.Fatal("snapshot stored despite read failure")
	}

	reader.setErr(nil)
	c.Refresh(ctx)

	if _, stepReads := reader.counts(); stepReads != 2 {
		t.Errorf("step reads = %d, want 2", stepReads)
	}
	if !c.Snapshot().StepsLoaded() {
		t.Error("steps should be loaded after the retry")
	}
}

func TestStateCache_RejectsInvalidState(t *testing.T) {
	reader := &fakeStateReader{supply: 301, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})

	c.SetTarget(curveA)
	c.Refresh(context.Background())

	if c.Snapshot() != nil {
		t.Error("snapshot with supply above the final range should be rejected")
	}
}

func TestStateCache_DiscardsResultForPreviousTarget(t *testing.T) {
	reader := &fakeStateReader{
		supply:  10,
		steps:   testSteps(),
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	c := newTestCache(t, reader, StateCacheConfig{})
	c.SetTarget(curveA)

	done := make(chan struct{})
	go func() {
		c.Refresh(context.Background())
		close(done)
	}()

	<-reader.started
	c.SetTarget(curveB)
	close(reader.gate)
	<-done

	if snap := c.Snapshot(); snap != nil {
		t.Errorf("snapshot = %+v, want nil after target change mid-read", snap)
	}
}

func TestStateCache_DebouncedRefreshCoalesces(t *testing.T) {
	reader := &fakeStateReader{supply: 10, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{DebounceDelay: 20 * time.Millisecond})
	c.SetTarget(curveA)

	for range 5 {
		c.DebouncedRefresh(0)
	}

	eventually(t, time.Second, func() bool {
		reads, _ := reader.counts()
		return reads >= 1
	})
	time.Sleep(60 * time.Millisecond)

	if reads, _ := reader.counts(); reads != 1 {
		t.Errorf("reads = %d, want 1", reads)
	}
}

func TestStateCache_TargetChangeCancelsDebounce(t *testing.T) {
	reader := &fakeStateReader{supply: 10, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{DebounceDelay: 20 * time.Millisecond})

	c.SetTarget(curveA)
	c.DebouncedRefresh(0)
	c.SetTarget(curveB)

	time.Sleep(80 * time.Millisecond)

	if reads, _ := reader.counts(); reads != 0 {
		t.Errorf("reads = %d, want 0 after the pending refresh was cancelled", reads)
	}
}

func TestStateCache_PollsWhileActive(t *testing.T) {
	reader := &fakeStateReader{supply: 10, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{PollInterval: 10 * time.Millisecond, Active: true})

	c.SetTarget(curveA)
	eventually(t, time.Second, func() bool {
		reads, _ := reader.counts()
		return reads >= 2
	})

	c.SetActive(false)
	time.Sleep(30 * time.Millisecond) // let a tick already in flight finish
	stopped, _ := reader.counts()
	time.Sleep(50 * time.Millisecond)

	if reads, _ := reader.counts(); reads != stopped {
		t.Errorf("reads grew from %d to %d after deactivation", stopped, reads)
	}
}

func TestStateCache_NoPollWithoutTarget(t *testing.T) {
	reader := &fakeStateReader{supply: 10, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{PollInterval: 5 * time.Millisecond, Active: true})

	time.Sleep(30 * time.Millisecond)
	c.Refresh(context.Background())

	if reads, _ := reader.counts(); reads != 0 {
		t.Errorf("reads = %d, want 0 without a target", reads)
	}
}

func TestStateCache_OnUpdate(t *testing.T) {
	reader := &fakeStateReader{supply: 42, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})

	var got []uint64
	c.OnUpdate(func(s domain.Snapshot) { got = append(got, s.Config.TotalSupply) })

	c.SetTarget(curveA)
	c.Refresh(context.Background())

	if len(got) != 1 || got[0] != 42 {
		t.Errorf("listener saw %v, want [42]", got)
	}
}

func TestStateCache_ForceRefreshIssuesNewRead(t *testing.T) {
	reader := &fakeStateReader{supply: 150, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})
	ctx := context.Background()

	c.SetTarget(curveA)
	c.Refresh(ctx)

	started := make(chan struct{}, 2)
	gate := make(chan struct{})
	reader.mu.Lock()
	reader.started, reader.gate = started, gate
	reader.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Refresh(ctx)
	}()
	<-started

	// the trade lands while the first read is still in flight
	reader.mu.Lock()
	reader.supply = 160
	reader.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.ForceRefresh(ctx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("ForceRefresh did not issue its own read")
	}

	close(gate)
	<-done
	wg.Wait()

	if reads, _ := reader.counts(); reads != 3 {
		t.Errorf("reads = %d, want 3", reads)
	}
	snap := c.Snapshot()
	if snap == nil || snap.Config.TotalSupply != 160 {
		t.Fatalf("snapshot = %+v, want supply 160", snap)
	}
}

func TestStateCache_OlderReadDoesNotOverwrite(t *testing.T) {
	reader := &fakeStateReader{supply: 150, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})
	ctx := context.Background()

	c.SetTarget(curveA)
	c.Refresh(ctx)

	started := make(chan struct{}, 1)
	gate := make(chan struct{})
	reader.mu.Lock()
	reader.started, reader.gate = started, gate
	reader.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.Refresh(ctx)
		close(done)
	}()
	<-started

	// a newer read completes first
	reader.mu.Lock()
	reader.supply = 170
	reader.started, reader.gate = nil, nil
	reader.mu.Unlock()
	c.ForceRefresh(ctx)

	close(gate)
	<-done

	if snap := c.Snapshot(); snap == nil || snap.Config.TotalSupply != 170 {
		t.Fatalf("snapshot = %+v, want supply 170", snap)
	}
}

func TestStateCache_SnapshotIsDeepCopy(t *testing.T) {
	reader := &fakeStateReader{supply: 150, steps: testSteps()}
	c := newTestCache(t, reader, StateCacheConfig{})

	c.SetTarget(curveA)
	c.Refresh(context.Background())

	snap := c.Snapshot()
	snap.Steps[0].Price.SetInt64(99)
	snap.Current.Price.SetInt64(99)
	snap.Steps[1] = domain.BondStep{}

	again := c.Snapshot()
	if again.Steps[0].Price.Int64() != 1 || again.Current.Price.Int64() != 2 || again.Steps[1].RangeTo != 300 {
		t.Errorf("cached snapshot was mutated through a copy: %+v", again)
	}
}
