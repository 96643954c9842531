package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/comfy"
	"github.com/raushankrgupta/fitly-comfy-tryon/comfy/comfytest"
	"github.com/raushankrgupta/fitly-comfy-tryon/config"
	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/poller/pollertest"
	"go.uber.org/zap/zaptest"
)

// scriptedEngine answers History calls from a fixed script; a nil entry means a
// failed query.
type scriptedEngine struct {
	mu     sync.Mutex
	script []*comfy.HistoryEntry
	calls  int
}

var errTransport = errors.New("connection refused")

func (e *scriptedEngine) History(ctx context.Context, promptID string) (*comfy.HistoryEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.calls
	e.calls++
	if i >= len(e.script) {
		i = len(e.script) - 1
	}
	if e.script[i] == nil {
		return nil, errTransport
	}
	return e.script[i], nil
}

func (e *scriptedEngine) ViewURL(img comfy.OutputImage) string {
	return "http://engine/view?filename=" + img.Filename
}

func processing() *comfy.HistoryEntry {
	return &comfy.HistoryEntry{Status: comfy.HistoryStatus{Processing: true}}
}

func completed(name string) *comfy.HistoryEntry {
	return &comfy.HistoryEntry{
		Status:  comfy.HistoryStatus{Completed: true},
		Outputs: map[string]comfy.NodeOutput{"14": {Images: []comfy.OutputImage{{Filename: name}}}},
	}
}

func failed(msg string) *comfy.HistoryEntry {
	return &comfy.HistoryEntry{Status: comfy.HistoryStatus{Error: msg}}
}

func newPoller(t *testing.T, engine Engine) (*Poller, *pollertest.InstantClock) {
	clock := &pollertest.InstantClock{}
	return New(engine, config.DefaultSettings(), zaptest.NewLogger(t), WithClock(clock)), clock
}

func TestWait_CompletesAfterProcessing(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{processing(), processing(), completed("out.png")}}
	p, clock := newPoller(t, engine)

	out, err := p.Wait(context.Background(), "p1", nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.ImageURL != "http://engine/view?filename=out.png" || out.Queries != 3 {
		t.Errorf("outcome = %+v", out)
	}
	if got := clock.Delays(); len(got) != 2 || got[0] != time.Second || got[1] != time.Second {
		t.Errorf("delays = %v, want two 1s poll intervals", got)
	}
}

func TestWait_JobErrorIsNotRetried(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{processing(), processing(), failed("boom"), completed("late.png")}}
	p, _ := newPoller(t, engine)

	out, err := p.Wait(context.Background(), "p1", nil)
	var jobErr *JobError
	if !errors.As(err, &jobErr) || jobErr.Message != "boom" {
		t.Fatalf("want JobError boom, got %v", err)
	}
	if out != nil {
		t.Error("failed job must not produce an outcome")
	}
	if engine.calls != 3 {
		t.Errorf("engine queried %d times, want 3", engine.calls)
	}
}

func TestWait_TransientFailuresWithinCeiling(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{nil, nil, completed("ok.png")}}
	p, clock := newPoller(t, engine)

	if _, err := p.Wait(context.Background(), "p1", nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if clock.Elapsed() != 2*time.Second {
		t.Errorf("elapsed = %s, want two 1s retry delays", clock.Elapsed())
	}
}

func TestWait_FourConsecutiveFailuresSurface(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{nil, nil, nil, nil, completed("never.png")}}
	p, _ := newPoller(t, engine)

	_, err := p.Wait(context.Background(), "p1", nil)
	if !errors.Is(err, ErrPollExhausted) {
		t.Fatalf("want ErrPollExhausted, got %v", err)
	}
	if engine.calls != 4 {
		t.Errorf("engine queried %d times, want 4", engine.calls)
	}
}

func TestWait_RetryBudgetSpansWholeJob(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{
		nil, processing(),
		nil, processing(),
		nil, processing(),
		nil, completed("late.png"),
	}}
	p, _ := newPoller(t, engine)

	out, err := p.Wait(context.Background(), "p1", nil)
	if !errors.Is(err, ErrPollExhausted) {
		t.Fatalf("want ErrPollExhausted, got %v", err)
	}
	if out != nil {
		t.Error("exhausted job must not produce an outcome")
	}
	if engine.calls != 7 {
		t.Errorf("engine queried %d times, want 7", engine.calls)
	}
}

func TestWait_InterleavedFailuresWithinBudget(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{
		nil, processing(),
		nil, processing(),
		nil, completed("ok.png"),
	}}
	p, _ := newPoller(t, engine)

	out, err := p.Wait(context.Background(), "p1", nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.Queries != 6 {
		t.Errorf("queries = %d, want 6", out.Queries)
	}
}

func TestWait_CompletedWithoutOutputIsRetried(t *testing.T) {
	noOutput := &comfy.HistoryEntry{Status: comfy.HistoryStatus{Completed: true}}
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{noOutput, completed("ok.png")}}
	p, _ := newPoller(t, engine)

	out, err := p.Wait(context.Background(), "p1", nil)
	if err != nil || out.Image.Filename != "ok.png" {
		t.Fatalf("Wait = %+v, %v", out, err)
	}
}

func TestWait_ReportsProgress(t *testing.T) {
	step := func(cur, total int) *comfy.HistoryEntry {
		return &comfy.HistoryEntry{Status: comfy.HistoryStatus{
			Processing: true,
			Executing:  &comfy.Executing{NodeID: "7", CurrentStep: cur, TotalSteps: total},
		}}
	}
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{step(5, 20), step(10, 20), completed("ok.png")}}
	p, _ := newPoller(t, engine)

	var seen []int
	_, err := p.Wait(context.Background(), "p1", func(s models.ProcessingStatus) {
		seen = append(seen, s.Progress())
	})
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(seen) != 2 || seen[0] != 25 || seen[1] != 50 {
		t.Errorf("progress = %v, want [25 50]", seen)
	}
}

func TestWait_Cancelled(t *testing.T) {
	engine := &scriptedEngine{script: []*comfy.HistoryEntry{processing()}}
	ctx, cancel := context.WithCancel(context.Background())
	p := New(engine, config.DefaultSettings(), zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() {
		_, err := p.Wait(ctx, "p1", nil)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("want context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not stop after cancel")
	}
}

func TestWait_AgainstFakeEngine(t *testing.T) {
	srv := comfytest.NewServer(
		comfytest.Pending(),
		comfytest.Unavailable(),
		comfytest.ProcessingAt(3, 20),
		comfytest.Completed("out123.png"),
	)
	defer srv.Close()

	client := comfy.NewClient(srv.URL, 5*time.Second, zaptest.NewLogger(t))
	p, _ := newPoller(t, client)

	out, err := p.Wait(context.Background(), srv.PromptID, nil)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.ImageURL != srv.URL+"/view?filename=out123.png" {
		t.Errorf("ImageURL = %q", out.ImageURL)
	}
	if srv.HistoryCalls() != 4 {
		t.Errorf("history calls = %d, want 4", srv.HistoryCalls())
	}
}
