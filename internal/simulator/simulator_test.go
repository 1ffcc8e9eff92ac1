package simulator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"thermograph/internal/config"
	"thermograph/internal/modules/store/types"
)

type fakePublisher struct {
	mu        sync.Mutex
	sent      []types.Telemetry
	err       error
	failFirst int  // calls to fail with err before succeeding
	failAll   bool // fail every call with err
	onCount   func(n int)
}

func (f *fakePublisher) Publish(_ context.Context, t types.Telemetry) error {
	f.mu.Lock()
	if f.failAll {
		f.mu.Unlock()
		return f.err
	}
	if f.failFirst > 0 {
		f.failFirst--
		f.mu.Unlock()
		return f.err
	}
	f.sent = append(f.sent, t)
	n := len(f.sent)
	cb := f.onCount
	f.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var day = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func TestSample_validAndRepeatable(t *testing.T) {
	a, b := NewGenerator(7), NewGenerator(7)
	for i := range 200 {
		ts := day.Add(time.Duration(i)*7*time.Minute + 250*time.Millisecond)
		sa, sb := a.Sample(ts), b.Sample(ts)

		r, err := sa.Reading()
		if err != nil {
			t.Fatalf("sample %d invalid: %v", i, err)
		}
		if *sa.Temperature != *sb.Temperature || *sa.Humidity != *sb.Humidity {
			t.Fatalf("sample %d differs between generators with the same seed", i)
		}
		if r.Timestamp.Nanosecond() != 0 {
			t.Fatalf("sample %d timestamp %v not truncated to seconds", i, r.Timestamp)
		}
	}
}

func TestSample_dailyCycle(t *testing.T) {
	g := NewGenerator(1)
	var afternoon, night float64
	const days = 10
	for d := range days {
		base := day.AddDate(0, 0, d)
		afternoon += *g.Sample(base.Add(15 * time.Hour)).Temperature
		night += *g.Sample(base.Add(3 * time.Hour)).Temperature
	}
	if afternoon/days <= night/days+4 {
		t.Errorf("mean 15:00 temperature %.1f not well above mean 03:00 %.1f", afternoon/days, night/days)
	}
}

func TestBackfill(t *testing.T) {
	pub := &fakePublisher{}
	n, err := Backfill(context.Background(), pub, NewGenerator(1), day, day.Add(time.Hour), 10*time.Minute)
	if err != nil {
		t.Fatalf("Backfill() err = %v", err)
	}
	if n != 6 || pub.count() != 6 {
		t.Fatalf("Backfill() sent %d (publisher saw %d); want 6", n, pub.count())
	}
	for i, tel := range pub.sent {
		if want := day.Add(time.Duration(i) * 10 * time.Minute); !tel.Timestamp.Equal(want) {
			t.Errorf("reading %d timestamp = %v; want %v", i, tel.Timestamp, want)
		}
	}
}

func TestBackfill_errors(t *testing.T) {
	boom := errors.New("broker gone")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		pub      *fakePublisher
		from, to time.Time
		step     time.Duration
		wantSent int
		wantErr  error
	}{
		{name: "zero step", ctx: context.Background(), pub: &fakePublisher{}, from: day, to: day.Add(time.Hour)},
		{name: "reversed", ctx: context.Background(), pub: &fakePublisher{}, from: day.Add(time.Hour), to: day, step: time.Minute},
		{name: "cancelled", ctx: cancelled, pub: &fakePublisher{}, from: day, to: day.Add(time.Hour), step: time.Minute, wantErr: context.Canceled},
		{name: "publish fails", ctx: context.Background(), pub: &fakePublisher{err: boom, failAll: true}, from: day, to: day.Add(time.Hour), step: time.Minute, wantErr: boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Backfill(tt.ctx, tt.pub, NewGenerator(1), tt.from, tt.to, tt.step)
			if err == nil {
				t.Fatal("Backfill() err = nil; want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Backfill() err = %v; want %v", err, tt.wantErr)
			}
			if n != tt.wantSent {
				t.Errorf("sent = %d; want %d", n, tt.wantSent)
			}
		})
	}
}

func TestLive_keepsGoingAfterPublishError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := &fakePublisher{err: errors.New("not connected"), failFirst: 2}
	pub.onCount = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	now := func() time.Time { return day.Add(12 * time.Hour) }

	err := Live(ctx, pub, NewGenerator(1), 5*time.Millisecond, now, discardLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Live() = %v; want context.Canceled", err)
	}
	if pub.count() < 3 {
		t.Errorf("published %d; want at least 3", pub.count())
	}
	if !pub.sent[0].Timestamp.Equal(now()) {
		t.Errorf("timestamp = %v; want %v", pub.sent[0].Timestamp, now())
	}
}

func TestLive_invalidInterval(t *testing.T) {
	if err := Live(context.Background(), &fakePublisher{}, NewGenerator(1), 0, time.Now, discardLogger()); err == nil {
		t.Fatal("Live(interval=0) = nil; want error")
	}
}

func TestRun_backfillOnly(t *testing.T) {
	pub := &fakePublisher{}
	cfg := config.SimulatorConfig{Backfill: time.Hour, Step: 10 * time.Minute, Seed: 3}
	now := func() time.Time { return day.Add(12*time.Hour + 5*time.Minute) }

	if err := Run(context.Background(), cfg, pub, now, discardLogger()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if pub.count() != 6 {
		t.Fatalf("published %d; want 6", pub.count())
	}
	if first := pub.sent[0].Timestamp; !first.Equal(day.Add(11 * time.Hour)) {
		t.Errorf("first timestamp = %v; want 11:00", first)
	}
	if last := pub.sent[5].Timestamp; !last.Equal(day.Add(11*time.Hour + 50*time.Minute)) {
		t.Errorf("last timestamp = %v; want 11:50", last)
	}
}

func TestRun_nothingToDo(t *testing.T) {
	pub := &fakePublisher{}
	cfg := config.SimulatorConfig{Step: time.Minute}
	if err := Run(context.Background(), cfg, pub, nil, discardLogger()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if pub.count() != 0 {
		t.Errorf("published %d; want 0", pub.count())
	}
}

func TestRun_backfillError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone"), failAll: true}
	cfg := config.SimulatorConfig{Backfill: time.Hour, Step: 10 * time.Minute, Interval: time.Second}
	err := Run(context.Background(), cfg, pub, func() time.Time { return day }, discardLogger())
	if err == nil {
		t.Fatal("Run() = nil; want backfill error")
	}
}
