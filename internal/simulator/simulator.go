// Package simulator generates plausible temperature and humidity readings and
// publishes them, standing in for the real sensor during development.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"thermograph/internal/config"
	"thermograph/internal/modules/store/types"
)

// Publisher sends one telemetry message.
type Publisher interface {
	Publish(ctx context.Context, telemetry types.Telemetry) error
}

// Generator produces a daily cycle: warmest and driest mid-afternoon, plus
// seeded noise so runs with the same seed repeat.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

const (
	baseTemperature  = 21.0
	swingTemperature = 4.0
	baseHumidity     = 55.0
	swingHumidity    = 12.0
)

// Sample returns the reading for ts, truncated to whole seconds.
func (g *Generator) Sample(ts time.Time) types.Telemetry {
	ts = ts.UTC().Truncate(time.Second)
	hours := float64(ts.Hour()) + float64(ts.Minute())/60 + float64(ts.Second())/3600
	// Peak at 15:00.
	phase := math.Sin(2 * math.Pi * (hours - 9) / 24)

	temperature := round1(baseTemperature + swingTemperature*phase + g.rng.NormFloat64()*0.3)
	humidity := round1(clamp(baseHumidity-swingHumidity*phase+g.rng.NormFloat64()*1.5, 0, 100))

	return types.Telemetry{
		Timestamp:   ts,
		Temperature: &temperature,
		Humidity:    &humidity,
	}
}

// Backfill publishes one sample per step for [from, to) and returns how many
// were sent.
func Backfill(ctx context.Context, pub Publisher, gen *Generator, from, to time.Time, step time.Duration) (int, error) {
	if step <= 0 {
		return 0, fmt.Errorf("invalid step %s (must be positive)", step)
	}
	if from.After(to) {
		return 0, fmt.Errorf("backfill start %s is after end %s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	sent := 0
	for ts := from; ts.Before(to); ts = ts.Add(step) {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := pub.Publish(ctx, gen.Sample(ts)); err != nil {
			return sent, fmt.Errorf("publish %s: %w", ts.UTC().Format(time.RFC3339), err)
		}
		sent++
	}
	return sent, nil
}

// Live publishes a sample stamped now() on every tick until ctx is done.
// Publish failures are logged and the loop keeps going so a broker restart
// does not stop the simulator.
func Live(ctx context.Context, pub Publisher, gen *Generator, interval time.Duration, now func() time.Time, logger *slog.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s (must be positive)", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t := gen.Sample(now())
			if err := pub.Publish(ctx, t); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warn("publish failed", "timestamp", t.Timestamp, "error", err)
				continue
			}
			logger.Debug("published reading",
				"timestamp", t.Timestamp,
				"temperature", *t.Temperature,
				"humidity", *t.Humidity,
			)
		}
	}
}

// Run backfills cfg.Backfill of history ending at now and then runs the live
// loop. With cfg.Interval zero it returns after the backfill.
func Run(ctx context.Context, cfg config.SimulatorConfig, pub Publisher, now func() time.Time, logger *slog.Logger) error {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	gen := NewGenerator(cfg.Seed)

	if cfg.Backfill > 0 {
		end := now().UTC().Truncate(cfg.Step)
		start := end.Add(-cfg.Backfill)
		logger.Info("backfilling readings", "from", start, "to", end, "step", cfg.Step)

		sent, err := Backfill(ctx, pub, gen, start, end, cfg.Step)
		if err != nil {
			return fmt.Errorf("backfill after %d readings: %w", sent, err)
		}
		logger.Info("backfill done", "readings", sent)
	}

	if cfg.Interval == 0 {
		return nil
	}
	logger.Info("publishing live readings", "interval", cfg.Interval)
	return Live(ctx, pub, gen, cfg.Interval, now, logger)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
