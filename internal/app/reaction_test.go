package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stress-check-service/internal/app"
	"stress-check-service/internal/domain"
)

func TestRoundMeasuresFirstTap(t *testing.T) {
	cases := map[time.Duration]domain.ReactionLevel{
		200 * time.Millisecond: domain.ReactionLow,
		201 * time.Millisecond: domain.ReactionMedium,
		300 * time.Millisecond: domain.ReactionMedium,
		301 * time.Millisecond: domain.ReactionHigh,
	}
	for reaction, want := range cases {
		clock := newStepClock()
		taps := make(chan struct{}, 2)
		round := app.NewRound("r1", app.DefaultRoundConfig(), clock, fixedRand(0))

		var kinds []domain.RoundEventKind
		result, err := round.Play(context.Background(), taps, func(ev domain.RoundEvent) {
			kinds = append(kinds, ev.Kind)
			if ev.Kind == domain.EventStimulus {
				clock.Advance(reaction)
				taps <- struct{}{}
				taps <- struct{}{} // second tap must not matter
			}
		})
		if err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if result.ElapsedMillis != reaction.Milliseconds() || result.StressLevel != want {
			t.Fatalf("reaction %v: expected %s, got %+v", reaction, want, result)
		}
		if len(kinds) != 6 || kinds[4] != domain.EventStimulus || kinds[5] != domain.EventResult {
			t.Fatalf("unexpected event sequence %v", kinds)
		}
		if round.State().State != domain.GameDone {
			t.Fatalf("expected done state, got %s", round.State().State)
		}
	}
}

func TestRoundCountdownTicksEverySecond(t *testing.T) {
	clock := newStepClock()
	start := clock.Now()
	taps := make(chan struct{}, 1)
	round := app.NewRound("r1", app.DefaultRoundConfig(), clock, fixedRand(int64(1500*time.Millisecond)))

	var countdown []int
	var stimulusAt time.Time
	_, err := round.Play(context.Background(), taps, func(ev domain.RoundEvent) {
		switch ev.Kind {
		case domain.EventCountdown:
			countdown = append(countdown, ev.State.CountdownRemaining)
			if ev.State.State != domain.GameWaiting {
				t.Fatalf("expected waiting during countdown, got %s", ev.State.State)
			}
		case domain.EventStimulus:
			stimulusAt = ev.State.StimulusAt
			taps <- struct{}{}
		}
	})
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if len(countdown) != 4 || countdown[0] != 3 || countdown[3] != 0 {
		t.Fatalf("expected countdown 3..0, got %v", countdown)
	}
	// 3s countdown + 1s minimum delay + 1.5s random offset.
	if got := stimulusAt.Sub(start); got != 5500*time.Millisecond {
		t.Fatalf("expected stimulus after 5.5s, got %v", got)
	}
}

func TestRoundStimulusDelayStaysInWindow(t *testing.T) {
	for _, offset := range []int64{0, int64(3*time.Second) - 1} {
		clock := newStepClock()
		taps := make(chan struct{}, 1)
		cfg := app.RoundConfig{Countdown: 0, MinDelay: time.Second, MaxDelay: 4 * time.Second}
		round := app.NewRound("r1", cfg, clock, fixedRand(offset))
		start := clock.Now()

		var delay time.Duration
		_, err := round.Play(context.Background(), taps, func(ev domain.RoundEvent) {
			if ev.Kind == domain.EventStimulus {
				delay = ev.State.StimulusAt.Sub(start)
				taps <- struct{}{}
			}
		})
		if err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if delay < time.Second || delay >= 4*time.Second {
			t.Fatalf("delay %v outside [1s, 4s)", delay)
		}
	}
}

func TestRoundIgnoresPrematureTaps(t *testing.T) {
	clock := newStepClock()
	taps := make(chan struct{}, 8)
	round := app.NewRound("r1", app.DefaultRoundConfig(), clock, fixedRand(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sawResult := false
	_, err := round.Play(ctx, taps, func(ev domain.RoundEvent) {
		switch ev.Kind {
		case domain.EventCountdown:
			taps <- struct{}{}
		case domain.EventStimulus:
			// Abandon without tapping; queued early taps must not count.
			cancel()
		case domain.EventResult:
			sawResult = true
		}
	})
	if !errors.Is(err, domain.ErrRoundAbandoned) {
		t.Fatalf("expected abandoned round, got %v", err)
	}
	if sawResult {
		t.Fatalf("premature taps produced a result")
	}
}

func TestRoundCancelledDuringCountdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	round := app.NewRound("r1", app.DefaultRoundConfig(), stalledClock{}, fixedRand(0))

	if _, err := round.Play(ctx, make(chan struct{}), nil); !errors.Is(err, domain.ErrRoundAbandoned) {
		t.Fatalf("expected abandoned round, got %v", err)
	}
}

func TestRoundAbandonedWhenTapsClosed(t *testing.T) {
	taps := make(chan struct{})
	close(taps)
	round := app.NewRound("r1", app.DefaultRoundConfig(), stalledClock{}, fixedRand(0))

	if _, err := round.Play(context.Background(), taps, nil); !errors.Is(err, domain.ErrRoundAbandoned) {
		t.Fatalf("expected abandoned round, got %v", err)
	}
}

func TestRoundTimerUnavailable(t *testing.T) {
	round := app.NewRound("r1", app.DefaultRoundConfig(), brokenClock{}, fixedRand(0))
	if _, err := round.Play(context.Background(), make(chan struct{}), nil); !errors.Is(err, domain.ErrTimerUnavailable) {
		t.Fatalf("expected timer unavailable, got %v", err)
	}

	round = app.NewRound("r2", app.DefaultRoundConfig(), nil, fixedRand(0))
	if _, err := round.Play(context.Background(), make(chan struct{}), nil); !errors.Is(err, domain.ErrTimerUnavailable) {
		t.Fatalf("expected timer unavailable for nil clock, got %v", err)
	}
}

func TestRoundClockGoingBackwards(t *testing.T) {
	clock := newStepClock()
	taps := make(chan struct{}, 1)
	round := app.NewRound("r1", app.DefaultRoundConfig(), clock, fixedRand(0))

	_, err := round.Play(context.Background(), taps, func(ev domain.RoundEvent) {
		if ev.Kind == domain.EventStimulus {
			clock.Advance(-time.Second)
			taps <- struct{}{}
		}
	})
	if !errors.Is(err, domain.ErrTimerUnavailable) {
		t.Fatalf("expected timer unavailable, got %v", err)
	}
}

func TestRoundCannotBeReplayed(t *testing.T) {
	clock := newStepClock()
	taps := make(chan struct{}, 1)
	round := app.NewRound("r1", app.DefaultRoundConfig(), clock, fixedRand(0))
	notify := func(ev domain.RoundEvent) {
		if ev.Kind == domain.EventStimulus {
			taps <- struct{}{}
		}
	}
	if _, err := round.Play(context.Background(), taps, notify); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if _, err := round.Play(context.Background(), taps, notify); err == nil {
		t.Fatalf("expected replay to fail")
	}
}

func TestGameResultElapsedSeconds(t *testing.T) {
	result := domain.GameResult{ElapsedMillis: 250}
	if result.ElapsedSeconds() != 0.25 {
		t.Fatalf("expected 0.25s, got %v", result.ElapsedSeconds())
	}
}

// stepClock fires every timer immediately and jumps virtual time forward.
type stepClock struct {
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// stalledClock never fires.
type stalledClock struct{}

func (stalledClock) Now() time.Time                       { return time.Time{} }
func (stalledClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

// brokenClock hands out timers that are already closed.
type brokenClock struct{}

func (brokenClock) Now() time.Time { return time.Time{} }

func (brokenClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time)
	close(ch)
	return ch
}

type fixedRand int64

func (f fixedRand) Int63n(n int64) int64 {
	if int64(f) >= n {
		return n - 1
	}
	return int64(f)
}
