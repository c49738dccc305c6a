package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"stress-check-service/internal/domain"
)

// Inclusive upper bounds of the low and medium reaction bands, in milliseconds.
const (
	lowReactionMax    = 200
	mediumReactionMax = 300
)

var errRoundPlayed = errors.New("reaction round already played")

// Clock is the timing source for a reaction round.
type Clock interface {
	Now() time.Time
	// After returns a channel that fires once after d. A nil or closed channel
	// means the timer could not be armed.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// RandSource picks the stimulus delay; *rand.Rand satisfies it.
type RandSource interface {
	Int63n(n int64) int64
}

// lockedRand lets concurrent rounds share one seeded source.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandSource returns a goroutine-safe source seeded from the clock.
func NewRandSource() RandSource {
	return &lockedRand{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Int63n(n)
}

// RoundConfig tunes the pre-stimulus phase.
type RoundConfig struct {
	Countdown int
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

// DefaultRoundConfig is a 3 second countdown followed by a 1..4s random delay.
func DefaultRoundConfig() RoundConfig {
	return RoundConfig{Countdown: 3, MinDelay: time.Second, MaxDelay: 4 * time.Second}
}

// Round is a single reaction game. It is driven entirely by Play on one goroutine
// and cannot be replayed; start a new Round for "play again".
type Round struct {
	id     string
	cfg    RoundConfig
	clock  Clock
	rnd    RandSource
	state  domain.RoundState
	played bool
}

func NewRound(id string, cfg RoundConfig, clock Clock, rnd RandSource) *Round {
	if cfg.Countdown < 0 {
		cfg.Countdown = 0
	}
	return &Round{
		id:    id,
		cfg:   cfg,
		clock: clock,
		rnd:   rnd,
		state: domain.RoundState{State: domain.GameWaiting, CountdownRemaining: cfg.Countdown},
	}
}

// ID returns the round identifier.
func (r *Round) ID() string {
	return r.id
}

// State returns the last observed state. Only read it from the Play goroutine
// (including notify) or after Play returns.
func (r *Round) State() domain.RoundState {
	return r.state
}

// Play runs the countdown, shows the stimulus after a random delay and measures
// the first tap received while ready. Taps received before the stimulus are
// dropped. notify, if set, is called synchronously on every transition.
//
// Cancelling ctx or closing taps abandons the round with domain.ErrRoundAbandoned.
// A failing clock abandons it with domain.ErrTimerUnavailable.
func (r *Round) Play(ctx context.Context, taps <-chan struct{}, notify func(domain.RoundEvent)) (domain.GameResult, error) {
	if r.played {
		return domain.GameResult{}, errRoundPlayed
	}
	r.played = true
	if notify == nil {
		notify = func(domain.RoundEvent) {}
	}
	if r.clock == nil {
		return r.abandon(domain.ErrTimerUnavailable)
	}

	notify(r.event(domain.EventCountdown, nil))
	for r.state.CountdownRemaining > 0 {
		if err := r.wait(ctx, time.Second, taps); err != nil {
			return r.abandon(err)
		}
		r.state.CountdownRemaining--
		notify(r.event(domain.EventCountdown, nil))
	}

	if err := r.wait(ctx, r.stimulusDelay(), taps); err != nil {
		return r.abandon(err)
	}
	r.state.State = domain.GameReady
	r.state.StimulusAt = r.clock.Now()
	drain(taps)
	notify(r.event(domain.EventStimulus, nil))

	select {
	case <-ctx.Done():
		return r.abandon(domain.ErrRoundAbandoned)
	case _, ok := <-taps:
		if !ok {
			return r.abandon(domain.ErrRoundAbandoned)
		}
	}

	elapsed := r.clock.Now().Sub(r.state.StimulusAt)
	if elapsed < 0 {
		return r.abandon(domain.ErrTimerUnavailable)
	}
	ms := elapsed.Milliseconds()
	result := domain.GameResult{ElapsedMillis: ms, StressLevel: ClassifyReaction(ms)}
	r.state.State = domain.GameDone
	notify(r.event(domain.EventResult, &result))
	return result, nil
}

// ClassifyReaction maps a reaction time onto a stress band.
func ClassifyReaction(elapsedMillis int64) domain.ReactionLevel {
	switch {
	case elapsedMillis <= lowReactionMax:
		return domain.ReactionLow
	case elapsedMillis <= mediumReactionMax:
		return domain.ReactionMedium
	default:
		return domain.ReactionHigh
	}
}

// wait blocks for d while discarding premature taps.
func (r *Round) wait(ctx context.Context, d time.Duration, taps <-chan struct{}) error {
	timer := r.clock.After(d)
	if timer == nil {
		return domain.ErrTimerUnavailable
	}
	for {
		select {
		case <-ctx.Done():
			return domain.ErrRoundAbandoned
		case _, ok := <-timer:
			if !ok {
				return domain.ErrTimerUnavailable
			}
			return nil
		case _, ok := <-taps:
			if !ok {
				return domain.ErrRoundAbandoned
			}
		}
	}
}

func (r *Round) stimulusDelay() time.Duration {
	span := r.cfg.MaxDelay - r.cfg.MinDelay
	if span <= 0 || r.rnd == nil {
		return r.cfg.MinDelay
	}
	return r.cfg.MinDelay + time.Duration(r.rnd.Int63n(int64(span)))
}

func (r *Round) abandon(err error) (domain.GameResult, error) {
	r.state.State = domain.GameDone
	return domain.GameResult{}, err
}

func (r *Round) event(kind domain.RoundEventKind, result *domain.GameResult) domain.RoundEvent {
	return domain.RoundEvent{Kind: kind, RoundID: r.id, State: r.state, Result: result}
}

// drain discards taps queued before the stimulus appeared.
func drain(taps <-chan struct{}) {
	for {
		select {
		case _, ok := <-taps:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
