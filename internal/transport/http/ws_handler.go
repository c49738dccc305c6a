package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"stress-check-service/internal/app"
	"stress-check-service/internal/domain"
)

// WSHandler runs reaction rounds over a websocket. The first round starts on
// connect; the client sends "tap" when it sees the stimulus and "start" to play
// again once a round is over.
type WSHandler struct {
	service  *app.AssessmentService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AssessmentService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type resultPayload struct {
	RoundID        string               `json:"roundId"`
	ElapsedMillis  int64                `json:"elapsedMillis"`
	ElapsedSeconds float64              `json:"elapsedSeconds"`
	StressLevel    domain.ReactionLevel `json:"stressLevel"`
	Label          string               `json:"label"`
}

// ServeWS upgrades the request and plays rounds until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// Leaving the screen cancels whatever round is in flight.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Single writer; after a write error keep draining so producers never block.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", slog.String("error", err.Error()))
				failed = true
				cancel()
			}
		}
	}()

	var (
		rounds    sync.WaitGroup
		taps      chan struct{}
		roundDone chan struct{}
	)
	startRound := func() {
		taps = make(chan struct{}, 1)
		roundDone = make(chan struct{})
		rounds.Add(1)
		go func(taps <-chan struct{}, done chan struct{}) {
			defer rounds.Done()
			defer close(done)
			_, err := h.service.PlayRound(ctx, taps, func(ev domain.RoundEvent) {
				send <- eventMessage(ev)
			})
			if err == nil || ctx.Err() != nil {
				return
			}
			if errors.Is(err, domain.ErrRoundAbandoned) {
				send <- outboundMessage[any]{Type: "abandoned", Payload: errorPayload{Message: err.Error()}}
				return
			}
			send <- errorMessage(err)
		}(taps, roundDone)
	}
	running := func() bool {
		if roundDone == nil {
			return false
		}
		select {
		case <-roundDone:
			return false
		default:
			return true
		}
	}

	startRound()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "tap":
			if running() {
				// A tap already queued covers this one.
				select {
				case taps <- struct{}{}:
				default:
				}
			}
		case "start":
			if running() {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "round in progress"}}
				continue
			}
			startRound()
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	cancel()
	rounds.Wait()
	close(send)
	<-writerDone
}

func eventMessage(ev domain.RoundEvent) outboundMessage[any] {
	if ev.Kind == domain.EventResult && ev.Result != nil {
		return outboundMessage[any]{Type: string(ev.Kind), Payload: resultPayload{
			RoundID:        ev.RoundID,
			ElapsedMillis:  ev.Result.ElapsedMillis,
			ElapsedSeconds: ev.Result.ElapsedSeconds(),
			StressLevel:    ev.Result.StressLevel,
			Label:          ev.Result.StressLevel.Label(),
		}}
	}
	return outboundMessage[any]{Type: string(ev.Kind), Payload: ev}
}
