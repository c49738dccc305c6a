package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"stress-check-service/internal/app"
	"stress-check-service/internal/domain"
)

// QuestionnaireWSHandler steps a questionnaire over a websocket, one message
// per tap in the UI. Every request is answered with exactly one message.
type QuestionnaireWSHandler struct {
	*WSHandler
}

func NewQuestionnaireWSHandler(service *app.AssessmentService, logger *slog.Logger) *QuestionnaireWSHandler {
	return &QuestionnaireWSHandler{WSHandler: NewWSHandler(service, logger)}
}

type questionnaireInbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	SurveyID  string `json:"surveyId"`
	SessionID string `json:"sessionId"`
}

type answerPayload struct {
	Value *int `json:"value"`
}

// ServeWS upgrades the request and serves start/answer/previous messages.
// "start" with a sessionId resumes an existing session.
func (h *QuestionnaireWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sessionID := ""
	for {
		var inbound questionnaireInbound
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		var reply outboundMessage[any]
		switch inbound.Type {
		case "start":
			var req startPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &req); err != nil {
					reply = errorMessage(err)
					break
				}
			}
			var step domain.Step
			if req.SessionID != "" {
				step, err = h.service.Current(ctx, req.SessionID)
			} else {
				if req.SurveyID == "" {
					req.SurveyID = domain.PSSSurveyID
				}
				step, err = h.service.StartQuestionnaire(ctx, req.SurveyID)
			}
			if err != nil {
				reply = errorMessage(err)
				break
			}
			sessionID = step.SessionID
			reply = outboundMessage[any]{Type: "step", Payload: step}
		case "answer":
			var req answerPayload
			if err := json.Unmarshal(inbound.Payload, &req); err != nil || req.Value == nil {
				reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "answer value required"}}
				break
			}
			if sessionID == "" {
				reply = errorMessage(domain.ErrSessionNotFound)
				break
			}
			outcome, err := h.service.Answer(ctx, sessionID, *req.Value)
			if err != nil {
				reply = errorMessage(err)
				break
			}
			if outcome.Result != nil {
				sessionID = ""
				reply = outboundMessage[any]{Type: "result", Payload: toScoreResponse(*outcome.Result)}
				break
			}
			reply = outboundMessage[any]{Type: "step", Payload: outcome.Next}
		case "previous":
			if sessionID == "" {
				reply = errorMessage(domain.ErrSessionNotFound)
				break
			}
			step, err := h.service.Previous(ctx, sessionID)
			if err != nil {
				reply = errorMessage(err)
				break
			}
			reply = outboundMessage[any]{Type: "step", Payload: step}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}

		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Debug("ws write error", slog.String("error", err.Error()))
			return
		}
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
