package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"stress-check-service/internal/app"
	"stress-check-service/internal/domain"
)

// NewRouter wires the REST API, the reaction websocket, health and metrics.
// metrics may be nil.
func NewRouter(service *app.AssessmentService, metrics http.Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	api := &apiHandler{service: service}
	v1 := router.Group("/api/v1")
	{
		v1.GET("/surveys/:id", api.getSurvey)
		v1.POST("/surveys/:id/score", api.score)
		v1.POST("/questionnaires", api.startQuestionnaire)
		v1.GET("/questionnaires/:session", api.current)
		v1.POST("/questionnaires/:session/answers", api.answer)
		v1.POST("/questionnaires/:session/previous", api.previous)
		v1.DELETE("/questionnaires/:session", api.abandon)
	}

	reaction := NewWSHandler(service, logger)
	router.GET("/ws/reaction", func(c *gin.Context) {
		reaction.ServeWS(c.Writer, c.Request)
	})
	questionnaire := NewQuestionnaireWSHandler(service, logger)
	router.GET("/ws/questionnaire", func(c *gin.Context) {
		questionnaire.ServeWS(c.Writer, c.Request)
	})
	return router
}

type apiHandler struct {
	service *app.AssessmentService
}

type scoreRequest struct {
	Answers domain.SurveyResponse `json:"answers"`
}

type scoreResponse struct {
	TotalScore  int                `json:"totalScore"`
	StressLevel domain.StressLevel `json:"stressLevel"`
	Label       string             `json:"label"`
}

type startRequest struct {
	SurveyID string `json:"surveyId"`
}

type answerRequest struct {
	Value *int `json:"value" binding:"required"`
}

type answerResponse struct {
	Next   *domain.Step   `json:"next,omitempty"`
	Result *scoreResponse `json:"result,omitempty"`
}

func (h *apiHandler) getSurvey(c *gin.Context) {
	survey, err := h.service.Survey(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

func (h *apiHandler) score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.service.Score(c.Request.Context(), c.Param("id"), req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toScoreResponse(result))
}

func (h *apiHandler) startQuestionnaire(c *gin.Context) {
	var req startRequest
	// An empty body starts the built-in PSS-10.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.SurveyID == "" {
		req.SurveyID = domain.PSSSurveyID
	}
	step, err := h.service.StartQuestionnaire(c.Request.Context(), req.SurveyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, step)
}

func (h *apiHandler) current(c *gin.Context) {
	step, err := h.service.Current(c.Request.Context(), c.Param("session"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *apiHandler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	outcome, err := h.service.Answer(c.Request.Context(), c.Param("session"), *req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := answerResponse{Next: outcome.Next}
	if outcome.Result != nil {
		result := toScoreResponse(*outcome.Result)
		resp.Result = &result
	}
	c.JSON(http.StatusOK, resp)
}

func (h *apiHandler) previous(c *gin.Context) {
	step, err := h.service.Previous(c.Request.Context(), c.Param("session"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *apiHandler) abandon(c *gin.Context) {
	if err := h.service.Abandon(c.Request.Context(), c.Param("session")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toScoreResponse(result domain.ScoreResult) scoreResponse {
	return scoreResponse{
		TotalScore:  result.TotalScore,
		StressLevel: result.StressLevel,
		Label:       result.StressLevel.Label(),
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSurveyNotFound), errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAnswer):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if logger == nil {
			return
		}
		logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()))
	}
}
