package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"stress-check-service/internal/app"
	"stress-check-service/internal/domain"
	"stress-check-service/internal/infra/memory"
	"stress-check-service/internal/observability"
)

func TestScoreEndpoint(t *testing.T) {
	router := newTestRouter(app.DefaultRoundConfig())

	body := `{"answers":{"1":0,"2":0,"3":0,"4":4,"5":4,"6":0,"7":4,"8":4,"9":0,"10":0}}`
	rec := do(router, http.MethodPost, "/api/v1/surveys/pss-10/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp scoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalScore != 0 || resp.StressLevel != domain.StressLow || resp.Label != "Low Stress" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestScoreEndpointRejectsBadAnswer(t *testing.T) {
	router := newTestRouter(app.DefaultRoundConfig())

	rec := do(router, http.MethodPost, "/api/v1/surveys/pss-10/score", `{"answers":{"1":9}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = do(router, http.MethodPost, "/api/v1/surveys/unknown/score", `{"answers":{}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestQuestionnaireEndpoints(t *testing.T) {
	router := newTestRouter(app.DefaultRoundConfig())

	rec := do(router, http.MethodPost, "/api/v1/questionnaires", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var step domain.Step
	if err := json.Unmarshal(rec.Body.Bytes(), &step); err != nil {
		t.Fatalf("decode step: %v", err)
	}
	if step.Question.ID != 1 || step.SessionID == "" {
		t.Fatalf("unexpected first step %+v", step)
	}
	base := "/api/v1/questionnaires/" + step.SessionID

	var last answerResponse
	for i := 0; i < 10; i++ {
		rec = do(router, http.MethodPost, base+"/answers", `{"value":4}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
		last = answerResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &last); err != nil {
			t.Fatalf("decode answer: %v", err)
		}
		if i == 4 {
			back := do(router, http.MethodPost, base+"/previous", "")
			if back.Code != http.StatusOK {
				t.Fatalf("previous: expected 200, got %d", back.Code)
			}
			// Re-answer the item we stepped back to.
			_ = do(router, http.MethodPost, base+"/answers", `{"value":4}`)
		}
	}
	if last.Result == nil || last.Result.TotalScore != 24 || last.Result.Label != "Moderate Stress" {
		t.Fatalf("expected moderate result on final answer, got %+v", last)
	}

	rec = do(router, http.MethodGet, base, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected finished session to be gone, got %d", rec.Code)
	}
}

func TestAnswerRequiresValue(t *testing.T) {
	router := newTestRouter(app.DefaultRoundConfig())
	rec := do(router, http.MethodPost, "/api/v1/questionnaires", `{"surveyId":"pss-10"}`)
	var step domain.Step
	_ = json.Unmarshal(rec.Body.Bytes(), &step)

	rec = do(router, http.MethodPost, "/api/v1/questionnaires/"+step.SessionID+"/answers", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing value, got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(app.DefaultRoundConfig())
	if rec := do(router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(router, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected metrics, got %d", rec.Code)
	}
}

func newTestRouter(round app.RoundConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := observability.NewMetrics()
	service := app.NewAssessmentService(
		memory.NewProgressStore(time.Minute),
		memory.NewSurveyRepository(memory.NewBuiltinSurveyLoader(), time.Minute),
		app.WithRecorder(metrics),
		app.WithRoundConfig(round),
	)
	return NewRouter(service, metrics.Handler(), nil)
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
