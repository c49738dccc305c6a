package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"stress-check-service/internal/domain"
)

// SurveyLoader fetches survey definitions from a backing store (e.g., Postgres).
type SurveyLoader interface {
	LoadSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
}

// SurveyRepository caches survey definitions in Redis and falls back to a loader on miss.
// Definitions are stored as JSON: SET survey:{surveyID} {json} EX ttl
type SurveyRepository struct {
	client *redis.Client
	loader SurveyLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSurveyRepository(client *redis.Client, loader SurveyLoader, ttl time.Duration) *SurveyRepository {
	return &SurveyRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SurveyRepository) GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	if survey, ok := r.cached(ctx, surveyID); ok {
		return survey, nil
	}

	result, err, _ := r.sf.Do(surveyID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if survey, ok := r.cached(ctx, surveyID); ok {
			return survey, nil
		}
		survey, err := r.loader.LoadSurvey(ctx, surveyID)
		if err != nil {
			return domain.Survey{}, err
		}
		data, err := json.Marshal(survey)
		if err != nil {
			return domain.Survey{}, fmt.Errorf("encode survey: %w", err)
		}
		// Cache writes are best effort; the loader stays the source of truth.
		_ = r.client.Set(ctx, r.key(surveyID), data, r.ttlWithJitter()).Err()
		return survey, nil
	})
	if err != nil {
		return domain.Survey{}, err
	}
	return result.(domain.Survey), nil
}

func (r *SurveyRepository) cached(ctx context.Context, surveyID string) (domain.Survey, bool) {
	raw, err := r.client.Get(ctx, r.key(surveyID)).Bytes()
	if err != nil {
		return domain.Survey{}, false
	}
	var survey domain.Survey
	if err := json.Unmarshal(raw, &survey); err != nil {
		return domain.Survey{}, false
	}
	return survey, true
}

// Invalidate drops a cached definition, e.g. after a migration reseeds it.
func (r *SurveyRepository) Invalidate(ctx context.Context, surveyID string) error {
	return r.client.Del(ctx, r.key(surveyID)).Err()
}

func (r *SurveyRepository) key(surveyID string) string {
	return "survey:" + surveyID
}

func (r *SurveyRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
