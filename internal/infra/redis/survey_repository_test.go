package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"stress-check-service/internal/domain"
	"stress-check-service/internal/infra/memory"
)

func TestSurveyRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{SurveyLoader: memory.NewBuiltinSurveyLoader()}
	repo := NewSurveyRepository(client, loader, time.Minute)

	survey, err := repo.GetSurvey(context.Background(), domain.PSSSurveyID)
	if err != nil {
		t.Fatalf("get survey: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("survey:" + domain.PSSSurveyID) {
		t.Fatalf("expected survey cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetSurvey(context.Background(), domain.PSSSurveyID)
	if err != nil {
		t.Fatalf("get cached survey: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(survey.Questions) || !cached.Questions[3].Reverse {
		t.Fatalf("cached survey lost reverse flags: %+v", cached.Questions[3])
	}

	if err := repo.Invalidate(context.Background(), domain.PSSSurveyID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetSurvey(context.Background(), domain.PSSSurveyID)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestSurveyRepositoryPropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewSurveyRepository(newClient(mr), memory.NewBuiltinSurveyLoader(), time.Minute)
	if _, err := repo.GetSurvey(context.Background(), "missing"); err != domain.ErrSurveyNotFound {
		t.Fatalf("expected survey not found, got %v", err)
	}
}

type countingLoader struct {
	SurveyLoader
	calls int
}

func (l *countingLoader) LoadSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	l.calls++
	return l.SurveyLoader.LoadSurvey(ctx, surveyID)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
