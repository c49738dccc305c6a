package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stress-check-service/internal/domain"
)

const answerFieldPrefix = "a:"

// ProgressStore keeps in-flight questionnaires in Redis so any instance can
// continue a session. Each session is one hash:
//
//	HSET pss:progress:{sessionID} survey {surveyID} cursor {n} started {unix-ms} a:{questionID} {answer}
//
// The key expires ttl after the last save.
type ProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProgressStore(client *redis.Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

func (s *ProgressStore) Save(ctx context.Context, progress domain.Progress) error {
	key := s.key(progress.SessionID)
	fields := map[string]interface{}{
		"survey":  progress.SurveyID,
		"cursor":  progress.Cursor,
		"started": progress.StartedAt.UnixMilli(),
	}
	for questionID, answer := range progress.Answers {
		fields[answerFieldPrefix+strconv.Itoa(questionID)] = answer
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Load(ctx context.Context, sessionID string) (domain.Progress, error) {
	values, err := s.client.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	if len(values) == 0 {
		return domain.Progress{}, domain.ErrSessionNotFound
	}
	return decodeProgress(sessionID, values)
}

func (s *ProgressStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) key(sessionID string) string {
	return "pss:progress:" + sessionID
}

func decodeProgress(sessionID string, values map[string]string) (domain.Progress, error) {
	progress := domain.Progress{
		SessionID: sessionID,
		SurveyID:  values["survey"],
		Answers:   domain.SurveyResponse{},
	}
	if raw, ok := values["cursor"]; ok {
		cursor, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Progress{}, fmt.Errorf("decode cursor %q: %w", raw, err)
		}
		progress.Cursor = cursor
	}
	if raw, ok := values["started"]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Progress{}, fmt.Errorf("decode started %q: %w", raw, err)
		}
		progress.StartedAt = time.UnixMilli(ms).UTC()
	}
	for field, raw := range values {
		if !strings.HasPrefix(field, answerFieldPrefix) {
			continue
		}
		questionID, err := strconv.Atoi(strings.TrimPrefix(field, answerFieldPrefix))
		if err != nil {
			return domain.Progress{}, fmt.Errorf("decode question field %q: %w", field, err)
		}
		answer, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Progress{}, fmt.Errorf("decode answer %q: %w", raw, err)
		}
		progress.Answers[questionID] = answer
	}
	return progress, nil
}
