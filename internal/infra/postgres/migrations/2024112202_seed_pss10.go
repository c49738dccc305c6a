package migrations

import (
	"context"
	"encoding/json"

	"github.com/uptrace/bun"

	"stress-check-service/internal/domain"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return UpsertSurvey(ctx, db, domain.PSS10())
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, domain.PSSSurveyID)
			return err
		},
	)
}

// UpsertSurvey writes a definition, replacing any existing row with the same id.
func UpsertSurvey(ctx context.Context, db bun.IDB, survey domain.Survey) error {
	data, err := json.Marshal(survey)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO surveys (id, data) VALUES (?, ?::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		survey.ID, string(data))
	return err
}
