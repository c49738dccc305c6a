package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stress-check-service/internal/app"
	"stress-check-service/internal/domain"
)

// NewScoreCmd scores ten PSS-10 answers given in question order.
func NewScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <a1> ... <a10>",
		Short: "Score PSS-10 answers (0=Never .. 4=Very Often) without starting the server",
		Args:  cobra.ExactArgs(domain.PSSQuestionCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			responses := make(domain.SurveyResponse, len(args))
			for i, raw := range args {
				value, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("answer %d: %w", i+1, err)
				}
				responses[i+1] = value
			}
			result, err := app.ScorePSS(responses)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total score: %d\nstress level: %s\n", result.TotalScore, result.StressLevel.Label())
			return nil
		},
	}
}
