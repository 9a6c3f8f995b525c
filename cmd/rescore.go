package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/config"
	httpapi "github.com/tbourn/go-interview-backend/internal/http"
	"github.com/tbourn/go-interview-backend/internal/repo"
	"github.com/tbourn/go-interview-backend/internal/services"
)

var (
	rescoreSession string
	rescoreLimit   int
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Score due interview tasks once, optionally requeueing a session first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return rescore(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(rescoreCmd)

	rescoreCmd.Flags().StringVarP(&rescoreSession, "session", "s", "", "requeue this completed session before scoring")
	rescoreCmd.Flags().IntVarP(&rescoreLimit, "limit", "n", 50, "maximum number of tasks to score")
}

func rescore(ctx context.Context, cfg config.Config) error {
	logger := cmdLogger("rescore")
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	model, err := newInterviewer(ctx, cfg.AI)
	if err != nil {
		return err
	}
	svc := httpapi.NewServices(db, model, cfg)
	return scoreDue(logger.WithContext(ctx), svc.Assessments, db, rescoreSession, rescoreLimit)
}

// scoreDue runs one attempt for every due PENDING task, oldest first.
func scoreDue(ctx context.Context, assess *services.AssessmentService, db *gorm.DB, sessionID string, limit int) error {
	logger := cmdLogger("rescore")
	if sessionID != "" {
		task, err := assess.RequeueInterview(ctx, sessionID)
		if err != nil {
			return err
		}
		logger.Info().Str("session_id", sessionID).Str("task_id", task.ID).Msg("scoring task requeued")
	}

	tasks, err := repo.ListDueScoringTasks(ctx, db, time.Now().UTC(), limit)
	if err != nil {
		return err
	}
	var done, failed int
	for _, t := range tasks {
		if err := assess.ScoreInterview(ctx, t.ID); err != nil {
			failed++
			logger.Warn().Err(err).Str("task_id", t.ID).Msg("scoring attempt failed")
			continue
		}
		done++
	}
	logger.Info().Int("scored", done).Int("failed", failed).Msg("rescore finished")
	return nil
}
