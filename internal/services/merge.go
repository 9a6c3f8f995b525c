package services

import (
	"math"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// MergeRecommendation combines a stored verdict with a newly computed one.
// The result is incoming when nothing valid is stored yet, otherwise the more
// severe of the two; a recommendation therefore only ever holds or worsens,
// whatever order resume and interview scoring complete in.
func MergeRecommendation(existing *domain.Recommendation, incoming domain.Recommendation) domain.Recommendation {
	if existing == nil || !existing.Valid() {
		return incoming
	}
	if incoming.Severity() > existing.Severity() {
		return incoming
	}
	return *existing
}

// ApplyResumeScore records a resume evaluation on a. Invalid input leaves a
// untouched. Reapplying the same evaluation yields the same assessment.
func ApplyResumeScore(a *domain.Assessment, score float64, comment string, rec domain.Recommendation) error {
	if err := validateScore(score, rec); err != nil {
		return err
	}
	a.ResumeScore = &score
	a.ResumeComment = comment
	merged := MergeRecommendation(a.Recommendation, rec)
	a.Recommendation = &merged
	return nil
}

// ApplyInterviewScore records an interview evaluation on a, symmetric to
// ApplyResumeScore.
func ApplyInterviewScore(a *domain.Assessment, score float64, comment string, rec domain.Recommendation) error {
	if err := validateScore(score, rec); err != nil {
		return err
	}
	a.InterviewScore = &score
	a.InterviewComment = comment
	merged := MergeRecommendation(a.Recommendation, rec)
	a.Recommendation = &merged
	return nil
}

func validateScore(score float64, rec domain.Recommendation) error {
	if math.IsNaN(score) || score < 0 || score > 100 {
		return ErrScoreOutOfRange
	}
	if !rec.Valid() {
		return ErrInvalidRecommendation
	}
	return nil
}
