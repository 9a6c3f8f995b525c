package services

import (
	"errors"
	"io"
	"testing"
)

func TestSpecificErrors_WrapKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrSessionNotFound, ErrNotFound},
		{ErrApplicationNotFound, ErrNotFound},
		{ErrAssessmentNotFound, ErrNotFound},
		{ErrJobNotFound, ErrNotFound},
		{ErrSessionBusy, ErrConflict},
		{ErrEmptyContent, ErrValidation},
		{ErrContentTooLong, ErrValidation},
		{ErrScoreOutOfRange, ErrValidation},
		{ErrInvalidRecommendation, ErrValidation},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Fatalf("%q does not wrap %q", tc.err, tc.kind)
		}
	}
	if errors.Is(ErrSessionBusy, ErrNotFound) {
		t.Fatalf("busy must not be a not-found error")
	}
	if ErrSessionNotFound.Error() != "session not found" {
		t.Fatalf("message = %q", ErrSessionNotFound.Error())
	}
}

func TestUpstreamError_KeepsCause(t *testing.T) {
	err := upstreamError("score resume", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("upstreamError lost a wrapped error: %v", err)
	}
}
