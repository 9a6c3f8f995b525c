// Package ai defines the contract between the interview core and the
// generation backend: a streamed interviewer reply and two scoring calls.
// Provider implementations live in the gemini and openai subpackages.
package ai

import (
	"context"
	"encoding/json"
	"errors"
)

// Speaker identifies who authored a transcript turn.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// Turn is one message of the interview transcript, in conversation order.
type Turn struct {
	Speaker Speaker
	Content string
}

// JobContext is the posting information handed to the model.
type JobContext struct {
	Title        string
	Description  string
	Requirements string
}

// ReplyInput is everything the interviewer needs to produce the next question.
type ReplyInput struct {
	Job        JobContext
	ResumeText string
	History    []Turn
}

// ResumeInput asks for a resume-fit evaluation.
type ResumeInput struct {
	Job        JobContext
	ResumeText string
}

// InterviewInput asks for an evaluation of a finished interview.
type InterviewInput struct {
	Job     JobContext
	History []Turn
}

// Score is a validated evaluation. Recommendation is the model's verdict as
// written; callers map it onto their own enum.
type Score struct {
	Value          float64
	Comment        string
	Recommendation string
	Raw            json.RawMessage
}

// Chunk is one piece of a streamed reply. A chunk carrying Err is the last
// one sent; otherwise the channel is closed after the final text chunk.
type Chunk struct {
	Text string
	Err  error
}

// Interviewer is the generation capability the interview core depends on.
//
// GenerateReply returns once the upstream call is established; text then
// arrives on the channel. Cancelling ctx stops the producer and closes the
// channel.
type Interviewer interface {
	GenerateReply(ctx context.Context, in ReplyInput) (<-chan Chunk, error)
	ScoreResume(ctx context.Context, in ResumeInput) (*Score, error)
	ScoreInterview(ctx context.Context, in InterviewInput) (*Score, error)
}

var (
	// ErrEmptyResponse is returned when the model produced no text at all.
	ErrEmptyResponse = errors.New("ai: empty response")
	// ErrInvalidScore is returned when a scoring payload fails validation.
	ErrInvalidScore = errors.New("ai: invalid score payload")
)
