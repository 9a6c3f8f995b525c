// Package gemini implements ai.Interviewer on top of the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/tbourn/go-interview-backend/internal/ai"
)

const defaultModel = "gemini-2.5-flash"

// models is the subset of *genai.Models the provider calls.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Interviewer talks to Gemini for interview replies and scoring.
type Interviewer struct {
	models models
	model  string
}

var _ ai.Interviewer = (*Interviewer)(nil)

// New creates an Interviewer configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Interviewer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newInterviewer(client.Models, model), nil
}

func newInterviewer(m models, model string) *Interviewer {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Interviewer{models: m, model: model}
}

// Model returns the model name requests are sent to.
func (g *Interviewer) Model() string { return g.model }

// GenerateReply streams the interviewer's next message. The transcript is
// sent as alternating user/model contents; the job and resume go into the
// system instruction.
func (g *Interviewer) GenerateReply(ctx context.Context, in ai.ReplyInput) (<-chan ai.Chunk, error) {
	if len(in.History) == 0 {
		return nil, errors.New("gemini: history must not be empty")
	}

	contents := make([]*genai.Content, 0, len(in.History))
	for _, t := range in.History {
		role := genai.Role(genai.RoleUser)
		if t.Speaker == ai.SpeakerInterviewer {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ai.InterviewerInstruction(in), genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
	}

	zerolog.Ctx(ctx).Debug().
		Str("model", g.model).
		Int("turns", len(contents)).
		Msg("gemini stream request")

	out := make(chan ai.Chunk)
	go func() {
		defer close(out)
		send := func(ch ai.Chunk) bool {
			select {
			case out <- ch:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for resp, err := range g.models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				send(ai.Chunk{Err: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !send(ai.Chunk{Text: text}) {
					return
				}
			}
		}
	}()
	return out, nil
}

// ScoreResume evaluates a resume against the job.
func (g *Interviewer) ScoreResume(ctx context.Context, in ai.ResumeInput) (*ai.Score, error) {
	return g.score(ctx, ai.ResumeScoringPrompt(in))
}

// ScoreInterview evaluates a finished interview transcript.
func (g *Interviewer) ScoreInterview(ctx context.Context, in ai.InterviewInput) (*ai.Score, error) {
	return g.score(ctx, ai.InterviewScoringPrompt(in))
}

func (g *Interviewer) score(ctx context.Context, prompt string) (*ai.Score, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	raw := strings.TrimSpace(resp.Text())

	zerolog.Ctx(ctx).Debug().
		Str("model", g.model).
		Int("prompt_length", utf8.RuneCountInString(prompt)).
		Int("response_length", utf8.RuneCountInString(raw)).
		Msg("gemini scoring response")

	if raw == "" {
		return nil, ai.ErrEmptyResponse
	}
	return ai.ParseScore(raw)
}
