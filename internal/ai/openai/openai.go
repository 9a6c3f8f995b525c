// Package openai implements ai.Interviewer against any OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/go-interview-backend/internal/ai"
)

const defaultModel = goopenai.GPT4oMini

// Interviewer talks to a chat completions API.
type Interviewer struct {
	client *goopenai.Client
	model  string
}

var _ ai.Interviewer = (*Interviewer)(nil)

// New creates an Interviewer. baseURL may point at a self-hosted
// OpenAI-compatible server; empty keeps the public endpoint.
func New(apiKey, baseURL, model string) (*Interviewer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Interviewer{client: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

// Model returns the model name requests are sent to.
func (o *Interviewer) Model() string { return o.model }

// GenerateReply streams the interviewer's next message.
func (o *Interviewer) GenerateReply(ctx context.Context, in ai.ReplyInput) (<-chan ai.Chunk, error) {
	if len(in.History) == 0 {
		return nil, errors.New("openai: history must not be empty")
	}

	msgs := make([]goopenai.ChatCompletionMessage, 0, len(in.History)+1)
	msgs = append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: ai.InterviewerInstruction(in),
	})
	for _, t := range in.History {
		role := goopenai.ChatMessageRoleUser
		if t.Speaker == ai.SpeakerInterviewer {
			role = goopenai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	zerolog.Ctx(ctx).Debug().
		Str("model", o.model).
		Int("turns", len(in.History)).
		Msg("openai stream request")

	stream, err := o.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: 0.7,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	out := make(chan ai.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()
		send := func(ch ai.Chunk) bool {
			select {
			case out <- ch:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				send(ai.Chunk{Err: fmt.Errorf("openai stream: %w", err)})
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !send(ai.Chunk{Text: resp.Choices[0].Delta.Content}) {
				return
			}
		}
	}()
	return out, nil
}

// ScoreResume evaluates a resume against the job.
func (o *Interviewer) ScoreResume(ctx context.Context, in ai.ResumeInput) (*ai.Score, error) {
	return o.score(ctx, ai.ResumeScoringPrompt(in))
}

// ScoreInterview evaluates a finished interview transcript.
func (o *Interviewer) ScoreInterview(ctx context.Context, in ai.InterviewInput) (*ai.Score, error) {
	return o.score(ctx, ai.InterviewScoringPrompt(in))
}

func (o *Interviewer) score(ctx context.Context, prompt string) (*ai.Score, error) {
	resp, err := o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: o.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ai.ErrEmptyResponse
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)

	zerolog.Ctx(ctx).Debug().
		Str("model", o.model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai scoring response")

	if raw == "" {
		return nil, ai.ErrEmptyResponse
	}
	return ai.ParseScore(raw)
}
