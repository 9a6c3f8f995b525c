package ai

import (
	_ "embed"
	"strings"
)

//go:embed prompts/interviewer.md
var interviewerTemplate string

//go:embed prompts/score_resume.md
var scoreResumeTemplate string

//go:embed prompts/score_interview.md
var scoreInterviewTemplate string

const notProvided = "(not provided)"

// InterviewerInstruction renders the system instruction for reply generation.
func InterviewerInstruction(in ReplyInput) string {
	return render(interviewerTemplate, in.Job, map[string]string{
		"{{RESUME}}": orNotProvided(in.ResumeText),
	})
}

// ResumeScoringPrompt renders the single-shot resume screening prompt.
func ResumeScoringPrompt(in ResumeInput) string {
	return render(scoreResumeTemplate, in.Job, map[string]string{
		"{{RESUME}}": orNotProvided(in.ResumeText),
	})
}

// InterviewScoringPrompt renders the single-shot interview scoring prompt.
func InterviewScoringPrompt(in InterviewInput) string {
	return render(scoreInterviewTemplate, in.Job, map[string]string{
		"{{TRANSCRIPT}}": Transcript(in.History),
	})
}

// Transcript formats history as "Interviewer: ..." / "Candidate: ..." lines.
func Transcript(history []Turn) string {
	var b strings.Builder
	for i, t := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		if t.Speaker == SpeakerInterviewer {
			b.WriteString("Interviewer: ")
		} else {
			b.WriteString("Candidate: ")
		}
		b.WriteString(strings.TrimSpace(t.Content))
	}
	if b.Len() == 0 {
		return notProvided
	}
	return b.String()
}

func render(tmpl string, job JobContext, extra map[string]string) string {
	out := strings.ReplaceAll(tmpl, "{{JOB_TITLE}}", orNotProvided(job.Title))
	out = strings.ReplaceAll(out, "{{JOB_DESCRIPTION}}", orNotProvided(job.Description))
	out = strings.ReplaceAll(out, "{{JOB_REQUIREMENTS}}", orNotProvided(job.Requirements))
	for k, v := range extra {
		out = strings.ReplaceAll(out, k, v)
	}
	return strings.TrimSpace(out)
}

func orNotProvided(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return notProvided
	}
	return s
}
