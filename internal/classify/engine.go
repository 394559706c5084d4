package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// systemInstruction is the fixed preamble of every judgement job. The chat's
// own policy prompt is appended under "Chat rules".
const systemInstruction = `You are a moderation assistant for a group chat. Judge only the single message given to you, not the conversation around it.

Answer with a JSON object of exactly this shape:
{"judgement": "<Good|MoreContextNeeded|Inform|Suspicious|Harmful>", "reasoning": "<one short sentence>"}

Judgement meanings:
- Good: the message complies with the chat rules.
- MoreContextNeeded: you cannot judge the message without seeing the conversation.
- Inform: the message breaks the rules, but a well-meaning user could have sent it without knowing them.
- Suspicious: the message is likely harmful, but intent to harm is not obvious.
- Harmful: the message clearly breaks the chat rules with intent.`

// defaultPollInterval is the gap between job poll attempts.
const defaultPollInterval = time.Second

// TitleSource resolves a chat's display title, best effort. An empty string
// means the title is unknown and is omitted from the prompt.
type TitleSource interface {
	Title(ctx context.Context, chatID int64) string
}

// FileFetcher downloads an attachment's bytes by platform file id.
type FileFetcher interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Engine produces a ModerationVerdict for one message. It never returns an
// error: every failure path collapses to a Good verdict.
type Engine struct {
	client JudgementClient
	models ModelSelector
	titles TitleSource // optional
	files  FileFetcher // optional

	// PollInterval is the gap between job polls. Tests shrink it.
	PollInterval time.Duration
}

// NewEngine constructs an Engine. titles and files may be nil, in which case
// the prompt omits the chat title and photo attachments are judged by their
// caption alone.
func NewEngine(client JudgementClient, models ModelSelector, titles TitleSource, files FileFetcher) *Engine {
	return &Engine{
		client:       client,
		models:       models,
		titles:       titles,
		files:        files,
		PollInterval: defaultPollInterval,
	}
}

// verdictPayload is the schema the judgement service is instructed to answer
// with. Anything that does not validate against it is a classification
// failure.
type verdictPayload struct {
	Judgement string `json:"judgement"`
	Reasoning string `json:"reasoning"`
}

// Classify judges one message under a chat's configuration. System events,
// empty bodies, and commands are skipped without a job submission; every
// other path submits a job and polls it to a terminal state.
func (e *Engine) Classify(ctx context.Context, msg domain.InboundMessage, cfg domain.ChatModerationConfig) domain.ModerationVerdict {
	if msg.IsSystem || msg.IsCommand() || (msg.Text == "" && msg.PhotoFileID == "") {
		v := domain.GoodVerdict(msg.Text)
		v.Skipped = true
		return v
	}

	req := Request{
		Model:        e.models.Select(ctx, msg.ChatID, cfg.Model),
		Instructions: e.buildInstructions(ctx, msg.ChatID, cfg.Prompt),
		Input:        e.buildInput(msg),
	}
	if msg.PhotoFileID != "" && e.files != nil {
		data, err := e.files.DownloadFile(ctx, msg.PhotoFileID)
		if err != nil {
			log.Warn().Err(err).
				Int64("chat_id", msg.ChatID).
				Str("file_id", msg.PhotoFileID).
				Msg("photo download failed, judging caption only")
		} else {
			req.ImageData = data
			req.ImageMIME = "image/jpeg"
		}
	}

	jobID, err := e.client.Submit(ctx, req)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("judgement submit failed, failing open")
		return domain.GoodVerdict(msg.Text)
	}

	job := e.await(ctx, jobID)
	if job == nil || job.State != JobCompleted {
		if job != nil {
			log.Warn().
				Int64("chat_id", msg.ChatID).
				Str("job_id", jobID).
				Str("state", string(job.State)).
				Str("error", job.Error).
				Msg("judgement job did not complete, failing open")
		}
		return domain.GoodVerdict(msg.Text)
	}

	verdict, err := parseVerdict(job.Output)
	if err != nil {
		log.Warn().Err(err).
			Int64("chat_id", msg.ChatID).
			Str("job_id", jobID).
			Msg("judgement output unparseable, failing open")
		return domain.GoodVerdict(msg.Text)
	}

	verdict.MessageText = msg.Text
	verdict.ImageFileID = msg.PhotoFileID
	return verdict
}

// await polls the job until it reaches a terminal state. Returns nil when
// the context is cancelled first.
func (e *Engine) await(ctx context.Context, jobID string) *Job {
	timer := time.NewTimer(e.PollInterval)
	defer timer.Stop()

	for {
		job, err := e.client.Poll(ctx, jobID)
		if err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("judgement poll failed")
			return &Job{ID: jobID, State: JobFailed, Error: err.Error()}
		}
		if job.State.Terminal() {
			return job
		}

		timer.Reset(e.PollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// buildInstructions assembles the system instruction, the chat title when
// known, and the chat's policy prompt.
func (e *Engine) buildInstructions(ctx context.Context, chatID int64, prompt string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	if e.titles != nil {
		if title := e.titles.Title(ctx, chatID); title != "" {
			fmt.Fprintf(&b, "\n\nThe chat is titled %q.", title)
		}
	}
	if prompt != "" {
		b.WriteString("\n\nChat rules: ")
		b.WriteString(prompt)
	}
	return b.String()
}

// buildInput renders the message body plus attachment markers.
func (e *Engine) buildInput(msg domain.InboundMessage) string {
	input := msg.Text
	if msg.Note != "" {
		if input != "" {
			input += " "
		}
		input += msg.Note
	}
	return input
}

// parseVerdict validates the model output against the judgement schema.
// Code fences around the JSON are tolerated; anything else is an error.
func parseVerdict(output string) (domain.ModerationVerdict, error) {
	raw := strings.TrimSpace(output)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var payload verdictPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.ModerationVerdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	j := domain.Judgement(payload.Judgement)
	if !j.Valid() {
		return domain.ModerationVerdict{}, fmt.Errorf("unknown judgement %q", payload.Judgement)
	}
	return domain.ModerationVerdict{Judgement: j, Reasoning: payload.Reasoning}, nil
}
