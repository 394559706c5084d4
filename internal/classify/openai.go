package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog/log"
)

// jobTTL is how long a submitted job may stay non-terminal before Poll
// reports it expired.
const jobTTL = 10 * time.Minute

// OpenAIClient implements JudgementClient on the OpenAI chat-completions
// API. The provider call itself is synchronous, so Submit runs it on a
// background goroutine and exposes the job lifecycle through Poll.
type OpenAIClient struct {
	api openai.Client

	mu   sync.Mutex
	jobs map[string]*Job
	born map[string]time.Time
}

// NewOpenAIClient constructs a client authenticated with the given API key.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		api:  openai.NewClient(option.WithAPIKey(apiKey)),
		jobs: make(map[string]*Job),
		born: make(map[string]time.Time),
	}
}

// Submit implements JudgementClient. The job starts queued and moves to
// running once the provider call is in flight. The provider call is detached
// from the submit context so a caller timeout does not abort an accepted job.
func (c *OpenAIClient) Submit(ctx context.Context, req Request) (string, error) {
	if req.Model == "" {
		return "", fmt.Errorf("classify: model is required")
	}

	id := uuid.NewString()
	c.mu.Lock()
	c.jobs[id] = &Job{ID: id, State: JobQueued}
	c.born[id] = time.Now()
	c.mu.Unlock()

	go c.run(context.WithoutCancel(ctx), id, req)
	return id, nil
}

// Poll implements JudgementClient. A job that has outlived jobTTL without
// reaching a terminal state is reported expired.
func (c *OpenAIClient) Poll(_ context.Context, jobID string) (*Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("classify: unknown job %s", jobID)
	}
	if !job.State.Terminal() && time.Since(c.born[jobID]) > jobTTL {
		job.State = JobExpired
		job.Error = "job outlived its deadline"
	}
	snapshot := *job
	if snapshot.State.Terminal() {
		delete(c.jobs, jobID)
		delete(c.born, jobID)
	}
	return &snapshot, nil
}

func (c *OpenAIClient) run(ctx context.Context, id string, req Request) {
	c.setState(id, JobRunning, "", "")

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.Instructions),
	}
	if len(req.ImageData) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.ImageMIME, base64.StdEncoding.EncodeToString(req.ImageData))
		messages = append(messages, openai.UserMessage(req.Input),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}))
	} else {
		messages = append(messages, openai.UserMessage(req.Input))
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: messages,
	})
	if err != nil {
		log.Warn().Err(err).Str("job_id", id).Str("model", req.Model).Msg("judgement call failed")
		c.setState(id, JobFailed, "", err.Error())
		return
	}
	if len(resp.Choices) == 0 {
		c.setState(id, JobFailed, "", "no completions returned")
		return
	}
	c.setState(id, JobCompleted, resp.Choices[0].Message.Content, "")
}

func (c *OpenAIClient) setState(id string, state JobState, output, errText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok := c.jobs[id]
	if !ok {
		return
	}
	job.State = state
	job.Output = output
	job.Error = errText
}
