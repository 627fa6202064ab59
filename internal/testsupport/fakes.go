package testsupport

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"storyloom/internal/services"
)

// Reply is one scripted completion result.
type Reply struct {
	Text string
	Err  error
}

// Call records the prompts of one completion request.
type Call struct {
	System string
	User   string
	JSON   bool
}

// ErrScriptExhausted is returned when a ScriptedCompleter runs out of replies.
var ErrScriptExhausted = errors.New("scripted completer exhausted")

// ScriptedCompleter replays replies in order for both plain and JSON
// completions. It is safe for concurrent use.
type ScriptedCompleter struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

// NewScriptedCompleter returns a completer that answers with replies in order.
func NewScriptedCompleter(replies ...Reply) *ScriptedCompleter {
	return &ScriptedCompleter{replies: replies}
}

// Texts is shorthand for replies that all succeed.
func Texts(texts ...string) []Reply {
	replies := make([]Reply, len(texts))
	for i, text := range texts {
		replies[i] = Reply{Text: text}
	}
	return replies
}

// Complete returns the next scripted reply.
func (c *ScriptedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return c.next(ctx, Call{System: system, User: user})
}

// CompleteJSON returns the next scripted reply.
func (c *ScriptedCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return c.next(ctx, Call{System: system, User: user, JSON: true})
}

func (c *ScriptedCompleter) next(ctx context.Context, call Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if len(c.replies) == 0 {
		return "", ErrScriptExhausted
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply.Text, reply.Err
}

// Calls returns a copy of the recorded requests.
func (c *ScriptedCompleter) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Remaining reports how many scripted replies were not consumed.
func (c *ScriptedCompleter) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.replies)
}

// GenerationError builds an error classified as a generation failure.
func GenerationError(msg string) error {
	return services.Wrap(services.ErrGeneration, "generate", "fake", msg, nil)
}

// FakeMedia generates deterministic image and audio bytes and tracks how
// many calls run at once.
type FakeMedia struct {
	// ImageErr and AudioErr, when set, decide per input whether a call fails.
	ImageErr func(prompt string) error
	AudioErr func(text string) error
	// Delay holds each call open so concurrency can be observed.
	Delay time.Duration
	// DelayFor, when set, overrides Delay per input.
	DelayFor func(input string) time.Duration

	mu         sync.Mutex
	finished   []string
	active     int
	maxActive  int
	imageCalls int
	audioCalls int
}

// GenerateImage returns "png:" followed by the prompt.
func (m *FakeMedia) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	m.enter(true)
	defer m.leave(prompt)
	if err := m.wait(ctx, prompt); err != nil {
		return nil, err
	}
	if m.ImageErr != nil {
		if err := m.ImageErr(prompt); err != nil {
			return nil, err
		}
	}
	return []byte("png:" + prompt), nil
}

// Synthesize returns "wav:" followed by the text.
func (m *FakeMedia) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.enter(false)
	defer m.leave(text)
	if err := m.wait(ctx, text); err != nil {
		return nil, err
	}
	if m.AudioErr != nil {
		if err := m.AudioErr(text); err != nil {
			return nil, err
		}
	}
	return []byte("wav:" + text), nil
}

// MaxActive returns the highest number of simultaneous calls observed.
func (m *FakeMedia) MaxActive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxActive
}

// Calls returns the number of image and audio calls made.
func (m *FakeMedia) Calls() (images, audio int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageCalls, m.audioCalls
}

func (m *FakeMedia) enter(image bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if image {
		m.imageCalls++
	} else {
		m.audioCalls++
	}
	m.active++
	if m.active > m.maxActive {
		m.maxActive = m.active
	}
}

// Finished returns call inputs in the order the calls returned.
func (m *FakeMedia) Finished() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.finished)
}

func (m *FakeMedia) leave(input string) {
	m.mu.Lock()
	m.active--
	m.finished = append(m.finished, input)
	m.mu.Unlock()
}

func (m *FakeMedia) wait(ctx context.Context, input string) error {
	delay := m.Delay
	if m.DelayFor != nil {
		delay = m.DelayFor(input)
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeGenerator combines scripted completions with fake media so a single
// value satisfies every generation capability the workflow needs.
type FakeGenerator struct {
	*ScriptedCompleter
	*FakeMedia
}

// NewFakeGenerator returns a generator answering completions with replies.
// A nil media gets a FakeMedia that always succeeds.
func NewFakeGenerator(media *FakeMedia, replies ...Reply) *FakeGenerator {
	if media == nil {
		media = &FakeMedia{}
	}
	return &FakeGenerator{ScriptedCompleter: NewScriptedCompleter(replies...), FakeMedia: media}
}

// Script appends replies for a later run.
func (g *FakeGenerator) Script(replies ...Reply) {
	g.ScriptedCompleter.mu.Lock()
	defer g.ScriptedCompleter.mu.Unlock()
	g.ScriptedCompleter.replies = append(g.ScriptedCompleter.replies, replies...)
}
