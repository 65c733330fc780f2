package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/companion"
	"github.com/aretw0/companion/pkg/domain"
)

// echoAgent answers every message with "echo: <text>" unless the text names
// a scripted failure.
type echoAgent struct {
	mu       sync.Mutex
	sessions []string
	texts    []string
	fail     map[string]error
	artifact *domain.Artifact
}

func (a *echoAgent) HandleMessage(ctx context.Context, sessionID, text string) (*companion.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, sessionID)
	a.texts = append(a.texts, text)
	if err, ok := a.fail[text]; ok {
		return nil, err
	}
	return &companion.Reply{
		SessionID: sessionID,
		Text:      "echo: " + text,
		Workflow:  domain.WorkflowConversation,
		Artifact:  a.artifact,
		Path:      []string{"memory_extract", "router", "memory_inject", "conversation"},
	}, nil
}

func run(t *testing.T, agent Agent, h IOHandler, opts ...Option) {
	t.Helper()
	opts = append([]Option{WithInputHandler(h), WithSignals(false)}, opts...)
	r := NewRunner(agent, opts...)
	require.NoError(t, r.Run(t.Context()))
}

func TestRunner_TextSession(t *testing.T) {
	agent := &echoAgent{}
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader("hello\n\nhow are you?\nquit\nnever read\n"), &out)

	run(t, agent, h, WithSessionID("alice"))

	assert.Equal(t, []string{"hello", "how are you?"}, agent.texts)
	assert.Equal(t, []string{"alice", "alice"}, agent.sessions)
	assert.Contains(t, out.String(), "echo: hello\n")
	assert.Contains(t, out.String(), "echo: how are you?\n")
	assert.True(t, strings.HasPrefix(out.String(), "> "))
}

func TestRunner_StopsAtEOF(t *testing.T) {
	agent := &echoAgent{}
	var out bytes.Buffer
	run(t, agent, NewTextHandler(strings.NewReader("one\ntwo"), &out))

	assert.Equal(t, []string{"one", "two"}, agent.texts)
	assert.Equal(t, []string{DefaultSessionID, DefaultSessionID}, agent.sessions)
}

func TestRunner_FailedTurnContinues(t *testing.T) {
	agent := &echoAgent{fail: map[string]error{
		"draw": domain.Wrap(domain.ErrImageGeneration, "generate image", errors.New("quota")),
	}}
	var out bytes.Buffer
	run(t, agent, NewTextHandler(strings.NewReader("draw\nhi\n"), &out))

	assert.Contains(t, out.String(), "[image_generation]")
	assert.Contains(t, out.String(), "echo: hi")
}

func TestRunner_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	r := NewRunner(&echoAgent{},
		WithInputHandler(NewTextHandler(strings.NewReader("hello\n"), &bytes.Buffer{})),
		WithSignals(false),
	)
	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestTextHandler_OutputRendersAndShowsArtifact(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := h.Output(t.Context(), &companion.Reply{
		Text:     "Here you go",
		Workflow: domain.WorkflowImage,
		Artifact: domain.NewImageArtifact("generated/image/image_1.webp"),
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Rendered: Here you go")
	assert.Contains(t, out.String(), "generated/image/image_1.webp")
}

func TestTextHandler_RejectsInvalidInput(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader("bad\x00\xff\nfine\n"), &out, WithPrompt("you> "))
	defer h.Close()

	got, err := h.Input(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "fine", got)
	assert.Contains(t, out.String(), "Please try again")
	assert.Equal(t, 2, strings.Count(out.String(), "you> "))
}

func TestTextHandler_InputHonoursCancellation(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	h := NewTextHandler(r, &bytes.Buffer{})
	defer h.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler_Session(t *testing.T) {
	agent := &echoAgent{fail: map[string]error{
		"": fmt.Errorf("%w: empty input", domain.ErrValidation),
	}}
	in := strings.Join([]string{
		`{"text": "hello"}`,
		`"quoted"`,
		`plain words`,
		`{"text": ""}`,
	}, "\n")
	var out bytes.Buffer
	run(t, agent, NewJSONHandler(strings.NewReader(in), &out))

	assert.Equal(t, []string{"hello", "quoted", "plain words", ""}, agent.texts)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var reply companion.Reply
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &reply))
	assert.Equal(t, "echo: hello", reply.Text)
	assert.Equal(t, domain.WorkflowConversation, reply.Workflow)

	var failure ErrorLine
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &failure))
	assert.Equal(t, "validation", failure.Kind)
}

func TestIsQuit(t *testing.T) {
	for _, in := range []string{"quit", "exit", " EXIT ", "Quit"} {
		assert.True(t, isQuit(in), in)
	}
	assert.False(t, isQuit("quitting"))
}

func TestSignalManager_Lifecycle(t *testing.T) {
	sm := NewSignalManager(t.Context())
	defer sm.Stop()

	ctx1 := sm.Context()
	assert.NoError(t, ctx1.Err())
	assert.False(t, sm.Interrupted())

	sm.Reset()
	ctx2 := sm.Context()
	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "Reset should release the previous context")
	assert.NoError(t, ctx2.Err())

	sm.Stop()
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
}

func TestSignalManager_FollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(t.Context())
	sm := NewSignalManager(parent)
	defer sm.Stop()

	cancel()
	<-sm.Context().Done()
	assert.False(t, sm.Interrupted(), "parent cancellation is not an interrupt")
}
