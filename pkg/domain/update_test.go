package domain_test

import (
	"testing"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgs(contents ...string) []domain.Message {
	out := make([]domain.Message, 0, len(contents))
	for _, c := range contents {
		out = append(out, domain.UserMessage(c))
	}
	return out
}

func contents(ms []domain.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Content)
	}
	return out
}

func TestMerge_AppendOrdering(t *testing.T) {
	state := &domain.TurnState{Messages: msgs("a", "b")}

	a1 := domain.Update{Append: msgs("c", "d")}
	a2 := domain.Update{Append: msgs("e")}

	next := domain.Merge(domain.Merge(state, a1), a2)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, contents(next.Messages))
	assert.Equal(t, []string{"a", "b"}, contents(state.Messages), "input state must not change")
}

func TestMerge_PruneMissingIDIsNoop(t *testing.T) {
	state := &domain.TurnState{Messages: msgs("a", "b", "c")}

	next := domain.Merge(state, domain.Update{Prune: []string{"does-not-exist"}})
	assert.Equal(t, state.Messages, next.Messages)

	id := state.Messages[1].ID
	once := domain.Merge(state, domain.Update{Prune: []string{id, id}})
	twice := domain.Merge(once, domain.Update{Prune: []string{id}})
	assert.Equal(t, []string{"a", "c"}, contents(once.Messages))
	assert.Equal(t, once.Messages, twice.Messages)
}

func TestMerge_AppendKeepsIDsUnique(t *testing.T) {
	state := &domain.TurnState{Messages: msgs("a")}
	dup := state.Messages[0]
	dup.Content = "changed"

	next := domain.Merge(state, domain.Update{Append: []domain.Message{dup, {Role: domain.RoleAssistant, Content: "new"}}})

	require.Len(t, next.Messages, 2)
	assert.Equal(t, "a", next.Messages[0].Content)
	assert.Equal(t, "new", next.Messages[1].Content)
	assert.NotEmpty(t, next.Messages[1].ID)
}

func TestMerge_OverwriteOnlySuppliedFields(t *testing.T) {
	state := &domain.TurnState{
		Workflow:      domain.WorkflowConversation,
		MemoryContext: "old context",
		Summary:       "old summary",
	}

	next := domain.Merge(state, domain.Update{Summary: domain.Ptr("new summary")})

	assert.Equal(t, "new summary", next.Summary)
	assert.Equal(t, "old context", next.MemoryContext)
	assert.Equal(t, domain.WorkflowConversation, next.Workflow)
	assert.Nil(t, next.Artifact)

	next = domain.Merge(next, domain.Update{
		Workflow:      domain.Ptr(domain.WorkflowAudio),
		MemoryContext: domain.Ptr(""),
		Artifact:      domain.NewAudioArtifact([]byte{1, 2}, "generated/audio/a.mp3"),
	})
	assert.Equal(t, domain.WorkflowAudio, next.Workflow)
	assert.Empty(t, next.MemoryContext)
	require.NotNil(t, next.Artifact)
	assert.Equal(t, domain.ArtifactAudio, next.Artifact.Kind)
}

func TestMerge_SummaryAndPruneInOneUpdate(t *testing.T) {
	state := &domain.TurnState{Messages: msgs("1", "2", "3", "4", "5", "6", "7")}

	next := domain.Merge(state, domain.Update{
		Summary: domain.Ptr("digest"),
		Prune:   domain.PruneAllBut(state.Messages, 5),
	})

	assert.Equal(t, "digest", next.Summary)
	assert.Equal(t, []string{"3", "4", "5", "6", "7"}, contents(next.Messages))
}

func TestPruneAllBut(t *testing.T) {
	ms := msgs("a", "b", "c")
	assert.Nil(t, domain.PruneAllBut(ms, 5))
	assert.Nil(t, domain.PruneAllBut(ms, 3))
	assert.Equal(t, []string{ms[0].ID}, domain.PruneAllBut(ms, 2))
	assert.Len(t, domain.PruneAllBut(ms, 0), 3)
}

func TestParseWorkflow(t *testing.T) {
	tests := []struct {
		label   string
		want    domain.Workflow
		wantErr bool
	}{
		{"conversation", domain.WorkflowConversation, false},
		{" Image ", domain.WorkflowImage, false},
		{"'audio'", domain.WorkflowAudio, false},
		{"Image", domain.WorkflowImage, false},
		{"AUDIO", domain.WorkflowAudio, false},
		{"\tconversation\n", domain.WorkflowConversation, false},
		{" Video ", domain.WorkflowUnset, true},
		{"   ", domain.WorkflowUnset, true},
		{"video", domain.WorkflowUnset, true},
		{"", domain.WorkflowUnset, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := domain.ParseWorkflow(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConversation_Advance(t *testing.T) {
	conv := domain.NewConversation("s1")
	state := domain.NewTurnState(conv)
	state = domain.Merge(state, domain.Update{
		Append:   msgs("hello"),
		Workflow: domain.Ptr(domain.WorkflowConversation),
		Summary:  domain.Ptr("s"),
	})

	next := conv.Advance(state, conv.CreatedAt)

	assert.Equal(t, 1, next.Turns)
	assert.Equal(t, "s", next.Summary)
	assert.Len(t, next.Messages, 1)
	assert.Empty(t, conv.Messages, "previous conversation is untouched")
}
