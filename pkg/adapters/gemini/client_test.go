package gemini

import (
	"context"
	"testing"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/aretw0/companion/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestToContents_MapsRoles(t *testing.T) {
	contents := toContents([]domain.Message{
		domain.UserMessage("hi"),
		domain.AssistantMessage("hello!"),
	})
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "hello!", contents[1].Parts[0].Text)
}

func TestToSchema(t *testing.T) {
	s := toSchema(&ports.Schema{
		Name: "router_decision",
		Properties: map[string]map[string]any{
			"response_type": {"type": "string", "enum": []string{"conversation", "image", "audio"}, "description": "kind"},
			"is_important":  {"type": "boolean"},
		},
		Required: []string{"response_type"},
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"response_type"}, s.Required)
	require.Contains(t, s.Properties, "response_type")
	assert.Equal(t, genai.TypeString, s.Properties["response_type"].Type)
	assert.Equal(t, []string{"conversation", "image", "audio"}, s.Properties["response_type"].Enum)
	assert.Equal(t, "kind", s.Properties["response_type"].Description)
	assert.Equal(t, genai.TypeBoolean, s.Properties["is_important"].Type)
}
