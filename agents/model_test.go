package agents

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIChatModel(t *testing.T) {
	_, err := NewOpenAIChatModel("gpt-4.1", "")
	assert.ErrorContains(t, err, "missing API key")

	_, err = NewOpenAIChatModel("gpt-4.1", "   ")
	assert.Error(t, err)

	cm, err := NewOpenAIChatModel("gpt-4.1", "sk-test")
	require.NoError(t, err)
	assert.NotNil(t, cm)
	assert.Empty(t, ChatModelTags(cm))

	cm, err = NewOpenAIChatModel("o3-mini-2025-01-31", "sk-test", WithReasoning(), WithRetry(2), WithTags("reasoning"))
	require.NoError(t, err)
	assert.Equal(t, []string{"reasoning"}, ChatModelTags(cm))
}

func TestTagChatModel(t *testing.T) {
	f := &fakeChatModel{}
	cm := TagChatModel(TagChatModel(f, "a"), "b")
	assert.Equal(t, []string{"a", "b"}, ChatModelTags(cm))

	_, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.tags[0])

	// tags survive binding tools
	bound, err := cm.WithTools([]*schema.ToolInfo{{Name: "tavily_search"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ChatModelTags(bound))

	assert.Empty(t, ModelTags(context.Background()))
}

func TestRetryChatModelWithTools(t *testing.T) {
	cm := RetryChatModel(&fakeChatModel{})
	bound, err := cm.WithTools(nil)
	require.NoError(t, err)
	_, ok := bound.(*retryChatModel)
	assert.True(t, ok)
}

func TestOpenAIModelConfigDefaults(t *testing.T) {
	o := newOpenAIModelConfig()
	require.NotNil(t, o.temperature)
	assert.Equal(t, float32(0.7), *o.temperature)
	assert.Equal(t, 4096, o.maxToken)

	o = newOpenAIModelConfig(WithProviderDefaults())
	assert.Nil(t, o.temperature)
	assert.Equal(t, 0, o.maxToken)

	// options after WithProviderDefaults still apply
	o = newOpenAIModelConfig(WithProviderDefaults(), WithMaxToken(500))
	assert.Nil(t, o.temperature)
	assert.Equal(t, 500, o.maxToken)
}
