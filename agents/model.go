package agents

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/util/ptr"
	"github.com/curtisnewbie/miso/util/retry"
)

var (
	DeepseekBaseURL       = "https://api.deepseek.com/v1"
	OpenAIBaseURL         = "https://api.openai.com/v1"
	AliBailianIntlBaseURL = "https://dashscope-intl.aliyuncs.com/compatible-mode/v1"
	AliBailianCnBaseURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

type openAiModelConfig struct {
	maxToken    int
	temperature *float32
	baseURL     string
	retry       int
	httpClient  *http.Client
	tags        []string
}

type OpenAIModelOpFunc func(o *openAiModelConfig)

func WithTemperature(n float32) OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.temperature = ptr.ValPtr(n)
	}
}

// Reasoning models (e.g., o3-mini) reject temperature.
func WithReasoning() OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.temperature = nil
	}
}

func WithMaxToken(n int) OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.maxToken = n
	}
}

// Leave temperature and max completion tokens unset, the provider's defaults apply.
func WithProviderDefaults() OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.temperature = nil
		o.maxToken = 0
	}
}

func WithRetry(n int) OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.retry = n
	}
}

func WithBaseURL(url string) OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		if url != "" {
			o.baseURL = url
		}
	}
}

func WithHTTPClient(c *http.Client) OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.httpClient = c
	}
}

func WithTags(tags ...string) OpenAIModelOpFunc {
	return func(o *openAiModelConfig) {
		o.tags = append(o.tags, tags...)
	}
}

func NewOpenAIChatModel(name, apiKey string, ops ...OpenAIModelOpFunc) (model.ToolCallingChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errs.NewErrf("openai model %v: missing API key", name)
	}

	o := newOpenAIModelConfig(ops...)
	mc := &openai.ChatModelConfig{
		BaseURL:     o.baseURL,
		APIKey:      apiKey,
		Model:       name,
		Temperature: o.temperature,
		HTTPClient:  o.httpClient,
	}
	if o.maxToken > 0 {
		mc.MaxCompletionTokens = ptr.ValPtr(o.maxToken)
	}

	oc, err := openai.NewChatModel(context.TODO(), mc)
	if err != nil {
		return nil, errs.Wrapf(err, "openai model %v", name)
	}

	var cm model.ToolCallingChatModel = oc

	// wrap with retry
	if o.retry > 0 {
		cm = &retryChatModel{
			retry: o.retry,
			c:     cm,
		}
	}
	if len(o.tags) > 0 {
		cm = TagChatModel(cm, o.tags...)
	}
	return cm, nil
}

func newOpenAIModelConfig(ops ...OpenAIModelOpFunc) *openAiModelConfig {
	o := &openAiModelConfig{
		maxToken:    4096,
		temperature: ptr.ValPtr(float32(0.7)),
		baseURL:     OpenAIBaseURL,
		retry:       0,
	}
	for _, op := range ops {
		op(o)
	}
	return o
}

type retryChatModel struct {
	retry int
	c     model.ToolCallingChatModel
}

func (r *retryChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return retry.GetOne(r.retry, func() (*schema.Message, error) {
		return r.c.Generate(ctx, input, opts...)
	})
}

func (r *retryChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return retry.GetOne(r.retry, func() (*schema.StreamReader[*schema.Message], error) {
		return r.c.Stream(ctx, input, opts...)
	})
}

func (r *retryChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	c, err := r.c.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &retryChatModel{retry: r.retry, c: c}, nil
}

func (r *retryChatModel) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(r.c)
}

func RetryChatModel(c model.ToolCallingChatModel) model.ToolCallingChatModel {
	return &retryChatModel{
		c:     c,
		retry: 3,
	}
}

type modelTagsKey struct{}

// taggedChatModel carries tags into the context of every call, callbacks triggered by the underlying model can read
// them with [ModelTags].
type taggedChatModel struct {
	c    model.ToolCallingChatModel
	tags []string
}

func (t *taggedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return t.c.Generate(context.WithValue(ctx, modelTagsKey{}, t.tags), input, opts...)
}

func (t *taggedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return t.c.Stream(context.WithValue(ctx, modelTagsKey{}, t.tags), input, opts...)
}

func (t *taggedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	c, err := t.c.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &taggedChatModel{c: c, tags: t.tags}, nil
}

func (t *taggedChatModel) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(t.c)
}

// Tag chat model, tags are appended to the ones c already has.
func TagChatModel(c model.ToolCallingChatModel, tags ...string) model.ToolCallingChatModel {
	if tc, ok := c.(*taggedChatModel); ok {
		merged := make([]string, 0, len(tc.tags)+len(tags))
		merged = append(merged, tc.tags...)
		merged = append(merged, tags...)
		return &taggedChatModel{c: tc.c, tags: merged}
	}
	return &taggedChatModel{c: c, tags: tags}
}

// Tags of the chat model.
func ChatModelTags(c model.ToolCallingChatModel) []string {
	if tc, ok := c.(*taggedChatModel); ok {
		return tc.tags
	}
	return nil
}

// Tags of the model that is currently being called.
func ModelTags(ctx context.Context) []string {
	if v, ok := ctx.Value(modelTagsKey{}).([]string); ok {
		return v
	}
	return nil
}
