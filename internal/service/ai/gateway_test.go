package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"metutor/internal/models"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	mu       sync.Mutex
	reply    *schema.Message
	err      error
	inputs   [][]*schema.Message
	options  []*model.Options
	boundTo  []*schema.ToolInfo
	generate int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generate++
	f.inputs = append(f.inputs, input)
	f.options = append(f.options, model.GetCommonOptions(&model.Options{}, opts...))
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	f.mu.Lock()
	f.boundTo = tools
	f.mu.Unlock()
	return f, nil
}

type fakeTool struct {
	name   string
	result string
	err    error
	calls  []string
}

func (t *fakeTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.name,
		Desc: "test tool",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {Type: schema.String, Required: true},
		}),
	}, nil
}

func (t *fakeTool) InvokableRun(_ context.Context, args string, _ ...tool.Option) (string, error) {
	t.calls = append(t.calls, args)
	return t.result, t.err
}

func newTestGateway(t *testing.T, chat *fakeChatModel, tools ...tool.BaseTool) *Gateway {
	t.Helper()
	g, err := NewGateway(context.Background(), chat, GatewayOptions{
		Provider:    "openai",
		Model:       "gpt-test",
		VisionModel: "vision-test",
		Tools:       tools,
	})
	require.NoError(t, err)
	return g
}

func TestCompleteSendsPromptAndOptions(t *testing.T) {
	chat := &fakeChatModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "Stress is force per unit area.",
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens: 12, CompletionTokens: 8, TotalTokens: 20,
		}},
	}}
	g := newTestGateway(t, chat)

	out, err := g.Complete(context.Background(),
		models.Prompt{System: "You are a tutor.", User: "What is stress?"},
		models.CompletionOptions{Temperature: 0.2, MaxTokens: 3000},
	)
	require.NoError(t, err)
	assert.Equal(t, "Stress is force per unit area.", out.Text)
	require.NotNil(t, out.Usage)
	assert.Equal(t, 20, out.Usage.TotalTokens)

	require.Len(t, chat.inputs, 1)
	msgs := chat.inputs[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "You are a tutor.", msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, "What is stress?", msgs[1].Content)

	opts := chat.options[0]
	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.2, *opts.Temperature, 1e-6)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 3000, *opts.MaxTokens)
	assert.Nil(t, opts.Model)
}

func TestCompleteWithoutSystemSendsOnlyUser(t *testing.T) {
	chat := &fakeChatModel{reply: schema.AssistantMessage("ok", nil)}
	g := newTestGateway(t, chat)

	out, err := g.Complete(context.Background(), models.Prompt{User: "analyze"}, models.CompletionOptions{})
	require.NoError(t, err)
	assert.Nil(t, out.Usage)
	require.Len(t, chat.inputs[0], 1)
	assert.Equal(t, schema.User, chat.inputs[0][0].Role)
}

func TestCompleteWrapsProviderError(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("429 too many requests")}
	g := newTestGateway(t, chat)

	_, err := g.Complete(context.Background(), models.Prompt{User: "hi"}, models.CompletionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "429")
}

func TestCompleteRejectsEmptyReply(t *testing.T) {
	chat := &fakeChatModel{reply: schema.AssistantMessage("   ", nil)}
	g := newTestGateway(t, chat)

	_, err := g.Complete(context.Background(), models.Prompt{User: "hi"}, models.CompletionOptions{})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestRepeatedCompletionsAreIndependent(t *testing.T) {
	chat := &fakeChatModel{reply: schema.AssistantMessage("answer", nil)}
	g := newTestGateway(t, chat)

	prompt := models.Prompt{System: "sys", User: "same question"}
	for i := 0; i < 2; i++ {
		_, err := g.Complete(context.Background(), prompt, models.CompletionOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, chat.generate)
	assert.Len(t, chat.inputs[1], 2, "no history carried into the second call")
}

func TestDescribeImageSendsDataURL(t *testing.T) {
	chat := &fakeChatModel{reply: schema.AssistantMessage("A free body diagram.", nil)}
	g := newTestGateway(t, chat)

	text, err := g.DescribeImage(context.Background(), "Describe it.", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "A free body diagram.", text)

	msg := chat.inputs[0][0]
	require.Len(t, msg.MultiContent, 2)
	assert.Equal(t, "Describe it.", msg.MultiContent[0].Text)
	require.NotNil(t, msg.MultiContent[1].ImageURL)
	assert.True(t, strings.HasPrefix(msg.MultiContent[1].ImageURL.URL, "data:image/png;base64,"))

	opts := chat.options[0]
	require.NotNil(t, opts.Model)
	assert.Equal(t, "vision-test", *opts.Model)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, visionMaxTokens, *opts.MaxTokens)
}

func TestCompleteUsesAgentOnlyWhenRequested(t *testing.T) {
	chat := &fakeChatModel{reply: schema.AssistantMessage("from model", nil)}
	search := &fakeTool{name: "web_search", result: "results"}
	g := newTestGateway(t, chat, search)
	require.NotNil(t, g.agent)

	out, err := g.Complete(context.Background(), models.Prompt{User: "latest ASME code?"}, models.CompletionOptions{UseTools: true})
	require.NoError(t, err)
	assert.Equal(t, "from model", out.Text)

	out, err = g.Complete(context.Background(), models.Prompt{User: "plain"}, models.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from model", out.Text)
	assert.Equal(t, 2, chat.generate)
	assert.Empty(t, search.calls)
}

func TestNewGatewayRequiresModel(t *testing.T) {
	_, err := NewGateway(context.Background(), nil, GatewayOptions{})
	require.Error(t, err)
}
