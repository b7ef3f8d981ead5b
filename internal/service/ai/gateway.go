package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"metutor/internal/config"
	"metutor/internal/models"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrUpstream marks failures of the external AI services.
var ErrUpstream = errors.New("upstream AI service failed")

const (
	visionMaxTokens   = 2000
	claudeMaxTokens   = 3000
	defaultVisionMime = "image/png"
)

// Gateway sends composed prompts to the configured chat model.
type Gateway struct {
	chat        model.ToolCallingChatModel
	agent       *react.Agent
	visionModel string
	provider    string
	model       string
}

// GatewayOptions tune a Gateway built around an existing chat model.
type GatewayOptions struct {
	Provider    string
	Model       string
	VisionModel string
	// Tools enables the react agent for requests that ask for it.
	Tools []tool.BaseTool
}

// NewGateway wraps chat. When tools are given a react agent is prepared as well.
func NewGateway(ctx context.Context, chat model.ToolCallingChatModel, opts GatewayOptions) (*Gateway, error) {
	if chat == nil {
		return nil, errors.New("chat model required")
	}
	g := &Gateway{
		chat:        chat,
		visionModel: opts.VisionModel,
		provider:    opts.Provider,
		model:       opts.Model,
	}
	if len(opts.Tools) > 0 {
		reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chat,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: opts.Tools,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("init react agent: %w", err)
		}
		g.agent = reactAgent
	}
	return g, nil
}

// NewGatewayFromConfig builds the provider chat model and, when enabled, the web search tool.
func NewGatewayFromConfig(ctx context.Context, cfg *config.Config) (*Gateway, error) {
	provCfg := cfg.Provider()
	chat, err := newChatModel(ctx, cfg.LLM.Provider, provCfg)
	if err != nil {
		return nil, err
	}

	var tools []tool.BaseTool
	if cfg.Tools.WebSearch {
		ws, err := NewWebSearchTool(ctx, cfg.Tools)
		if err != nil {
			log.Warn().Err(err).Msg("web search tool disabled")
		} else {
			tools = append(tools, ws)
		}
	}

	return NewGateway(ctx, chat, GatewayOptions{
		Provider:    cfg.LLM.Provider,
		Model:       provCfg.Model,
		VisionModel: cfg.LLM.VisionModel,
		Tools:       tools,
	})
}

func newChatModel(ctx context.Context, provider string, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	var (
		chatModel model.ToolCallingChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, cerr := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("init gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: claudeMaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return chatModel, nil
}

// Provider names the configured provider.
func (g *Gateway) Provider() string { return g.provider }

// Model names the default completion model.
func (g *Gateway) Model() string { return g.model }

// Complete sends one system/user exchange. Nothing is remembered between calls.
func (g *Gateway) Complete(ctx context.Context, prompt models.Prompt, opts models.CompletionOptions) (*models.Completion, error) {
	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(prompt.System) != "" {
		msgs = append(msgs, schema.SystemMessage(prompt.System))
	}
	msgs = append(msgs, schema.UserMessage(prompt.User))

	callOpts := modelOptions(opts)
	var (
		resp *schema.Message
		err  error
	)
	if opts.UseTools && g.agent != nil {
		resp, err = g.agent.Generate(ctx, msgs, agent.WithComposeOptions(compose.WithChatModelOption(callOpts...)))
	} else {
		resp, err = g.chat.Generate(ctx, msgs, callOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %w", ErrUpstream, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return &models.Completion{Text: resp.Content, Usage: usageOf(resp)}, nil
}

// DescribeImage asks the vision model to describe an image given inline as a data URL.
func (g *Gateway) DescribeImage(ctx context.Context, instruction, mimeType string, data []byte) (string, error) {
	if mimeType == "" {
		mimeType = defaultVisionMime
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: instruction},
			{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: dataURL}},
		},
	}

	resp, err := g.chat.Generate(ctx, []*schema.Message{msg}, modelOptions(models.CompletionOptions{
		MaxTokens: visionMaxTokens,
		Model:     g.visionModel,
	})...)
	if err != nil {
		return "", fmt.Errorf("%w: describe image: %w", ErrUpstream, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty image description", ErrUpstream)
	}
	return resp.Content, nil
}

func modelOptions(opts models.CompletionOptions) []model.Option {
	var out []model.Option
	if opts.Temperature > 0 {
		out = append(out, model.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxTokens))
	}
	if opts.Model != "" {
		out = append(out, model.WithModel(opts.Model))
	}
	return out
}

func usageOf(msg *schema.Message) *models.Usage {
	if msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return nil
	}
	u := msg.ResponseMeta.Usage
	return &models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
