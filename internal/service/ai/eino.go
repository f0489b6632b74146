package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"aurorachat/internal/config"
	"aurorachat/internal/models"
)

// einoProvider adapts an eino chat model to Provider.
type einoProvider struct {
	name         string
	model        string
	chatModel    model.BaseChatModel
	systemPrompt string
}

func newEinoProvider(ctx context.Context, provider string, provCfg config.ProviderConfig, systemPrompt string, client *http.Client) (*einoProvider, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)

	switch provider {
	case config.ProviderOpenAI:
		modelCfg := &openai.ChatModelConfig{
			BaseURL:    provCfg.BaseURL,
			Model:      provCfg.Model,
			APIKey:     provCfg.APIKey,
			HTTPClient: client,
		}
		if provCfg.MaxTokens > 0 {
			maxTokens := provCfg.MaxTokens
			modelCfg.MaxTokens = &maxTokens
		}
		chatModel, err = openai.NewChatModel(ctx, modelCfg)
	case config.ProviderGemini:
		clientCfg := &genai.ClientConfig{
			APIKey:     provCfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: client,
		}
		if provCfg.BaseURL != "" {
			clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: provCfg.BaseURL}
		}
		genaiClient, cerr := genai.NewClient(ctx, clientCfg)
		if cerr != nil {
			return nil, fmt.Errorf("new gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: genaiClient,
			Model:  provCfg.Model,
		})
	case config.ProviderClaude:
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		maxTokens := provCfg.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 1024
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:     provCfg.APIKey,
			Model:      provCfg.Model,
			BaseURL:    baseURLPtr,
			MaxTokens:  maxTokens,
			HTTPClient: client,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &einoProvider{
		name:         provider,
		model:        provCfg.Model,
		chatModel:    chatModel,
		systemPrompt: systemPrompt,
	}, nil
}

func (p *einoProvider) Name() string  { return p.name }
func (p *einoProvider) Model() string { return p.model }

func (p *einoProvider) Complete(ctx context.Context, prompt string) (string, error) {
	probe := &statusProbe{}
	ctx = withStatusProbe(ctx, probe)

	msg, err := p.chatModel.Generate(ctx, buildTurn(p.systemPrompt, prompt, toSchemaMessage))
	if err != nil {
		if code := probe.status(); code != 0 {
			return "", &StatusError{Provider: p.name, Code: code, Body: err.Error()}
		}
		return "", fmt.Errorf("%s generate: %w", p.name, err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func toSchemaMessage(role models.Role, content string) *schema.Message {
	switch role {
	case models.RoleSystem:
		return schema.SystemMessage(content)
	case models.RoleAssistant:
		return schema.AssistantMessage(content, nil)
	default:
		return schema.UserMessage(content)
	}
}
