package llmprovider

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkAdapter adapts an eino chat model (Volcengine Ark) to the Provider interface
type ArkAdapter struct {
	chatModel model.ChatModel
	model     string
}

// ArkConfig configures the Ark backend
type ArkConfig struct {
	APIKey  string
	BaseURL string
	Region  string
	Model   string
}

// NewArkAdapter creates an Ark chat model and wraps it
func NewArkAdapter(ctx context.Context, cfg ArkConfig) (*ArkAdapter, error) {
	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, err
	}
	return newArkAdapter(cm, cfg.Model), nil
}

func newArkAdapter(cm model.ChatModel, modelName string) *ArkAdapter {
	return &ArkAdapter{chatModel: cm, model: modelName}
}

// GenerateContent implements Provider interface
func (a *ArkAdapter) GenerateContent(ctx context.Context, req *Request) (*Response, error) {
	var opts []model.Option
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	msg, err := a.chatModel.Generate(ctx, convertToSchemaMessages(req.Messages), opts...)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrEmptyResponse
	}

	usage := &Usage{}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		usage.InputTokens = msg.ResponseMeta.Usage.PromptTokens
		usage.OutputTokens = msg.ResponseMeta.Usage.CompletionTokens
		usage.TotalTokens = msg.ResponseMeta.Usage.TotalTokens
	}

	return &Response{
		Content:      Message{Role: RoleAssistant, Content: msg.Content},
		ProviderName: a.Name(),
		ModelName:    a.model,
		Usage:        usage,
	}, nil
}

// Name returns provider name
func (a *ArkAdapter) Name() string {
	return ProviderArk
}

// Model returns model name
func (a *ArkAdapter) Model() string {
	return a.model
}

func convertToSchemaMessages(msgs []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}
