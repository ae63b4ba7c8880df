package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repairkb/internal/config"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	arkModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

//文档:https://www.volcengine.com/docs/82379/1298454

// Ark 通过火山方舟 SDK 调用豆包系列对话模型。
type Ark struct {
	client *arkruntime.Client
	model  string
}

func NewArk(cfg config.Config) (*Ark, error) {
	if strings.TrimSpace(cfg.ArkAPIKey) == "" {
		return nil, errors.New("ark api key is not configured")
	}
	if strings.TrimSpace(cfg.AIModel) == "" {
		return nil, errors.New("ark requires AI_MODEL to be configured")
	}

	timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Ark{
		client: arkruntime.NewClientWithApiKey(cfg.ArkAPIKey, arkruntime.WithTimeout(timeout)),
		model:  strings.TrimSpace(cfg.AIModel),
	}, nil
}

func (a *Ark) ProviderID() string {
	return ProviderArk
}

func (a *Ark) Complete(ctx context.Context, prompt string) (*ChatResult, error) {
	req := arkModel.CreateChatCompletionRequest{
		Model: a.model,
		Messages: []*arkModel.ChatCompletionMessage{
			{
				Role: arkModel.ChatMessageRoleUser,
				Content: &arkModel.ChatCompletionMessageContent{
					StringValue: volcengine.String(prompt),
				},
			},
		},
		Temperature: volcengine.Float32(0.7),
		MaxTokens:   volcengine.Int(2000),
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ark chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil ||
		resp.Choices[0].Message.Content.StringValue == nil {
		return nil, errors.New("ark returned empty completion")
	}

	content := strings.TrimSpace(*resp.Choices[0].Message.Content.StringValue)
	if content == "" {
		return nil, errors.New("ark returned empty completion")
	}

	return &ChatResult{
		Content:    content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
