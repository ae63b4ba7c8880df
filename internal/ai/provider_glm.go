package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repairkb/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	glmDefaultBaseURL = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	glmDefaultModel   = "glm-4"
)

type glmMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type glmChatRequest struct {
	Model       string       `json:"model"`
	Messages    []glmMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type glmChatResponse struct {
	Choices []struct {
		Message      glmMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GLM 通过 OpenAI 兼容协议调用智谱开放平台。
type GLM struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewGLM(cfg config.Config) (*GLM, error) {
	if strings.TrimSpace(cfg.GLMAPIKey) == "" {
		return nil, errors.New("glm api key is not configured")
	}

	baseURL := strings.TrimSpace(cfg.GLMBaseURL)
	if baseURL == "" {
		baseURL = glmDefaultBaseURL
	}
	model := strings.TrimSpace(cfg.AIModel)
	if model == "" {
		model = glmDefaultModel
	}
	timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GLM{
		apiKey:  cfg.GLMAPIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *GLM) ProviderID() string {
	return ProviderGLM
}

func (g *GLM) Complete(ctx context.Context, prompt string) (*ChatResult, error) {
	reqBody := glmChatRequest{
		Model:       g.model,
		Messages:    []glmMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   2000,
	}

	bs, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   buf.String(),
		}).Error("glm chat completion failed")
		return nil, fmt.Errorf("glm http %d: %s", resp.StatusCode, buf.String())
	}

	var chat glmChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, err
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("glm error %s: %s", chat.Error.Code, chat.Error.Message)
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return nil, errors.New("glm returned empty completion")
	}

	return &ChatResult{
		Content:    strings.TrimSpace(chat.Choices[0].Message.Content),
		TokensUsed: chat.Usage.TotalTokens,
	}, nil
}
