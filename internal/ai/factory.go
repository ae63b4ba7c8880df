package ai

import (
	"fmt"
	"strings"

	"repairkb/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	ProviderMock = "mock"
	ProviderGLM  = "glm"
	ProviderArk  = "ark"
)

// NewChatService 根据配置创建对应的补全服务实现。
func NewChatService(cfg config.Config) (ChatService, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	if provider == "" {
		provider = ProviderMock
	}

	switch provider {
	case ProviderMock:
		logrus.Warn("ai provider is mock, responses are canned")
		return NewMock(), nil
	case ProviderGLM:
		return NewGLM(cfg)
	case ProviderArk:
		return NewArk(cfg)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.AIProvider)
	}
}
