package ai

import "context"

// ChatResult 是一次补全调用的结果。
type ChatResult struct {
	Content    string
	TokensUsed int
}

// ChatService 抽象文本补全提供商。
type ChatService interface {
	ProviderID() string
	Complete(ctx context.Context, prompt string) (*ChatResult, error)
}
