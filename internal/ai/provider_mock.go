package ai

import "context"

const mockResponse = "【模拟分析】未配置AI服务，以下为占位结论：\n" +
	"1. 根据描述，建议先检查设备供电与连接线缆；\n" +
	"2. 若故障仍存在，依次排查易损部件与固件版本；\n" +
	"3. 记录每一步操作结果，便于后续人工复核。"

// Mock 返回固定文本，用于本地开发与测试。
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) ProviderID() string {
	return ProviderMock
}

func (m *Mock) Complete(ctx context.Context, prompt string) (*ChatResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ChatResult{
		Content:    mockResponse,
		TokensUsed: len([]rune(prompt))/4 + 100,
	}, nil
}
