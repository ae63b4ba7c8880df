package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"repairkb/internal/ai"
	"repairkb/internal/entity"
)

type fakeChat struct {
	result *ai.ChatResult
	err    error

	lastPrompt string
	calls      int
}

func (f *fakeChat) ProviderID() string { return "fake" }

func (f *fakeChat) Complete(ctx context.Context, prompt string) (*ai.ChatResult, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestAiService(repo *fakeRepo, chat *fakeChat, limit int) *AiService {
	svc := NewAiService(repo, chat, limit, time.UTC)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestDiagnoseDefaultsToDiagnosisType(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	chat := &fakeChat{result: &ai.ChatResult{Content: "可能是电源模块老化", TokensUsed: 256}}
	svc := newTestAiService(repo, chat, 10)

	resp, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{ReportID: report.ID})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if resp.AnalysisType != entity.AnalysisTypeDiagnosis {
		t.Fatalf("expected default type diagnosis, got %s", resp.AnalysisType)
	}
	if resp.Response != "可能是电源模块老化" || resp.TokensUsed != 256 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(chat.lastPrompt, report.DeviceName) {
		t.Fatalf("prompt should embed the device name: %s", chat.lastPrompt)
	}

	// 首次请求创建当日计数
	usage, err := repo.GetUsageLog(context.Background(), 7, "2025-03-15")
	if err != nil {
		t.Fatalf("expected usage log: %v", err)
	}
	if usage.RequestCount != 1 {
		t.Fatalf("expected request count 1, got %d", usage.RequestCount)
	}
}

func TestDiagnoseRejectsInvalidType(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	svc := newTestAiService(repo, &fakeChat{}, 10)

	_, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{
		ReportID:     report.ID,
		AnalysisType: "prediction",
	})
	if !errors.Is(err, ErrInvalidAnalysisType) {
		t.Fatalf("expected ErrInvalidAnalysisType, got %v", err)
	}
}

func TestDiagnoseReportNotFound(t *testing.T) {
	repo := newFakeRepo()
	chat := &fakeChat{}
	svc := newTestAiService(repo, chat, 10)

	_, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{ReportID: 404})
	if !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if chat.calls != 0 {
		t.Fatal("provider must not be called for missing report")
	}
}

func TestDiagnoseQuotaExceeded(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	repo.usageLogs[1] = &entity.DbAiUsageLog{
		ID:           1,
		UserID:       7,
		UsageDate:    "2025-03-15",
		RequestCount: 10,
	}
	chat := &fakeChat{result: &ai.ChatResult{Content: "x"}}
	svc := newTestAiService(repo, chat, 10)

	_, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{ReportID: report.ID})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if chat.calls != 0 {
		t.Fatal("provider must not be called once quota is exhausted")
	}
	if len(repo.analyses) != 0 {
		t.Fatal("rejected request must not persist an analysis")
	}
	if repo.usageLogs[1].RequestCount != 10 {
		t.Fatal("rejected request must not bump the counter")
	}
}

func TestDiagnoseQuotaBelowLimitPasses(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	repo.usageLogs[1] = &entity.DbAiUsageLog{
		ID:           1,
		UserID:       7,
		UsageDate:    "2025-03-15",
		RequestCount: 9,
	}
	chat := &fakeChat{result: &ai.ChatResult{Content: "ok", TokensUsed: 50}}
	svc := newTestAiService(repo, chat, 10)

	if _, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{ReportID: report.ID}); err != nil {
		t.Fatalf("Diagnose at count 9 must pass: %v", err)
	}
	if repo.usageLogs[1].RequestCount != 10 {
		t.Fatalf("expected counter 10, got %d", repo.usageLogs[1].RequestCount)
	}
}

func TestDiagnoseProviderFailureLeavesNoTrace(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	chat := &fakeChat{err: errors.New("upstream timeout")}
	svc := newTestAiService(repo, chat, 10)

	_, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{ReportID: report.ID})
	if err == nil {
		t.Fatal("expected provider error to propagate")
	}
	if len(repo.analyses) != 0 {
		t.Fatal("failed completion must not persist an analysis")
	}
	if len(repo.usageLogs) != 0 {
		t.Fatal("failed completion must not consume quota")
	}
}

func TestDiagnoseCustomPromptOverridesTemplate(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	chat := &fakeChat{result: &ai.ChatResult{Content: "ok"}}
	svc := newTestAiService(repo, chat, 10)

	_, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{
		ReportID:     report.ID,
		AnalysisType: entity.AnalysisTypeSummary,
		CustomPrompt: "只回答：是否需要更换电源？",
	})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if chat.lastPrompt != "只回答：是否需要更换电源？" {
		t.Fatalf("custom prompt must override template, got %s", chat.lastPrompt)
	}
}

func TestDiagnoseUsageCreateRaceFallsBackToIncrement(t *testing.T) {
	repo := newFakeRepo()
	report := repo.addReport()
	repo.failCreateUsage = true
	chat := &fakeChat{result: &ai.ChatResult{Content: "ok"}}
	svc := newTestAiService(repo, chat, 10)

	// 并发插入失败且查不到已有行时，分析结果仍然返回
	resp, err := svc.Diagnose(context.Background(), 7, entity.DiagnoseRequest{ReportID: report.ID})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if resp.Response != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(repo.analyses) != 1 {
		t.Fatal("analysis must persist even when the counter write fails")
	}
}

func TestUsageAggregates(t *testing.T) {
	repo := newFakeRepo()
	repo.usageLogs[1] = &entity.DbAiUsageLog{ID: 1, UserID: 7, UsageDate: "2025-03-14", RequestCount: 3}
	repo.usageLogs[2] = &entity.DbAiUsageLog{ID: 2, UserID: 7, UsageDate: "2025-03-15", RequestCount: 5}
	repo.usageLogs[3] = &entity.DbAiUsageLog{ID: 3, UserID: 8, UsageDate: "2025-03-15", RequestCount: 9}
	svc := newTestAiService(repo, &fakeChat{}, 10)

	resp, err := svc.Usage(context.Background(), 7, &entity.UsageQuery{})
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if len(resp.Usage) != 2 {
		t.Fatalf("expected 2 usage rows, got %d", len(resp.Usage))
	}
	if resp.TotalRequests != 8 {
		t.Fatalf("expected total 8, got %d", resp.TotalRequests)
	}

	resp, err = svc.Usage(context.Background(), 7, &entity.UsageQuery{StartDate: "2025-03-15"})
	if err != nil {
		t.Fatalf("Usage with range: %v", err)
	}
	if len(resp.Usage) != 1 || resp.TotalRequests != 5 {
		t.Fatalf("unexpected filtered usage: %+v", resp)
	}
}

func TestBuildPromptPerType(t *testing.T) {
	report := &entity.DbReport{
		DeviceName:    "注塑机3号",
		FaultCategory: "电气故障",
		Description:   "开机后控制面板无显示",
	}

	cases := []struct {
		analysisType string
		want         string
	}{
		{entity.AnalysisTypeSummary, "生成一个简洁的摘要"},
		{entity.AnalysisTypeDiagnosis, "故障原因分析"},
		{entity.AnalysisTypeSolution, "解决方案建议"},
	}
	for _, tc := range cases {
		prompt := buildPrompt(tc.analysisType, "", report)
		if !strings.Contains(prompt, tc.want) {
			t.Errorf("%s prompt missing %q: %s", tc.analysisType, tc.want, prompt)
		}
		if !strings.Contains(prompt, report.DeviceName) {
			t.Errorf("%s prompt missing device name", tc.analysisType)
		}
	}
}
