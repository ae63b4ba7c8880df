package service

import (
	"context"
	"errors"

	"repairkb/internal/entity"
	"repairkb/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportService 维修报告服务，负责报告与标签计数之间的同步
type ReportService struct {
	repo model.Repository
}

// NewReportService 创建报告服务实例
func NewReportService(repo model.Repository) *ReportService {
	return &ReportService{repo: repo}
}

// CreateReport 创建报告并递增其引用标签的使用计数。
// 计数更新是尽力而为的：失败只记日志，不回滚已写入的报告。
func (s *ReportService) CreateReport(ctx context.Context, authorID uint, reporter string, req entity.ReportCreateRequest) (*entity.DbReport, error) {
	tagIDs := normalizeTagIDs(req.FaultTagIDs)
	if err := s.validateTagIDs(ctx, tagIDs); err != nil {
		return nil, err
	}

	report := &entity.DbReport{
		Reporter:        reporter,
		DeviceName:      req.DeviceName,
		FaultCategory:   req.FaultCategory,
		FaultTagIDs:     entity.UintArray(tagIDs),
		DurationMinutes: req.DurationMinutes,
		Description:     req.Description,
		Attachments:     entity.StringArray(req.Attachments),
		AuthorID:        authorID,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.adjustUsage(ctx, report.ID, tagIDs, 1)
	return report, nil
}

// UpdateReport 更新报告，并按标签集合差异同步使用计数。
func (s *ReportService) UpdateReport(ctx context.Context, id uint, req entity.ReportUpdateRequest) (*entity.DbReport, error) {
	existing, err := s.repo.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	tagIDs := normalizeTagIDs(req.FaultTagIDs)
	if err := s.validateTagIDs(ctx, tagIDs); err != nil {
		return nil, err
	}

	newTags := entity.UintArray(tagIDs)
	newAttachments := entity.StringArray(req.Attachments)
	updates := entity.ReportUpdates{
		DeviceName:      &req.DeviceName,
		FaultCategory:   &req.FaultCategory,
		FaultTagIDs:     &newTags,
		DurationMinutes: req.DurationMinutes,
		Description:     &req.Description,
		Attachments:     &newAttachments,
	}
	if err := s.repo.UpdateReport(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	toAdd, toRemove := diffTagIDs(existing.FaultTagIDs.ToSlice(), tagIDs)
	s.adjustUsage(ctx, id, toAdd, 1)
	s.adjustUsage(ctx, id, toRemove, -1)

	return s.repo.GetReport(ctx, id)
}

// DeleteReport 软删除报告并释放其标签引用。
func (s *ReportService) DeleteReport(ctx context.Context, id uint) error {
	existing, err := s.repo.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		return err
	}

	if err := s.repo.SoftDeleteReport(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReportNotFound
		}
		return err
	}

	s.adjustUsage(ctx, id, existing.FaultTagIDs.ToSlice(), -1)
	return nil
}

// GetReportDetail 返回报告详情，附带标签与AI分析历史。
func (s *ReportService) GetReportDetail(ctx context.Context, id uint) (*entity.ReportDetail, error) {
	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	tags, err := s.hydrateTags(ctx, report.FaultTagIDs.ToSlice())
	if err != nil {
		return nil, err
	}

	analyses, err := s.repo.ListAnalysesByReport(ctx, id)
	if err != nil {
		return nil, err
	}
	summaries := make([]entity.AnalysisSummary, 0, len(analyses))
	for _, a := range analyses {
		summaries = append(summaries, entity.AnalysisSummary{
			ID:           a.ID,
			ReportID:     a.ReportID,
			AnalysisType: a.AnalysisType,
			TokensUsed:   a.TokensUsed,
			CreatedAt:    a.CreatedAt,
		})
	}

	return &entity.ReportDetail{
		DbReport:   *report,
		Tags:       tags,
		AiAnalyses: summaries,
	}, nil
}

// ListReports 返回报告列表，批量解析标签信息避免逐行查询。
func (s *ReportService) ListReports(ctx context.Context, params *entity.ReportQuery) ([]entity.ReportListItem, entity.Pagination, error) {
	reports, pagination, err := s.repo.ListReports(ctx, params)
	if err != nil {
		return nil, entity.Pagination{}, err
	}

	idSet := make(map[uint]struct{})
	for _, report := range reports {
		for _, tagID := range report.FaultTagIDs {
			idSet[tagID] = struct{}{}
		}
	}
	allIDs := make([]uint, 0, len(idSet))
	for id := range idSet {
		allIDs = append(allIDs, id)
	}

	tagByID := make(map[uint]entity.TagSummary, len(allIDs))
	if len(allIDs) > 0 {
		tags, err := s.repo.FindTagsByIDs(ctx, allIDs)
		if err != nil {
			return nil, entity.Pagination{}, err
		}
		for _, tag := range tags {
			tagByID[tag.ID] = entity.TagSummary{ID: tag.ID, Name: tag.Name, Color: tag.Color}
		}
	}

	items := make([]entity.ReportListItem, 0, len(reports))
	for _, report := range reports {
		item := entity.ReportListItem{
			ID:              report.ID,
			DeviceName:      report.DeviceName,
			FaultCategory:   report.FaultCategory,
			FaultTagIDs:     report.FaultTagIDs.ToSlice(),
			Tags:            make([]entity.TagSummary, 0, len(report.FaultTagIDs)),
			DurationMinutes: report.DurationMinutes,
			Reporter:        report.Reporter,
			AuthorID:        report.AuthorID,
			CreatedAt:       report.CreatedAt,
		}
		for _, tagID := range report.FaultTagIDs {
			if summary, ok := tagByID[tagID]; ok {
				item.Tags = append(item.Tags, summary)
			}
		}
		items = append(items, item)
	}

	return items, pagination, nil
}

// validateTagIDs 确认每个标签ID都存在。
func (s *ReportService) validateTagIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := s.repo.CountTagsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return ErrUnknownTag
	}
	return nil
}

func (s *ReportService) hydrateTags(ctx context.Context, ids []uint) ([]entity.TagSummary, error) {
	summaries := make([]entity.TagSummary, 0, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}
	tags, err := s.repo.FindTagsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]entity.DbFaultTag, len(tags))
	for _, tag := range tags {
		byID[tag.ID] = tag
	}
	// 按报告里的标签顺序返回
	for _, id := range ids {
		if tag, ok := byID[id]; ok {
			summaries = append(summaries, entity.TagSummary{ID: tag.ID, Name: tag.Name, Color: tag.Color})
		}
	}
	return summaries, nil
}

// adjustUsage 更新标签使用计数，失败只记日志。
func (s *ReportService) adjustUsage(ctx context.Context, reportID uint, ids []uint, delta int) {
	if len(ids) == 0 {
		return
	}
	if err := s.repo.AdjustTagUsage(ctx, ids, delta); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"report_id": reportID,
			"tag_ids":   ids,
			"delta":     delta,
		}).Warn("failed to adjust tag usage counters")
	}
}

// normalizeTagIDs 去重并丢弃非法的0值，保留调用方给出的顺序。
func normalizeTagIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{}
	}
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// diffTagIDs 计算新旧标签集合的差异。
func diffTagIDs(oldIDs, newIDs []uint) (toAdd, toRemove []uint) {
	oldSet := make(map[uint]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = struct{}{}
	}
	newSet := make(map[uint]struct{}, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = struct{}{}
	}

	for _, id := range newIDs {
		if _, ok := oldSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range oldIDs {
		if _, ok := newSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toAdd, toRemove
}
