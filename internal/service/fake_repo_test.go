package service

import (
	"context"
	"errors"
	"time"

	"repairkb/internal/entity"

	"gorm.io/gorm"
)

type adjustCall struct {
	ids   []uint
	delta int
}

// fakeRepo 是内存版 Repository，记录计数调用便于断言。
type fakeRepo struct {
	users     map[uint]*entity.DbUser
	tags      map[uint]*entity.DbFaultTag
	reports   map[uint]*entity.DbReport
	analyses  map[uint]*entity.DbAiAnalysis
	usageLogs map[uint]*entity.DbAiUsageLog
	nextID    uint

	adjustCalls     []adjustCall
	failAdjust      bool
	failCreateUsage bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     make(map[uint]*entity.DbUser),
		tags:      make(map[uint]*entity.DbFaultTag),
		reports:   make(map[uint]*entity.DbReport),
		analyses:  make(map[uint]*entity.DbAiAnalysis),
		usageLogs: make(map[uint]*entity.DbAiUsageLog),
	}
}

func (f *fakeRepo) allocID() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) addTag(name string) *entity.DbFaultTag {
	tag := &entity.DbFaultTag{ID: f.allocID(), Name: name, Color: entity.DefaultTagColor}
	f.tags[tag.ID] = tag
	return tag
}

func (f *fakeRepo) addReport(tagIDs ...uint) *entity.DbReport {
	report := &entity.DbReport{
		ID:            f.allocID(),
		Reporter:      "zhangsan",
		DeviceName:    "注塑机3号",
		FaultCategory: "电气故障",
		FaultTagIDs:   entity.UintArray(tagIDs),
		Description:   "开机后控制面板无显示",
		AuthorID:      1,
		CreatedAt:     time.Now(),
	}
	f.reports[report.ID] = report
	return report
}

func (f *fakeRepo) CreateUser(ctx context.Context, user *entity.DbUser) error {
	user.ID = f.allocID()
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) UpdateUser(ctx context.Context, id uint, updates entity.UserUpdates) error {
	if _, ok := f.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeRepo) GetUserByUsername(ctx context.Context, username string) (*entity.DbUser, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	for _, user := range f.users {
		if user.Email != nil && *user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, entity.Pagination, error) {
	var users []entity.DbUser
	for _, user := range f.users {
		users = append(users, *user)
	}
	return users, entity.NewPagination(1, 10, int64(len(users))), nil
}

func (f *fakeRepo) DeleteUser(ctx context.Context, id uint) error {
	if _, ok := f.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

func (f *fakeRepo) CreateTag(ctx context.Context, tag *entity.DbFaultTag) error {
	tag.ID = f.allocID()
	f.tags[tag.ID] = tag
	return nil
}

func (f *fakeRepo) UpdateTag(ctx context.Context, id uint, updates entity.TagUpdates) error {
	if _, ok := f.tags[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (f *fakeRepo) DeleteTag(ctx context.Context, id uint) error {
	if _, ok := f.tags[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.tags, id)
	return nil
}

func (f *fakeRepo) GetTag(ctx context.Context, id uint) (*entity.DbFaultTag, error) {
	tag, ok := f.tags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tag, nil
}

func (f *fakeRepo) GetTagByName(ctx context.Context, name string) (*entity.DbFaultTag, error) {
	for _, tag := range f.tags {
		if tag.Name == name {
			return tag, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListTags(ctx context.Context, params *entity.TagQuery) ([]entity.DbFaultTag, entity.Pagination, error) {
	var tags []entity.DbFaultTag
	for _, tag := range f.tags {
		tags = append(tags, *tag)
	}
	return tags, entity.NewPagination(1, 10, int64(len(tags))), nil
}

func (f *fakeRepo) ListPopularTags(ctx context.Context, limit int) ([]entity.DbFaultTag, error) {
	var tags []entity.DbFaultTag
	for _, tag := range f.tags {
		tags = append(tags, *tag)
	}
	return tags, nil
}

func (f *fakeRepo) FindTagsByIDs(ctx context.Context, ids []uint) ([]entity.DbFaultTag, error) {
	var tags []entity.DbFaultTag
	for _, id := range ids {
		if tag, ok := f.tags[id]; ok {
			tags = append(tags, *tag)
		}
	}
	return tags, nil
}

func (f *fakeRepo) CountTagsByIDs(ctx context.Context, ids []uint) (int64, error) {
	var count int64
	for _, id := range ids {
		if _, ok := f.tags[id]; ok {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) AdjustTagUsage(ctx context.Context, ids []uint, delta int) error {
	if f.failAdjust {
		return errors.New("adjust failed")
	}
	f.adjustCalls = append(f.adjustCalls, adjustCall{ids: append([]uint(nil), ids...), delta: delta})
	for _, id := range ids {
		if tag, ok := f.tags[id]; ok {
			tag.UsageCount += int64(delta)
			if tag.UsageCount < 0 {
				tag.UsageCount = 0
			}
		}
	}
	return nil
}

func (f *fakeRepo) CreateReport(ctx context.Context, report *entity.DbReport) error {
	report.ID = f.allocID()
	report.CreatedAt = time.Now()
	f.reports[report.ID] = report
	return nil
}

func (f *fakeRepo) UpdateReport(ctx context.Context, id uint, updates entity.ReportUpdates) error {
	report, ok := f.reports[id]
	if !ok || report.IsDeleted {
		return gorm.ErrRecordNotFound
	}
	if updates.DeviceName != nil {
		report.DeviceName = *updates.DeviceName
	}
	if updates.FaultCategory != nil {
		report.FaultCategory = *updates.FaultCategory
	}
	if updates.FaultTagIDs != nil {
		report.FaultTagIDs = *updates.FaultTagIDs
	}
	if updates.DurationMinutes != nil {
		report.DurationMinutes = updates.DurationMinutes
	}
	if updates.Description != nil {
		report.Description = *updates.Description
	}
	if updates.Attachments != nil {
		report.Attachments = *updates.Attachments
	}
	return nil
}

func (f *fakeRepo) GetReport(ctx context.Context, id uint) (*entity.DbReport, error) {
	report, ok := f.reports[id]
	if !ok || report.IsDeleted {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *report
	return &clone, nil
}

func (f *fakeRepo) FindReportsByIDs(ctx context.Context, ids []uint) ([]entity.DbReport, error) {
	reports := make([]entity.DbReport, 0, len(ids))
	for _, id := range ids {
		if report, ok := f.reports[id]; ok && !report.IsDeleted {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}

func (f *fakeRepo) ListReports(ctx context.Context, params *entity.ReportQuery) ([]entity.DbReport, entity.Pagination, error) {
	var reports []entity.DbReport
	for _, report := range f.reports {
		if !report.IsDeleted {
			reports = append(reports, *report)
		}
	}
	return reports, entity.NewPagination(1, 10, int64(len(reports))), nil
}

func (f *fakeRepo) SoftDeleteReport(ctx context.Context, id uint) error {
	report, ok := f.reports[id]
	if !ok || report.IsDeleted {
		return gorm.ErrRecordNotFound
	}
	report.IsDeleted = true
	return nil
}

func (f *fakeRepo) CreateAnalysis(ctx context.Context, analysis *entity.DbAiAnalysis) error {
	analysis.ID = f.allocID()
	analysis.CreatedAt = time.Now()
	f.analyses[analysis.ID] = analysis
	return nil
}

func (f *fakeRepo) GetAnalysis(ctx context.Context, id uint) (*entity.DbAiAnalysis, error) {
	analysis, ok := f.analyses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return analysis, nil
}

func (f *fakeRepo) ListAnalyses(ctx context.Context, params *entity.AnalysisQuery) ([]entity.DbAiAnalysis, entity.Pagination, error) {
	var analyses []entity.DbAiAnalysis
	for _, analysis := range f.analyses {
		analyses = append(analyses, *analysis)
	}
	return analyses, entity.NewPagination(1, 10, int64(len(analyses))), nil
}

func (f *fakeRepo) ListAnalysesByReport(ctx context.Context, reportID uint) ([]entity.DbAiAnalysis, error) {
	var analyses []entity.DbAiAnalysis
	for _, analysis := range f.analyses {
		if analysis.ReportID == reportID {
			analyses = append(analyses, *analysis)
		}
	}
	return analyses, nil
}

func (f *fakeRepo) GetUsageLog(ctx context.Context, userID uint, usageDate string) (*entity.DbAiUsageLog, error) {
	for _, log := range f.usageLogs {
		if log.UserID == userID && log.UsageDate == usageDate {
			clone := *log
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateUsageLog(ctx context.Context, log *entity.DbAiUsageLog) error {
	if f.failCreateUsage {
		return errors.New("unique constraint violated")
	}
	log.ID = f.allocID()
	f.usageLogs[log.ID] = log
	return nil
}

func (f *fakeRepo) IncrementUsage(ctx context.Context, id uint, at time.Time) error {
	log, ok := f.usageLogs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	log.RequestCount++
	log.LastRequestAt = at
	return nil
}

func (f *fakeRepo) ListUsageLogs(ctx context.Context, userID uint, params *entity.UsageQuery) ([]entity.DbAiUsageLog, error) {
	var logs []entity.DbAiUsageLog
	for _, log := range f.usageLogs {
		if log.UserID != userID {
			continue
		}
		if params != nil {
			if params.StartDate != "" && log.UsageDate < params.StartDate {
				continue
			}
			if params.EndDate != "" && log.UsageDate > params.EndDate {
				continue
			}
		}
		logs = append(logs, *log)
	}
	return logs, nil
}

func (f *fakeRepo) SumUsage(ctx context.Context, userID uint, params *entity.UsageQuery) (int64, error) {
	logs, err := f.ListUsageLogs(ctx, userID, params)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, log := range logs {
		total += int64(log.RequestCount)
	}
	return total, nil
}
