package service

import "errors"

var (
	// ErrReportNotFound 报告不存在或已被删除。
	ErrReportNotFound = errors.New("report not found")

	// ErrUnknownTag 引用了不存在的故障标签。
	ErrUnknownTag = errors.New("unknown fault tag referenced")

	// ErrInvalidAnalysisType 分析类型不在允许范围内。
	ErrInvalidAnalysisType = errors.New("invalid analysis type")

	// ErrQuotaExceeded 当日AI请求次数已达上限。
	ErrQuotaExceeded = errors.New("daily ai quota exceeded")
)
