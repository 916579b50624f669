// Package tracker 는 순위 추적 항목의 생성, 갱신, 조회를 오케스트레이션한다.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seungwoo/rankwatch/internal/model"
	"github.com/seungwoo/rankwatch/internal/rank"
	"github.com/seungwoo/rankwatch/internal/repository"
)

// Checker 는 3개 영역의 순위를 확인하는 인터페이스. rank.Checker 가 구현한다.
type Checker interface {
	CheckAll(ctx context.Context, keyword, targetURL string) (*model.AllRankings, error)
}

// QuotaService 는 사용자별 추적 한도를 결정한다.
type QuotaService interface {
	TrackerLimit(userID string) int
}

// StaticQuota 는 전 사용자 공통 한도를 적용하는 QuotaService.
type StaticQuota struct {
	Limit int
}

func (q StaticQuota) TrackerLimit(userID string) int { return q.Limit }

// Metrics 는 추적 갱신을 기록하는 인터페이스.
type Metrics interface {
	RecordTrackerUpdated()
}

// RefreshResult 는 1회 갱신의 결과와 영역별 변화 분석을 담는다.
type RefreshResult struct {
	Tracker          *model.Tracker
	SmartblockChange rank.Change
	MainBlogChange   rank.Change
	BlogTabChange    rank.Change
}

// BulkResult 는 일괄 갱신의 집계 결과.
type BulkResult struct {
	Total   int
	Updated int
	Failed  int
}

// Service 는 추적 항목의 라이프사이클을 관리한다.
type Service struct {
	repo      repository.TrackerRepository
	checker   Checker
	quota     QuotaService
	metrics   Metrics
	logger    *slog.Logger
	retention time.Duration
	bulkPause time.Duration
	now       func() time.Time
	newID     func() string
}

// NewService 는 tracker Service를 생성한다. metrics는 nil이어도 된다.
func NewService(repo repository.TrackerRepository, checker Checker, quota QuotaService, metrics Metrics, logger *slog.Logger, retention, bulkPause time.Duration) *Service {
	return &Service{
		repo:      repo,
		checker:   checker,
		quota:     quota,
		metrics:   metrics,
		logger:    logger,
		retention: retention,
		bulkPause: bulkPause,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Check 는 저장 없이 키워드+URL의 현재 순위만 확인한다.
func (s *Service) Check(ctx context.Context, keyword, targetURL string) (*model.AllRankings, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, model.NewInvalidKeywordError()
	}
	if err := validateBlogURL(targetURL); err != nil {
		return nil, err
	}
	return s.checker.CheckAll(ctx, keyword, targetURL)
}

// Start 는 새 추적 항목을 만들고 첫 순위 확인을 수행한다.
// 첫 확인 결과는 Current* 에 들어가고 Previous* 는 nil로 남는다.
// 히스토리에도 첫 1건이 기록된다.
func (s *Service) Start(ctx context.Context, userID, blogURL, blogTitle, keyword string) (*model.Tracker, string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, "", model.NewInvalidKeywordError()
	}
	if err := validateBlogURL(blogURL); err != nil {
		return nil, "", err
	}

	limit := s.quota.TrackerLimit(userID)
	count, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if count >= limit {
		return nil, "", model.NewTrackerLimitError(count, limit)
	}

	rankings, err := s.checker.CheckAll(ctx, keyword, blogURL)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	tracker := &model.Tracker{
		ID:            s.newID(),
		UserID:        userID,
		BlogURL:       blogURL,
		BlogTitle:     blogTitle,
		TargetKeyword: keyword,

		CurrentSmartblockRank: rankings.Smartblock.Rank,
		CurrentMainBlogRank:   rankings.MainBlog.Rank,
		CurrentBlogTabRank:    rankings.BlogTab.Rank,

		CreatedAt:   now,
		LastChecked: now,
		IsActive:    true,
	}

	entry := historyEntry(rankings, now)
	tracker.RankHistory = []model.RankingHistoryEntry{entry}

	if err := s.repo.Create(ctx, tracker); err != nil {
		return nil, "", err
	}
	if err := s.repo.AppendHistory(ctx, tracker.ID, entry); err != nil {
		return nil, "", err
	}

	summary := fmt.Sprintf("랭킹 추적이 시작되었습니다!\n\n%s: %s\n%s: %s\n%s: %s",
		model.AreaSmartblock.Label(), formatRank(rankings.Smartblock.Rank),
		model.AreaMainBlog.Label(), formatRank(rankings.MainBlog.Rank),
		model.AreaBlogTab.Label(), formatRank(rankings.BlogTab.Rank),
	)

	s.logger.Info("추적 항목 생성",
		slog.String("tracker_id", tracker.ID),
		slog.String("user_id", userID),
		slog.String("keyword", keyword),
	)
	return tracker, summary, nil
}

// Get 은 사용자의 추적 항목을 가져온다. 다른 사용자의 항목은 없는 것으로 취급한다.
func (s *Service) Get(ctx context.Context, userID, trackerID string) (*model.Tracker, error) {
	tracker, err := s.repo.FindByID(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	if tracker == nil || tracker.UserID != userID {
		return nil, model.NewTrackerNotFoundError(trackerID)
	}
	return tracker, nil
}

// List 는 사용자의 추적 항목 전체를 반환한다.
func (s *Service) List(ctx context.Context, userID string) ([]*model.Tracker, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// Refresh 는 추적 항목의 순위를 다시 확인하고 이전 순위를 한 칸 밀어낸다.
// 히스토리에 1건을 추가하고 보존 기간을 넘긴 항목은 정리한다.
func (s *Service) Refresh(ctx context.Context, userID, trackerID string) (*RefreshResult, error) {
	tracker, err := s.Get(ctx, userID, trackerID)
	if err != nil {
		return nil, err
	}

	rankings, err := s.checker.CheckAll(ctx, tracker.TargetKeyword, tracker.BlogURL)
	if err != nil {
		return nil, err
	}

	now := s.now()

	tracker.PreviousSmartblockRank = tracker.CurrentSmartblockRank
	tracker.PreviousMainBlogRank = tracker.CurrentMainBlogRank
	tracker.PreviousBlogTabRank = tracker.CurrentBlogTabRank

	tracker.CurrentSmartblockRank = rankings.Smartblock.Rank
	tracker.CurrentMainBlogRank = rankings.MainBlog.Rank
	tracker.CurrentBlogTabRank = rankings.BlogTab.Rank
	tracker.LastChecked = now

	if err := s.repo.UpdateRanks(ctx, tracker); err != nil {
		return nil, err
	}

	entry := historyEntry(rankings, now)
	if err := s.repo.AppendHistory(ctx, tracker.ID, entry); err != nil {
		return nil, err
	}

	cutoff := now.Add(-s.retention)
	if err := s.repo.PruneHistory(ctx, tracker.ID, cutoff); err != nil {
		return nil, err
	}

	tracker.RankHistory = pruneEntries(append(tracker.RankHistory, entry), cutoff)

	if s.metrics != nil {
		s.metrics.RecordTrackerUpdated()
	}
	s.logger.Info("추적 항목 갱신",
		slog.String("tracker_id", tracker.ID),
		slog.String("keyword", tracker.TargetKeyword),
	)

	return &RefreshResult{
		Tracker:          tracker,
		SmartblockChange: rank.Classify(tracker.CurrentSmartblockRank, tracker.PreviousSmartblockRank),
		MainBlogChange:   rank.Classify(tracker.CurrentMainBlogRank, tracker.PreviousMainBlogRank),
		BlogTabChange:    rank.Classify(tracker.CurrentBlogTabRank, tracker.PreviousBlogTabRank),
	}, nil
}

// RefreshAll 은 사용자의 활성 추적 항목을 순차적으로 갱신한다.
// 스크레이핑 차단을 피하기 위해 항목 사이에 일정 시간 쉰다.
// 개별 실패는 집계만 하고 계속 진행한다.
func (s *Service) RefreshAll(ctx context.Context, userID string) (*BulkResult, error) {
	trackers, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Total: len(trackers)}
	refreshed := false
	for _, tracker := range trackers {
		if !tracker.IsActive {
			result.Total--
			continue
		}
		// 실제 갱신 사이에만 쉰다. 비활성 항목은 fetch하지 않으므로 세지 않는다.
		if refreshed {
			select {
			case <-time.After(s.bulkPause):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}
		refreshed = true

		if _, err := s.Refresh(ctx, userID, tracker.ID); err != nil {
			result.Failed++
			s.logger.Warn("일괄 갱신 중 개별 실패",
				slog.String("tracker_id", tracker.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Updated++
	}

	s.logger.Info("일괄 갱신 완료",
		slog.String("user_id", userID),
		slog.Int("updated", result.Updated),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}

// Delete 는 사용자의 추적 항목을 삭제한다.
func (s *Service) Delete(ctx context.Context, userID, trackerID string) error {
	if _, err := s.Get(ctx, userID, trackerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, trackerID)
}

// historyEntry 는 확인 결과를 히스토리 1건으로 변환한다.
func historyEntry(rankings *model.AllRankings, checkedAt time.Time) model.RankingHistoryEntry {
	return model.RankingHistoryEntry{
		Date:           checkedAt.Format("2006-01-02"),
		SmartblockRank: rankings.Smartblock.Rank,
		MainBlogRank:   rankings.MainBlog.Rank,
		BlogTabRank:    rankings.BlogTab.Rank,
		CheckedAt:      checkedAt,
	}
}

// pruneEntries 는 메모리 상의 히스토리에서 기준 시각 이전 항목을 제거한다.
func pruneEntries(entries []model.RankingHistoryEntry, cutoff time.Time) []model.RankingHistoryEntry {
	kept := entries[:0]
	for _, entry := range entries {
		if !entry.CheckedAt.Before(cutoff) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// formatRank 는 순위를 표시용 문자열로 변환한다.
func formatRank(r *int) string {
	if r == nil {
		return "순위 없음"
	}
	return fmt.Sprintf("%d위", *r)
}

// validateBlogURL 은 추적 대상 URL의 형식을 검사한다.
func validateBlogURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return model.NewInvalidURLError("URL이 비어있습니다")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return model.NewInvalidURLError("http 또는 https URL만 지원합니다")
	}
	if parsed.Host == "" {
		return model.NewInvalidURLError("호스트가 없습니다")
	}
	return nil
}
