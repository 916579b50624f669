package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seungwoo/rankwatch/internal/model"
)

// memRepo 는 테스트용 인메모리 리포지토리. 목록은 생성 순서를 따른다.
type memRepo struct {
	mu       sync.Mutex
	trackers map[string]*model.Tracker
	order    []string
	history  map[string][]model.RankingHistoryEntry
}

func newMemRepo() *memRepo {
	return &memRepo{
		trackers: make(map[string]*model.Tracker),
		history:  make(map[string][]model.RankingHistoryEntry),
	}
}

func (r *memRepo) Create(ctx context.Context, tracker *model.Tracker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *tracker
	r.trackers[tracker.ID] = &clone
	r.order = append(r.order, tracker.ID)
	return nil
}

func (r *memRepo) FindByID(ctx context.Context, id string) (*model.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.trackers[id]
	if !ok {
		return nil, nil
	}
	clone := *stored
	clone.RankHistory = append([]model.RankingHistoryEntry(nil), r.history[id]...)
	return &clone, nil
}

func (r *memRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Tracker
	for _, id := range r.order {
		stored, ok := r.trackers[id]
		if !ok || stored.UserID != userID {
			continue
		}
		clone := *stored
		clone.RankHistory = append([]model.RankingHistoryEntry(nil), r.history[stored.ID]...)
		result = append(result, &clone)
	}
	return result, nil
}

func (r *memRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, stored := range r.trackers {
		if stored.UserID == userID && stored.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *memRepo) UpdateRanks(ctx context.Context, tracker *model.Tracker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.trackers[tracker.ID]
	if !ok {
		return errors.New("not found")
	}
	stored.CurrentSmartblockRank = tracker.CurrentSmartblockRank
	stored.CurrentMainBlogRank = tracker.CurrentMainBlogRank
	stored.CurrentBlogTabRank = tracker.CurrentBlogTabRank
	stored.PreviousSmartblockRank = tracker.PreviousSmartblockRank
	stored.PreviousMainBlogRank = tracker.PreviousMainBlogRank
	stored.PreviousBlogTabRank = tracker.PreviousBlogTabRank
	stored.LastChecked = tracker.LastChecked
	return nil
}

func (r *memRepo) AppendHistory(ctx context.Context, trackerID string, entry model.RankingHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[trackerID] = append(r.history[trackerID], entry)
	return nil
}

func (r *memRepo) PruneHistory(ctx context.Context, trackerID string, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []model.RankingHistoryEntry
	for _, entry := range r.history[trackerID] {
		if !entry.CheckedAt.Before(before) {
			kept = append(kept, entry)
		}
	}
	r.history[trackerID] = kept
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, id)
	delete(r.history, id)
	return nil
}

func (r *memRepo) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, stored := range r.trackers {
		if stored.IsActive && !seen[stored.UserID] {
			seen[stored.UserID] = true
			ids = append(ids, stored.UserID)
		}
	}
	return ids, nil
}

// fakeChecker 는 호출마다 지정한 순위를 돌려주는 테스트용 Checker.
type fakeChecker struct {
	mu       sync.Mutex
	results  []*model.AllRankings
	errAfter int // 이 횟수째 호출부터 실패 (0이면 항상 성공)
	calls    int
}

func (c *fakeChecker) CheckAll(ctx context.Context, keyword, targetURL string) (*model.AllRankings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.errAfter > 0 && c.calls >= c.errAfter {
		return nil, model.NewFetchNetworkError()
	}
	result := c.results[0]
	if len(c.results) > 1 {
		c.results = c.results[1:]
	}
	return result, nil
}

func rankings(smartblock, mainBlog, blogTab *int) *model.AllRankings {
	return &model.AllRankings{
		Smartblock: model.RankResult{Found: smartblock != nil, Rank: smartblock, Area: model.AreaSmartblock},
		MainBlog:   model.RankResult{Found: mainBlog != nil, Rank: mainBlog, Area: model.AreaMainBlog},
		BlogTab:    model.RankResult{Found: blogTab != nil, Rank: blogTab, Area: model.AreaBlogTab},
	}
}

func intPtr(v int) *int { return &v }

func newTestService(repo *memRepo, checker Checker, limit int) *Service {
	return newTestServiceWithPause(repo, checker, limit, time.Millisecond)
}

func newTestServiceWithPause(repo *memRepo, checker Checker, limit int, pause time.Duration) *Service {
	svc := NewService(repo, checker, StaticQuota{Limit: limit}, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)), 30*24*time.Hour, pause)
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("tracker-%d", seq)
	}
	return svc
}

func TestStart_SeedsHistoryAndNilPrevious(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(intPtr(5), nil, nil)}}
	svc := newTestService(repo, checker, 10)

	tracker, summary, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "내 블로그", "강남 맛집")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if tracker.CurrentSmartblockRank == nil || *tracker.CurrentSmartblockRank != 5 {
		t.Errorf("CurrentSmartblockRank = %v, want 5", tracker.CurrentSmartblockRank)
	}
	if tracker.PreviousSmartblockRank != nil || tracker.PreviousMainBlogRank != nil || tracker.PreviousBlogTabRank != nil {
		t.Error("생성 직후 Previous* 는 모두 nil이어야 함")
	}
	if len(tracker.RankHistory) != 1 {
		t.Errorf("히스토리 = %d건, want 1", len(tracker.RankHistory))
	}
	if !strings.Contains(summary, "랭킹 추적이 시작되었습니다") {
		t.Errorf("summary = %q", summary)
	}
	if !strings.Contains(summary, "통합검색-스마트블록: 5위") {
		t.Errorf("summary에 영역별 순위가 포함되어야 함: %q", summary)
	}
	if !strings.Contains(summary, "블로그탭: 순위 없음") {
		t.Errorf("미발견 영역은 순위 없음으로 표시되어야 함: %q", summary)
	}

	stored, _ := repo.FindByID(context.Background(), tracker.ID)
	if stored == nil {
		t.Fatal("저장소에 추적 항목이 생성되어야 함")
	}
	if len(stored.RankHistory) != 1 {
		t.Errorf("저장된 히스토리 = %d건, want 1", len(stored.RankHistory))
	}
}

func TestStart_QuotaExceeded(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(nil, nil, nil)}}
	svc := newTestService(repo, checker, 2)

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드"); err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
	}

	_, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드")
	if err == nil {
		t.Fatal("한도 초과 시 에러를 반환해야 함")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTrackerLimit {
		t.Errorf("TRACKER_LIMIT 에러여야 함, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "2/2") {
		t.Errorf("메시지에 현재/한도 수치가 포함되어야 함: %q", apiErr.Message)
	}
}

func TestStart_Validation(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeChecker{results: []*model.AllRankings{rankings(nil, nil, nil)}}, 10)

	tests := []struct {
		name     string
		blogURL  string
		keyword  string
		wantCode string
	}{
		{"빈 키워드", "https://blog.naver.com/me", "  ", model.ErrCodeInvalidKeyword},
		{"빈 URL", "", "키워드", model.ErrCodeInvalidURL},
		{"스킴 없는 URL", "blog.naver.com/me", "키워드", model.ErrCodeInvalidURL},
		{"ftp URL", "ftp://blog.naver.com/me", "키워드", model.ErrCodeInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Start(context.Background(), "user-1", tt.blogURL, "", tt.keyword)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestRefresh_ShiftsRanksAndAppendsHistory(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{
		rankings(intPtr(12), nil, intPtr(3)),
		rankings(intPtr(5), intPtr(8), nil),
	}}
	svc := newTestService(repo, checker, 10)

	created, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	result, err := svc.Refresh(context.Background(), "user-1", created.ID)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	tracker := result.Tracker

	if tracker.PreviousSmartblockRank == nil || *tracker.PreviousSmartblockRank != 12 {
		t.Errorf("PreviousSmartblockRank = %v, want 12 (직전 Current 값)", tracker.PreviousSmartblockRank)
	}
	if tracker.CurrentSmartblockRank == nil || *tracker.CurrentSmartblockRank != 5 {
		t.Errorf("CurrentSmartblockRank = %v, want 5", tracker.CurrentSmartblockRank)
	}
	if tracker.PreviousBlogTabRank == nil || *tracker.PreviousBlogTabRank != 3 {
		t.Errorf("PreviousBlogTabRank = %v, want 3", tracker.PreviousBlogTabRank)
	}
	if tracker.CurrentBlogTabRank != nil {
		t.Errorf("CurrentBlogTabRank = %v, want nil", tracker.CurrentBlogTabRank)
	}

	// 12 → 5 는 7계단 상승.
	if result.SmartblockChange.Amount != 7 || !strings.Contains(result.SmartblockChange.Message, "7계단 상승") {
		t.Errorf("SmartblockChange = %+v", result.SmartblockChange)
	}
	// 3 → nil 은 순위 이탈.
	if !strings.Contains(result.BlogTabChange.Message, "순위 이탈") {
		t.Errorf("BlogTabChange = %+v", result.BlogTabChange)
	}

	if len(tracker.RankHistory) != 2 {
		t.Errorf("히스토리 = %d건, want 2", len(tracker.RankHistory))
	}
}

func TestRefresh_PrunesOldHistory(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(intPtr(1), nil, nil)}}
	svc := newTestService(repo, checker, 10)

	created, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// 31일 전의 오래된 히스토리를 심어둔다.
	old := time.Now().Add(-31 * 24 * time.Hour)
	repo.AppendHistory(context.Background(), created.ID, model.RankingHistoryEntry{
		Date:      old.Format("2006-01-02"),
		CheckedAt: old,
	})

	result, err := svc.Refresh(context.Background(), "user-1", created.ID)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	for _, entry := range result.Tracker.RankHistory {
		if entry.CheckedAt.Before(time.Now().Add(-30 * 24 * time.Hour)) {
			t.Errorf("30일을 넘긴 히스토리가 남아있음: %v", entry.CheckedAt)
		}
	}

	stored, _ := repo.FindByID(context.Background(), created.ID)
	for _, entry := range stored.RankHistory {
		if entry.CheckedAt.Before(time.Now().Add(-30 * 24 * time.Hour)) {
			t.Errorf("저장소에 30일을 넘긴 히스토리가 남아있음: %v", entry.CheckedAt)
		}
	}
}

func TestRefresh_NotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), &fakeChecker{results: []*model.AllRankings{rankings(nil, nil, nil)}}, 10)

	_, err := svc.Refresh(context.Background(), "user-1", "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTrackerNotFound {
		t.Errorf("TRACKER_NOT_FOUND 에러여야 함, got %v", err)
	}
}

func TestGet_OtherUsersTrackerHidden(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(nil, nil, nil)}}
	svc := newTestService(repo, checker, 10)

	created, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, err = svc.Get(context.Background(), "user-2", created.ID)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTrackerNotFound {
		t.Errorf("다른 사용자의 항목은 NOT_FOUND여야 함, got %v", err)
	}
}

func TestRefreshAll_ContinuesOnFailure(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(intPtr(1), nil, nil)}}
	svc := newTestService(repo, checker, 10)

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", fmt.Sprintf("키워드%d", i)); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}

	// 생성 3회 + 갱신 3회 중 5번째 호출부터 실패시킨다 → 갱신 2건 성공, 1건 실패.
	checker.mu.Lock()
	checker.errAfter = checker.calls + 3
	checker.mu.Unlock()

	result, err := svc.RefreshAll(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
	if result.Updated != 2 {
		t.Errorf("Updated = %d, want 2", result.Updated)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
}

func TestRefreshAll_NoPauseBeforeFirstRefresh(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(intPtr(1), nil, nil)}}
	pause := 300 * time.Millisecond
	svc := newTestServiceWithPause(repo, checker, 10, pause)

	first, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/200", "", "키워드2"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// 목록 맨 앞의 항목을 비활성화한다. fetch가 없으면 대기 대상도 아니다.
	repo.mu.Lock()
	repo.trackers[first.ID].IsActive = false
	repo.mu.Unlock()

	start := time.Now()
	result, err := svc.RefreshAll(context.Background(), "user-1")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	if result.Total != 1 || result.Updated != 1 {
		t.Errorf("result = %+v, want Total 1, Updated 1", result)
	}
	if elapsed >= pause {
		t.Errorf("갱신이 1건이면 대기 없이 끝나야 함, 소요 %v", elapsed)
	}
}

func TestDelete(t *testing.T) {
	repo := newMemRepo()
	checker := &fakeChecker{results: []*model.AllRankings{rankings(nil, nil, nil)}}
	svc := newTestService(repo, checker, 10)

	created, _, err := svc.Start(context.Background(), "user-1", "https://blog.naver.com/me/100", "", "키워드")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := svc.Delete(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = svc.Get(context.Background(), "user-1", created.ID)
	if err == nil {
		t.Error("삭제 후 조회는 실패해야 함")
	}
}

func TestCheck_OneShot(t *testing.T) {
	checker := &fakeChecker{results: []*model.AllRankings{rankings(intPtr(5), nil, nil)}}
	svc := newTestService(newMemRepo(), checker, 10)

	got, err := svc.Check(context.Background(), "강남 맛집", "https://blog.naver.com/me/100")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Smartblock.Rank == nil || *got.Smartblock.Rank != 5 {
		t.Errorf("Smartblock.Rank = %v, want 5", got.Smartblock.Rank)
	}
}
