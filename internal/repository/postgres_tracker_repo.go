package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/seungwoo/rankwatch/internal/model"
)

// PostgresTrackerRepo 는 PostgreSQL을 사용한 추적 항목 리포지토리.
type PostgresTrackerRepo struct {
	db *sql.DB
}

// NewPostgresTrackerRepo 는 PostgresTrackerRepo를 생성한다.
func NewPostgresTrackerRepo(db *sql.DB) *PostgresTrackerRepo {
	return &PostgresTrackerRepo{db: db}
}

const trackerColumns = `id, user_id, blog_url, blog_title, target_keyword,
        current_smartblock_rank, current_main_blog_rank, current_blog_tab_rank,
        previous_smartblock_rank, previous_main_blog_rank, previous_blog_tab_rank,
        created_at, last_checked, is_active`

// Create 는 추적 항목을 생성한다.
func (r *PostgresTrackerRepo) Create(ctx context.Context, tracker *model.Tracker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trackers (id, user_id, blog_url, blog_title, target_keyword,
		                       current_smartblock_rank, current_main_blog_rank, current_blog_tab_rank,
		                       previous_smartblock_rank, previous_main_blog_rank, previous_blog_tab_rank,
		                       created_at, last_checked, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		tracker.ID, tracker.UserID, tracker.BlogURL, tracker.BlogTitle, tracker.TargetKeyword,
		nullInt(tracker.CurrentSmartblockRank), nullInt(tracker.CurrentMainBlogRank), nullInt(tracker.CurrentBlogTabRank),
		nullInt(tracker.PreviousSmartblockRank), nullInt(tracker.PreviousMainBlogRank), nullInt(tracker.PreviousBlogTabRank),
		tracker.CreatedAt, tracker.LastChecked, tracker.IsActive,
	)
	if err != nil {
		return fmt.Errorf("추적 항목 생성에 실패했습니다: %w", err)
	}
	return nil
}

// FindByID 는 지정 ID의 추적 항목을 가져온다. 없으면 nil을 반환한다.
func (r *PostgresTrackerRepo) FindByID(ctx context.Context, id string) (*model.Tracker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM trackers WHERE id = $1`, id)

	tracker, err := scanTracker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("추적 항목 조회에 실패했습니다: %w", err)
	}

	history, err := r.loadHistory(ctx, tracker.ID)
	if err != nil {
		return nil, err
	}
	tracker.RankHistory = history
	return tracker, nil
}

// ListByUserID 는 사용자의 추적 항목 전체를 생성 순으로 가져온다.
func (r *PostgresTrackerRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Tracker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+trackerColumns+` FROM trackers WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("추적 항목 목록 조회에 실패했습니다: %w", err)
	}
	defer rows.Close()

	var trackers []*model.Tracker
	for rows.Next() {
		tracker, err := scanTracker(rows)
		if err != nil {
			return nil, fmt.Errorf("추적 항목 읽기에 실패했습니다: %w", err)
		}
		trackers = append(trackers, tracker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("추적 항목 목록 순회에 실패했습니다: %w", err)
	}

	for _, tracker := range trackers {
		history, err := r.loadHistory(ctx, tracker.ID)
		if err != nil {
			return nil, err
		}
		tracker.RankHistory = history
	}
	return trackers, nil
}

// CountByUserID 는 사용자의 활성 추적 항목 수를 반환한다.
func (r *PostgresTrackerRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trackers WHERE user_id = $1 AND is_active = true`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("추적 항목 수 조회에 실패했습니다: %w", err)
	}
	return count, nil
}

// UpdateRanks 는 현재/이전 순위와 마지막 확인 시각을 갱신한다.
func (r *PostgresTrackerRepo) UpdateRanks(ctx context.Context, tracker *model.Tracker) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE trackers SET
		    current_smartblock_rank = $2, current_main_blog_rank = $3, current_blog_tab_rank = $4,
		    previous_smartblock_rank = $5, previous_main_blog_rank = $6, previous_blog_tab_rank = $7,
		    last_checked = $8
		 WHERE id = $1`,
		tracker.ID,
		nullInt(tracker.CurrentSmartblockRank), nullInt(tracker.CurrentMainBlogRank), nullInt(tracker.CurrentBlogTabRank),
		nullInt(tracker.PreviousSmartblockRank), nullInt(tracker.PreviousMainBlogRank), nullInt(tracker.PreviousBlogTabRank),
		tracker.LastChecked,
	)
	if err != nil {
		return fmt.Errorf("순위 갱신에 실패했습니다: %w", err)
	}
	return nil
}

// AppendHistory 는 히스토리 1건을 추가한다.
func (r *PostgresTrackerRepo) AppendHistory(ctx context.Context, trackerID string, entry model.RankingHistoryEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tracker_rank_history (tracker_id, check_date, smartblock_rank, main_blog_rank, blog_tab_rank, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		trackerID, entry.Date,
		nullInt(entry.SmartblockRank), nullInt(entry.MainBlogRank), nullInt(entry.BlogTabRank),
		entry.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("히스토리 추가에 실패했습니다: %w", err)
	}
	return nil
}

// PruneHistory 는 기준 시각보다 오래된 히스토리를 삭제한다.
func (r *PostgresTrackerRepo) PruneHistory(ctx context.Context, trackerID string, before time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tracker_rank_history WHERE tracker_id = $1 AND checked_at < $2`,
		trackerID, before,
	)
	if err != nil {
		return fmt.Errorf("히스토리 정리에 실패했습니다: %w", err)
	}
	return nil
}

// Delete 는 추적 항목을 삭제한다. 히스토리는 외래 키 CASCADE로 함께 삭제된다.
func (r *PostgresTrackerRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trackers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("추적 항목 삭제에 실패했습니다: %w", err)
	}
	return nil
}

// ListActiveUserIDs 는 활성 추적 항목을 보유한 사용자 ID 목록을 반환한다.
func (r *PostgresTrackerRepo) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM trackers WHERE is_active = true ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("활성 사용자 목록 조회에 실패했습니다: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("활성 사용자 읽기에 실패했습니다: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("활성 사용자 목록 순회에 실패했습니다: %w", err)
	}
	return userIDs, nil
}

// loadHistory 는 추적 항목의 히스토리를 확인 시각 순으로 가져온다.
func (r *PostgresTrackerRepo) loadHistory(ctx context.Context, trackerID string) ([]model.RankingHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT to_char(check_date, 'YYYY-MM-DD'), smartblock_rank, main_blog_rank, blog_tab_rank, checked_at
		 FROM tracker_rank_history
		 WHERE tracker_id = $1
		 ORDER BY checked_at ASC`,
		trackerID,
	)
	if err != nil {
		return nil, fmt.Errorf("히스토리 조회에 실패했습니다: %w", err)
	}
	defer rows.Close()

	var history []model.RankingHistoryEntry
	for rows.Next() {
		var entry model.RankingHistoryEntry
		var smartblock, mainBlog, blogTab sql.NullInt64
		if err := rows.Scan(&entry.Date, &smartblock, &mainBlog, &blogTab, &entry.CheckedAt); err != nil {
			return nil, fmt.Errorf("히스토리 읽기에 실패했습니다: %w", err)
		}
		entry.SmartblockRank = nullIntValue(smartblock)
		entry.MainBlogRank = nullIntValue(mainBlog)
		entry.BlogTabRank = nullIntValue(blogTab)
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("히스토리 순회에 실패했습니다: %w", err)
	}
	return history, nil
}

// rowScanner 는 sql.Row와 sql.Rows를 동일하게 다루기 위한 인터페이스.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTracker 는 trackerColumns 순서의 행을 Tracker로 변환한다.
func scanTracker(row rowScanner) (*model.Tracker, error) {
	tracker := &model.Tracker{}
	var curSB, curMB, curBT, prevSB, prevMB, prevBT sql.NullInt64

	err := row.Scan(
		&tracker.ID, &tracker.UserID, &tracker.BlogURL, &tracker.BlogTitle, &tracker.TargetKeyword,
		&curSB, &curMB, &curBT,
		&prevSB, &prevMB, &prevBT,
		&tracker.CreatedAt, &tracker.LastChecked, &tracker.IsActive,
	)
	if err != nil {
		return nil, err
	}

	tracker.CurrentSmartblockRank = nullIntValue(curSB)
	tracker.CurrentMainBlogRank = nullIntValue(curMB)
	tracker.CurrentBlogTabRank = nullIntValue(curBT)
	tracker.PreviousSmartblockRank = nullIntValue(prevSB)
	tracker.PreviousMainBlogRank = nullIntValue(prevMB)
	tracker.PreviousBlogTabRank = nullIntValue(prevBT)
	return tracker, nil
}

// nullInt 는 *int를 sql.NullInt64로 변환한다.
func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// nullIntValue 는 sql.NullInt64를 *int로 변환한다.
func nullIntValue(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	value := int(v.Int64)
	return &value
}

// compile-time interface check
var _ TrackerRepository = (*PostgresTrackerRepo)(nil)
