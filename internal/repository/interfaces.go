// Package repository 는 영속화 계층의 인터페이스와 PostgreSQL 구현을 제공한다.
package repository

import (
	"context"
	"time"

	"github.com/seungwoo/rankwatch/internal/model"
)

// TrackerRepository 는 순위 추적 항목의 영속화 인터페이스.
type TrackerRepository interface {
	// Create 는 추적 항목을 생성한다.
	Create(ctx context.Context, tracker *model.Tracker) error

	// FindByID 는 지정 ID의 추적 항목을 히스토리 포함으로 가져온다.
	// 없으면 nil을 반환한다.
	FindByID(ctx context.Context, id string) (*model.Tracker, error)

	// ListByUserID 는 사용자의 추적 항목 전체를 생성 순으로 가져온다.
	ListByUserID(ctx context.Context, userID string) ([]*model.Tracker, error)

	// CountByUserID 는 사용자의 활성 추적 항목 수를 반환한다.
	CountByUserID(ctx context.Context, userID string) (int, error)

	// UpdateRanks 는 현재/이전 순위와 마지막 확인 시각을 갱신한다.
	UpdateRanks(ctx context.Context, tracker *model.Tracker) error

	// AppendHistory 는 히스토리 1건을 추가한다.
	AppendHistory(ctx context.Context, trackerID string, entry model.RankingHistoryEntry) error

	// PruneHistory 는 기준 시각보다 오래된 히스토리를 삭제한다.
	PruneHistory(ctx context.Context, trackerID string, before time.Time) error

	// Delete 는 추적 항목과 그 히스토리를 삭제한다.
	Delete(ctx context.Context, id string) error

	// ListActiveUserIDs 는 활성 추적 항목을 보유한 사용자 ID 목록을 반환한다.
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}
