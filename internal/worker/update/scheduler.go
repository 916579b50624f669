// Package update 는 추적 항목의 백그라운드 순위 갱신 처리를 제공한다.
package update

import (
	"context"
	"log/slog"
	"time"

	"github.com/seungwoo/rankwatch/internal/tracker"
)

// TrackerUpdaterService 는 사용자 단위 일괄 갱신의 실행 인터페이스.
type TrackerUpdaterService interface {
	// RefreshAll 은 사용자의 모든 활성 추적 항목을 순차 갱신한다.
	RefreshAll(ctx context.Context, userID string) (*tracker.BulkResult, error)
}

// ActiveUserLister 는 활성 추적 항목을 가진 사용자 ID 목록을 조회한다.
type ActiveUserLister interface {
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// Scheduler 는 순위 갱신 사이클의 스케줄링을 담당한다.
// 갱신 간격의 티커로 활성 사용자를 열거하고, 사용자별로 순차 갱신한다.
// 외부 검색 페이지 fetch가 레이트에 민감하므로 병렬 실행은 하지 않는다.
type Scheduler struct {
	users   ActiveUserLister
	updater TrackerUpdaterService
	logger  *slog.Logger
}

// NewScheduler 는 Scheduler를 생성한다.
func NewScheduler(users ActiveUserLister, updater TrackerUpdaterService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		users:   users,
		updater: updater,
		logger:  logger,
	}
}

// Start 는 지정 간격의 티커로 스케줄러를 기동한다.
// 컨텍스트가 취소될 때까지 실행을 계속한다.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("갱신 스케줄러를 시작했습니다",
		slog.Duration("interval", interval),
	)

	// 기동 직후 1회 실행
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("갱신 사이클 실행에 실패했습니다",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("갱신 스케줄러를 중지했습니다")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("갱신 사이클 실행에 실패했습니다",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce 는 활성 사용자를 1회 열거하고 사용자별 일괄 갱신을 실행한다.
// 개별 사용자의 실패는 기록만 하고 다음 사용자로 계속 진행한다.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	userIDs, err := s.users.ListActiveUserIDs(ctx)
	if err != nil {
		return err
	}

	if len(userIDs) == 0 {
		s.logger.Info("갱신 대상 사용자가 없습니다")
		return nil
	}

	s.logger.Info("갱신 사이클을 시작합니다",
		slog.Int("user_count", len(userIDs)),
	)

	var updated, failed int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := s.updater.RefreshAll(ctx, userID)
		if err != nil {
			failed++
			s.logger.Error("사용자 일괄 갱신에 실패했습니다",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			continue
		}

		updated += result.Updated
		failed += result.Failed
	}

	duration := time.Since(start)
	s.logger.Info("갱신 사이클이 완료되었습니다",
		slog.Int("user_count", len(userIDs)),
		slog.Int("updated", updated),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
