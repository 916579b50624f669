package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/seungwoo/rankwatch/internal/model"
)

func intPtr(v int) *int { return &v }

func sampleTracker() *model.Tracker {
	checked := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return &model.Tracker{
		ID:            "tracker-1",
		UserID:        "user-1",
		BlogURL:       "https://blog.naver.com/me/100",
		TargetKeyword: "강남 맛집",
		RankHistory: []model.RankingHistoryEntry{
			{Date: "2026-08-19", SmartblockRank: intPtr(7), CheckedAt: checked.Add(-24 * time.Hour)},
			{Date: "2026-08-20", SmartblockRank: intPtr(5), BlogTabRank: intPtr(2), CheckedAt: checked},
		},
	}
}

func TestWriteHistoryXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistoryXLSX(&buf, sampleTracker()); err != nil {
		t.Fatalf("WriteHistoryXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("생성된 xlsx를 열 수 없음: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "랭킹 히스토리" {
		t.Fatalf("시트 목록 = %v", sheets)
	}

	tests := []struct {
		cell string
		want string
	}{
		{"B1", "강남 맛집"},
		{"B2", "https://blog.naver.com/me/100"},
		{"A4", "날짜"},
		{"B4", "통합검색-스마트블록"},
		{"D4", "블로그탭"},
		{"A5", "2026-08-19"},
		{"B5", "7"},
		{"C5", "-"},
		{"B6", "5"},
		{"D6", "2"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue("랭킹 히스토리", tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestWriteHistoryXLSX_EmptyHistory(t *testing.T) {
	tracker := sampleTracker()
	tracker.RankHistory = nil

	var buf bytes.Buffer
	if err := WriteHistoryXLSX(&buf, tracker); err != nil {
		t.Fatalf("WriteHistoryXLSX() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("빈 히스토리도 유효한 워크북을 생성해야 함")
	}
}
