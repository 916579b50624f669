// Package export 는 추적 히스토리의 파일 내보내기를 제공한다.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/seungwoo/rankwatch/internal/model"
)

const sheetName = "랭킹 히스토리"

// historyHeader 는 히스토리 표의 헤더. 영역 이름은 UI 표기와 동일하게 맞춘다.
var historyHeader = []string{"날짜", "통합검색-스마트블록", "통합검색-블로그", "블로그탭", "확인 시각"}

// WriteHistoryXLSX 는 추적 항목의 순위 히스토리를 xlsx로 기록한다.
func WriteHistoryXLSX(w io.Writer, tracker *model.Tracker) error {
	f, err := buildHistoryWorkbook(tracker)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx 기록에 실패했습니다: %w", err)
	}
	return nil
}

// buildHistoryWorkbook 은 히스토리 워크북을 조립한다.
// 1~2행은 추적 항목 정보, 4행은 표 헤더, 5행부터 히스토리 데이터가 들어간다.
func buildHistoryWorkbook(tracker *model.Tracker) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("시트 이름 설정에 실패했습니다: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", "키워드"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, "B1", tracker.TargetKeyword); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, "A2", "블로그 URL"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheetName, "B2", tracker.BlogURL); err != nil {
		return nil, err
	}

	const headerRow = 4
	for col, title := range historyHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, err
		}
	}

	for i, entry := range tracker.RankHistory {
		row := headerRow + 1 + i
		values := []any{
			entry.Date,
			rankCell(entry.SmartblockRank),
			rankCell(entry.MainBlogRank),
			rankCell(entry.BlogTabRank),
			entry.CheckedAt.Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "E", 22); err != nil {
		return nil, err
	}
	return f, nil
}

// rankCell 은 순위 셀 값을 만든다. 순위가 없으면 "-".
func rankCell(r *int) any {
	if r == nil {
		return "-"
	}
	return *r
}
