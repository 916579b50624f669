// Package model 은 도메인 모델을 정의한다.
package model

import "time"

// SearchArea 는 네이버 검색 결과의 추적 영역을 나타낸다.
type SearchArea string

const (
	// AreaSmartblock 은 통합검색 상단의 스마트블록 영역(구 VIEW 영역).
	AreaSmartblock SearchArea = "smartblock"
	// AreaMainBlog 는 통합검색 내의 블로그 영역.
	AreaMainBlog SearchArea = "blog"
	// AreaBlogTab 은 별도의 블로그 탭 검색 결과.
	AreaBlogTab SearchArea = "blog_tab"
)

// Label 은 영역의 한국어 표시 이름을 반환한다.
// UI 협력자는 이 문자열을 그대로 표시해야 하며, 기계 판독용 값이 아니다.
func (a SearchArea) Label() string {
	switch a {
	case AreaSmartblock:
		return "통합검색-스마트블록"
	case AreaMainBlog:
		return "통합검색-블로그"
	case AreaBlogTab:
		return "블로그탭"
	default:
		return string(a)
	}
}

// RankResult 는 한 영역에 대한 1회 순위 확인 결과를 나타낸다.
// 매 확인 주기마다 새로 생성되며 생성 후 변경되지 않는다.
type RankResult struct {
	Found     bool
	Rank      *int
	Area      SearchArea
	AreaName  string
	Title     string
	CheckedAt time.Time
}

// AllRankings 는 3개 영역의 순위 확인 결과를 묶은 복합 결과.
type AllRankings struct {
	Smartblock RankResult
	MainBlog   RankResult
	BlogTab    RankResult
}

// RankingHistoryEntry 는 추적 항목의 순위 히스토리 1건을 나타낸다.
// 추가 전용(append-only)이며 30일 롤링 윈도우로 정리된다.
type RankingHistoryEntry struct {
	Date           string // YYYY-MM-DD
	SmartblockRank *int
	MainBlogRank   *int
	BlogTabRank    *int
	CheckedAt      time.Time
}

// Tracker 는 블로그+키워드 쌍에 대한 순위 추적 항목을 나타낸다.
//
// 불변 조건:
//   - Previous* 필드는 직전 업데이트 시점의 Current* 값을 항상 보관한다.
//     생성 직후에는 모두 nil이다.
//   - RankHistory 는 업데이트 주기마다 1건씩만 추가되고,
//     CheckedAt 기준 30일보다 오래된 항목은 제거된다.
type Tracker struct {
	ID            string
	UserID        string
	BlogURL       string
	BlogTitle     string
	TargetKeyword string

	CurrentSmartblockRank *int
	CurrentMainBlogRank   *int
	CurrentBlogTabRank    *int

	PreviousSmartblockRank *int
	PreviousMainBlogRank   *int
	PreviousBlogTabRank    *int

	RankHistory []RankingHistoryEntry

	CreatedAt   time.Time
	LastChecked time.Time
	IsActive    bool
}

// BlogPost 는 검색 결과에서 추출한 블로그 포스트 링크 1건.
type BlogPost struct {
	ID    int
	Title string
	URL   string
}

// Keyword 는 자동완성검색어 1건.
type Keyword struct {
	ID      int
	Keyword string
}
