// Package keyword 는 자동완성 기반 연관 키워드 조회와 경쟁 포스트 조회를 제공한다.
package keyword

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/seungwoo/rankwatch/internal/model"
)

// Fetcher 는 외부 URL의 텍스트를 가져오는 인터페이스. 프록시 체인 클라이언트가 구현한다.
type Fetcher interface {
	FetchText(ctx context.Context, targetURL string) (string, error)
}

// SuggestionProvider 는 검색어 자동완성 소스 하나를 나타낸다.
type SuggestionProvider interface {
	Name() string
	Suggest(ctx context.Context, query string) ([]string, error)
}

const (
	naverAutocompleteURLFormat = "https://ac.search.naver.com/nx/ac?q=%s&con=1&frm=nx&ans=2&r_format=json&r_enc=UTF-8&r_unicode=0&t_koreng=1&run=2&rev=4&q_enc=UTF-8&st=100"
	googleSuggestURLFormat     = "https://suggestqueries.google.com/complete/search?client=chrome&hl=ko&q=%s"
)

// NaverProvider 는 네이버 자동완성 API를 조회한다.
type NaverProvider struct {
	fetcher Fetcher
}

// NewNaverProvider 는 NaverProvider를 생성한다.
func NewNaverProvider(fetcher Fetcher) *NaverProvider {
	return &NaverProvider{fetcher: fetcher}
}

func (p *NaverProvider) Name() string { return "naver" }

// Suggest 는 질의어에 대한 네이버 자동완성검색어를 반환한다.
func (p *NaverProvider) Suggest(ctx context.Context, query string) ([]string, error) {
	reqURL := fmt.Sprintf(naverAutocompleteURLFormat, url.QueryEscape(query))
	body, err := p.fetcher.FetchText(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	return parseNaverSuggest([]byte(body))
}

// parseNaverSuggest 는 네이버 자동완성 응답을 파싱한다.
// 형식은 {"items": [[[검색어, ...], ...], ...]} 의 3중 배열이다.
// items 가 null 인 것은 결과 없음으로 허용하지만, 키 자체가 없으면 구조 에러다.
func parseNaverSuggest(raw []byte) ([]string, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, model.NewUnexpectedResponseShapeError("네이버 자동완성")
	}

	itemsRaw, ok := probe["items"]
	if !ok {
		return nil, model.NewUnexpectedResponseShapeError("네이버 자동완성")
	}
	if string(itemsRaw) == "null" {
		return nil, nil
	}

	var items [][][]any
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		return nil, model.NewUnexpectedResponseShapeError("네이버 자동완성")
	}

	var suggestions []string
	for _, group := range items {
		for _, tuple := range group {
			if len(tuple) == 0 {
				continue
			}
			if term, ok := tuple[0].(string); ok && term != "" {
				suggestions = append(suggestions, term)
			}
		}
	}
	return suggestions, nil
}

// GoogleProvider 는 구글 Suggest API를 조회한다.
type GoogleProvider struct {
	fetcher Fetcher
}

// NewGoogleProvider 는 GoogleProvider를 생성한다.
func NewGoogleProvider(fetcher Fetcher) *GoogleProvider {
	return &GoogleProvider{fetcher: fetcher}
}

func (p *GoogleProvider) Name() string { return "google" }

// Suggest 는 질의어에 대한 구글 추천검색어를 반환한다.
func (p *GoogleProvider) Suggest(ctx context.Context, query string) ([]string, error) {
	reqURL := fmt.Sprintf(googleSuggestURLFormat, url.QueryEscape(query))
	body, err := p.fetcher.FetchText(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	return parseGoogleSuggest([]byte(body))
}

// parseGoogleSuggest 는 구글 Suggest 응답을 파싱한다.
// 형식은 [질의어, [추천어, ...], ...] 의 혼합 배열이다.
func parseGoogleSuggest(raw []byte) ([]string, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, model.NewUnexpectedResponseShapeError("구글 추천검색어")
	}
	if len(arr) < 2 {
		return nil, model.NewUnexpectedResponseShapeError("구글 추천검색어")
	}

	var suggestions []string
	if err := json.Unmarshal(arr[1], &suggestions); err != nil {
		return nil, model.NewUnexpectedResponseShapeError("구글 추천검색어")
	}
	return suggestions, nil
}
