// Package rank 는 URL 정규화, 영역별 순위 판정, 순위 변화 분석을 제공한다.
package rank

import (
	"regexp"
	"strings"
)

// schemePrefixRe 는 스킴과 www. 접두사를 한 번에 제거한다.
var schemePrefixRe = regexp.MustCompile(`^(https?://)?(www\.)?`)

// Normalize 는 URL을 비교 가능한 정규형으로 변환한다.
// 스킴, www. 접두사, 쿼리스트링, 끝 슬래시를 제거하고 소문자로 변환한다.
// 순수 함수이며 멱등하다.
func Normalize(rawURL string) string {
	s := schemePrefixRe.ReplaceAllString(rawURL, "")
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "/")
	return strings.ToLower(s)
}

// IsSamePost 는 두 URL이 같은 포스트를 가리키는지 판정한다.
// 정규형이 일치하거나, 한쪽 정규형이 다른 쪽을 부분 문자열로 포함하면 같은 포스트로 본다.
// 포함 판정은 트래킹 파라미터 등으로 변형된 URL을 허용하기 위한 의도된 느슨함이며,
// 짧은 슬러그에서는 오탐 가능성이 있다 (예: /abc 와 /abc123).
func IsSamePost(a, b string) bool {
	na := Normalize(a)
	nb := Normalize(b)
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
