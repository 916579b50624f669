// Package model 은 도메인 모델을 정의한다.
package model

import "fmt"

// APIError 는 통일 에러 포맷을 나타낸다.
// UI에 그대로 표시할 수 있는 원인 분류와 대처 방법을 포함한다.
type APIError struct {
	Code     string // 에러 코드
	Message  string // 에러 메시지
	Category string // 분류: validation, fetch, tracker, system
	Action   string // 사용자 대처 방법
}

// Error 는 error 인터페이스를 구현한다.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 정의된 에러 코드
const (
	ErrCodeFetchExhausted          = "FETCH_EXHAUSTED"
	ErrCodeUnexpectedResponseShape = "UNEXPECTED_RESPONSE_SHAPE"
	ErrCodeTrackerNotFound         = "TRACKER_NOT_FOUND"
	ErrCodeTrackerLimit            = "TRACKER_LIMIT"
	ErrCodeInvalidURL              = "INVALID_URL"
	ErrCodeInvalidKeyword          = "INVALID_KEYWORD"
	ErrCodeSSRFBlocked             = "SSRF_BLOCKED"
)

// NewFetchTimeoutError 는 모든 프록시가 제한 시간 내에 응답하지 못한 경우의 에러를 생성한다.
func NewFetchTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeFetchExhausted,
		Message:  "요청 시간이 초과되었습니다. 네트워크 연결이 느리거나 모든 프록시 서버가 응답하지 않습니다.",
		Category: "fetch",
		Action:   "잠시 후 다시 시도해 주세요.",
	}
}

// NewFetchNetworkError 는 모든 프록시에 연결 자체가 실패한 경우의 에러를 생성한다.
func NewFetchNetworkError() *APIError {
	return &APIError{
		Code:     ErrCodeFetchExhausted,
		Message:  "네트워크 요청에 실패했습니다. 모든 프록시 서버에 연결할 수 없습니다. 인터넷 연결 또는 보안 설정을 확인하거나 잠시 후 다시 시도해 주세요.",
		Category: "fetch",
		Action:   "인터넷 연결을 확인한 후 다시 시도해 주세요.",
	}
}

// NewFetchExhaustedError 는 모든 프록시 전략과 재시도가 소진된 경우의 일반 에러를 생성한다.
// 마지막으로 발생한 하위 에러의 메시지를 포함한다.
func NewFetchExhaustedError(lastErr error) *APIError {
	lastMsg := "알 수 없는 오류"
	if lastErr != nil {
		lastMsg = lastErr.Error()
	}
	return &APIError{
		Code:     ErrCodeFetchExhausted,
		Message:  fmt.Sprintf("모든 프록시 서버에서 데이터를 가져오는 데 실패했습니다. 마지막 오류: %s", lastMsg),
		Category: "fetch",
		Action:   "잠시 후 다시 시도해 주세요.",
	}
}

// NewUnexpectedResponseShapeError 는 응답 본문이 기대한 구조와 다른 경우의 에러를 생성한다.
// 구조 불일치는 재시도로 해결되지 않으므로 즉시 호출자에게 전파한다.
func NewUnexpectedResponseShapeError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeUnexpectedResponseShape,
		Message:  fmt.Sprintf("%s로부터 예상치 못한 형식의 응답을 받았습니다.", provider),
		Category: "fetch",
		Action:   "일시적인 문제일 수 있습니다. 계속되면 문의해 주세요.",
	}
}

// NewTrackerNotFoundError 는 추적 항목이 존재하지 않는 경우의 에러를 생성한다.
func NewTrackerNotFoundError(trackerID string) *APIError {
	return &APIError{
		Code:     ErrCodeTrackerNotFound,
		Message:  fmt.Sprintf("추적 항목을 찾을 수 없습니다: %s", trackerID),
		Category: "tracker",
		Action:   "추적 항목 ID를 확인해 주세요.",
	}
}

// NewTrackerLimitError 는 플랜별 추적 한도를 초과한 경우의 에러를 생성한다.
// 호출자가 현재/한도 수치를 사용자에게 보여줄 수 있도록 메시지에 포함한다.
func NewTrackerLimitError(current, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeTrackerLimit,
		Message:  fmt.Sprintf("랭킹 추적 한도를 초과했습니다. (%d/%d)", current, limit),
		Category: "tracker",
		Action:   "불필요한 추적 항목을 삭제하거나 플랜을 업그레이드하세요.",
	}
}

// NewInvalidURLError 는 URL 형식이 잘못된 경우의 에러를 생성한다.
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("유효하지 않은 URL입니다: %s", reason),
		Category: "validation",
		Action:   "http:// 또는 https:// 로 시작하는 올바른 URL을 입력해 주세요.",
	}
}

// NewInvalidKeywordError 는 키워드가 비어있는 경우의 에러를 생성한다.
func NewInvalidKeywordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidKeyword,
		Message:  "키워드가 비어있습니다.",
		Category: "validation",
		Action:   "분석할 키워드를 입력해 주세요.",
	}
}

// NewSSRFBlockedError 는 보안 정책에 의해 차단된 URL에 대한 에러를 생성한다.
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "보안 정책에 의해 해당 URL로의 접근이 차단되었습니다.",
		Category: "validation",
		Action:   "공개된 웹사이트의 URL을 입력해 주세요. 사설 네트워크 주소는 허용되지 않습니다.",
	}
}
