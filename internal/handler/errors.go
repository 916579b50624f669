package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/seungwoo/rankwatch/internal/middleware"
	"github.com/seungwoo/rankwatch/internal/model"
)

// handleServiceError 는 서비스 계층에서 반환된 에러를 적절한 HTTP 상태 코드로 변환한다.
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError 이외의 에러는 내부 서버 에러로 취급한다
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus 는 APIError 코드를 HTTP 상태 코드로 매핑한다.
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidURL, model.ErrCodeInvalidKeyword:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeTrackerNotFound:
		return http.StatusNotFound
	case model.ErrCodeTrackerLimit:
		return http.StatusConflict
	case model.ErrCodeUnexpectedResponseShape:
		return http.StatusUnprocessableEntity
	case model.ErrCodeFetchExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeUnauthorized 는 사용자 식별이 없는 요청에 대한 401 응답을 쓴다.
func writeUnauthorized(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "사용자 인증이 필요합니다.",
		Category: "auth",
		Action:   "X-User-ID 헤더를 포함해 다시 요청해 주세요.",
	})
}
