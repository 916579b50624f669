// Package middleware 는 HTTP 미들웨어를 제공한다.
package middleware

import (
	"context"
	"errors"
	"net/http"
)

// contextKey 는 컨텍스트에 값을 담기 위한 타입 안전 키.
type contextKey string

// userIDContextKey 는 사용자 ID를 담는 컨텍스트 키.
var userIDContextKey = contextKey("user_id")

// userIDHeader 는 상위 게이트웨이가 검증 후 붙여주는 사용자 식별 헤더.
const userIDHeader = "X-User-ID"

// ErrNoUserID 는 컨텍스트에 사용자 ID가 없을 때 반환된다.
var ErrNoUserID = errors.New("no user id in context")

// NewIdentityMiddleware 는 X-User-ID 헤더에서 사용자 ID를 추출해 컨텍스트에 넣는다.
// 인증 자체는 상위 게이트웨이의 책임이며, 이 서비스는 헤더를 신뢰한다.
// 헤더가 없는 요청은 401로 거부한다.
func NewIdentityMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(userIDHeader)
			if userID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext 는 요청 컨텍스트에서 사용자 ID를 꺼낸다.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", ErrNoUserID
	}
	return userID, nil
}

// WithUserID 는 테스트용으로 컨텍스트에 사용자 ID를 설정한다.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
