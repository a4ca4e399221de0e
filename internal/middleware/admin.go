package middleware

import (
	"crypto/hmac"
	"net/http"
)

const adminKeyHeader = "X-Admin-Key"

// AdminAuth ограничивает доступ к административным маршрутам по общему секрету.
type AdminAuth struct {
	secret []byte
}

// NewAdminAuth создаёт middleware административного доступа. Пустой секрет
// закрывает административные маршруты полностью.
func NewAdminAuth(secret string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret)}
}

// Middleware проверяет заголовок X-Admin-Key. Сравнение выполняется за постоянное время.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(adminKeyHeader)
		if len(a.secret) == 0 || key == "" || !hmac.Equal([]byte(key), a.secret) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
