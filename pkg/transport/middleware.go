package transport

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/domain/model"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade pass through the logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}).Info("got a new request")
	})
}

type Authenticator interface {
	Authenticate(ctx context.Context, prefix, accessToken string) (*model.User, error)
}

type userKey struct{}

func withUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func currentUser(r *http.Request) *model.User {
	user, _ := r.Context().Value(userKey{}).(*model.User)
	return user
}

func bearer(r *http.Request) (prefix, token string, err error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	prefix, token, ok := strings.Cut(header, " ")
	if !ok || prefix == "" || strings.TrimSpace(token) == "" {
		return "", "", model.ErrMissingToken
	}
	return prefix, strings.TrimSpace(token), nil
}

// guard authenticates the access token and checks the caller's role against roles.
func guard(auth Authenticator, roles ...model.UserRole) func(http.HandlerFunc) http.Handler {
	return func(next http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefix, token, err := bearer(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			user, err := auth.Authenticate(r.Context(), prefix, token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !hasRole(user, roles) {
				writeError(w, r, model.ErrRoleNotAllowed)
				return
			}
			next(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func hasRole(user *model.User, roles []model.UserRole) bool {
	for _, role := range roles {
		if user.Role == role {
			return true
		}
	}
	return false
}
