package rest

import (
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/abcfe/abcfe-vault/common/logger"
	"golang.org/x/time/rate"
)

var (
	ErrTooManyAttempts = errors.New("too many attempts, try again later")
	ErrForeignHost     = errors.New("request is not addressed to the local vault")
	ErrContentType     = errors.New("content type must be application/json")
)

// LoggingMiddleware HTTP request logging middleware. Bodies are never logged.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("Request:", r.Method, r.URL.Path, "Duration:", time.Since(start))
	})
}

// RecoveryMiddleware panic recovery middleware
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("API Panic recovered:", err)
				sendResp(w, http.StatusInternalServerError, nil, errors.New("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// LocalOnlyMiddleware rejects requests whose Host is neither loopback nor
// boundHost, and writes whose body is not declared as JSON.
func LocalOnlyMiddleware(boundHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hostAllowed(r.Host, boundHost) {
				logger.Warn("rejected request for host ", r.Host, " from origin ", r.Header.Get("Origin"))
				sendResp(w, http.StatusForbidden, nil, ErrForeignHost)
				return
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
				if err != nil || mt != "application/json" {
					sendResp(w, http.StatusUnsupportedMediaType, nil, ErrContentType)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hostAllowed(hostport, boundHost string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "" {
		return false
	}
	if isLoopbackHost(host) {
		return true
	}
	return boundHost != "" && strings.EqualFold(host, strings.Trim(boundHost, "[]"))
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// isLoopback reports whether addr is a loopback host:port
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return isLoopbackHost(strings.Trim(host, "[]"))
}

// ActivityMiddleware reports requests to fn, used to defer auto-lock
func ActivityMiddleware(fn func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// status polling does not keep the vault open
			if fn != nil && !strings.HasSuffix(r.URL.Path, "/status") {
				fn()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects requests beyond limiter with 429
func RateLimit(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			logger.Warn("rate limit hit on ", r.URL.Path)
			sendResp(w, http.StatusTooManyRequests, nil, ErrTooManyAttempts)
			return
		}
		next(w, r)
	}
}

// NewUnlockLimiter allows perMinute attempts with the given burst
func NewUnlockLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
}
