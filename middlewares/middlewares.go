package middlewares

import (
	"crypto-collector/utility"
	"crypto-collector/utility/errorcode"
	"crypto-collector/utility/logger"
	"crypto-collector/utility/response"
	"encoding/json"
	"net/http"
	"time"
)

// Middleware ... Middleware struct
type Middleware struct {
	next http.Handler
}

// NewMiddleware ... Creates a middleware instance
func NewMiddleware(handler http.HandlerFunc) *Middleware {
	return &Middleware{next: handler}
}

// Build ... Build midlleware functions
func (m *Middleware) Build() http.HandlerFunc {
	return m.next.ServeHTTP
}

// LogAPIRequests ... Logs every incoming request
func (m *Middleware) LogAPIRequests() *Middleware {
	next := m.next
	return &Middleware{next: http.HandlerFunc(func(responseWriter http.ResponseWriter, requestReader *http.Request) {
		start := time.Now()
		logger.Info("Incoming request from : %s with IP : %s to : %s %s", requestReader.UserAgent(), utility.GetIPAddress(requestReader), requestReader.Method, requestReader.URL.Path)
		next.ServeHTTP(responseWriter, requestReader)
		logger.Debug("Request to %s %s served in %s", requestReader.Method, requestReader.URL.Path, time.Since(start))
	})}
}

// Timeout ... cancels the request context after the given duration; zero leaves it unbounded
func (m *Middleware) Timeout(timeout time.Duration) *Middleware {
	if timeout <= 0 {
		return m
	}
	body, _ := json.Marshal(response.New().PlainError(errorcode.SERVER_ERR_CODE, errorcode.SYSTEM_ERR))
	return &Middleware{next: http.TimeoutHandler(m.next, timeout, string(body))}
}
