// Package logger provides logging utilities for the gateway.
package logger

import (
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorLog contains structured information about an error occurrence.
type ErrorLog struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	Path       string                 `json:"path,omitempty"`
	Method     string                 `json:"method,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// LogError logs a detailed error with contextual information.
func LogError(err error, message string, metadata map[string]interface{}) {
	log := GetLogger()

	errorLog := ErrorLog{
		Timestamp: time.Now().UTC(),
		Level:     "error",
		Message:   message,
		Metadata:  metadata,
	}

	// Add stack trace in non-production environments
	if os.Getenv("ENVIRONMENT") != "production" {
		errorLog.StackTrace = getStackTrace(2) // skip this function and its caller
	}

	fields := []interface{}{
		"timestamp", errorLog.Timestamp,
		"metadata", errorLog.Metadata,
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	if errorLog.StackTrace != "" {
		fields = append(fields, "stack_trace", errorLog.StackTrace)
	}

	log.Errorw(message, fields...)
}

// LogHTTPError logs an HTTP request error with context from a gin.Context.
func LogHTTPError(c *gin.Context, err error, statusCode int, message string) {
	userID, _ := c.Get("user_id")
	requestID, _ := c.Get("request_id")

	metadata := map[string]interface{}{
		"status_code": statusCode,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"client_ip":   c.ClientIP(),
		"headers":     filterSensitiveHeaders(c.Request.Header),
	}

	if userID != nil {
		metadata["user_id"] = userID
	}

	if requestID != nil {
		metadata["request_id"] = requestID
	}

	LogError(err, message, metadata)
}

// filterSensitiveHeaders drops credential-bearing headers before logging.
func filterSensitiveHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string)
	for key, values := range headers {
		switch strings.ToLower(key) {
		case "authorization", "cookie", "set-cookie", "x-csrf-token":
			filtered[key] = "[REDACTED]"
		default:
			filtered[key] = strings.Join(values, ",")
		}
	}
	return filtered
}

// getStackTrace returns a formatted stack trace, skipping the given number of frames.
func getStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+16; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		sb.WriteString(fn.Name())
		sb.WriteString("\n\t")
		sb.WriteString(file)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(line))
		sb.WriteString("\n")
	}
	return sb.String()
}
