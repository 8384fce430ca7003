// Package middleware holds gin middleware shared across handlers,
// grounded on the teacher's internal/api/middleware package (CORS and
// Logger are filled in here since the teacher's copy called them without
// defining them).
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// ErrorHandler middleware handles panics, logs the recovered value through
// logger, and turns the panic into a JSON error body instead of a raw 500.
func ErrorHandler(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		message := "an unexpected error occurred"
		if err, ok := recovered.(string); ok {
			message = err
		}
		logger.Printf("panic recovered: %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": message,
			},
		})
		c.Abort()
	})
}

// CORS wraps rs/cors as a gin middleware, permissive by default (this is a
// local simulation tool, not a multi-tenant service).
func CORS() gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	handler := c.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
		ctx.Next()
	}
}

// Logger logs one line per request through logger: method, path, status,
// latency.
func Logger(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
