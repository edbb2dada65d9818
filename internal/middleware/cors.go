package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns a middleware permitting browser access from any origin.
// Range headers are allowed and exposed so viewers can stream chunked
// array data directly.
func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept",
			"Accept-Encoding", "Cache-Control", "Range", "X-Requested-With",
			"X-Remote-User",
		},
		ExposeHeaders: []string{
			"Content-Length", "Content-Range", "Accept-Ranges",
			"Content-Disposition", "Content-Type",
		},
		MaxAge: 12 * time.Hour,
	}
	return cors.New(cfg)
}
