package middleware

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func CORSMiddleware() gin.HandlerFunc {
	originEnv := os.Getenv("ORIGIN_URL")

	allowedOrigins := []string{
		"http://localhost:5173",
	}

	if originEnv != "" {
		allowedOrigins = append(allowedOrigins, originEnv)
	}

	// AllowCredentials is what lets the browser send the session
	// cookie along and store rotated ones from Set-Cookie.
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	})
}
