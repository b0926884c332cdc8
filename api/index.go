package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"cart-gateway/config"
	"cart-gateway/engine"
	"cart-gateway/middleware"
	"cart-gateway/routes"
	"cart-gateway/services"
)

var (
	router *gin.Engine
	once   sync.Once
)

func initApp() {
	once.Do(func() {
		gin.SetMode(gin.ReleaseMode)

		config.LoadConfig()

		router = gin.New()
		router.Use(gin.Recovery())
		router.Use(middleware.CORSMiddleware())

		engineURL := config.AppConfig.EngineURL
		if engineURL == "" {
			eng := engine.New(engine.NewSessionStore(config.AppConfig.SessionTTL), config.AppConfig.SessionTTL)
			eng.Register(router.Group("/engine"))
			engineURL = "http://127.0.0.1:" + config.AppConfig.Port + "/engine"
		}

		routes.SetupRoutes(router, services.NewCartClient(engineURL, nil))
	})
}

func Handler(w http.ResponseWriter, r *http.Request) {
	initApp()
	router.ServeHTTP(w, r)
}
