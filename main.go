package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"cart-gateway/config"
	_ "cart-gateway/docs"
	"cart-gateway/engine"
	"cart-gateway/middleware"
	"cart-gateway/routes"
	"cart-gateway/services"
)

// @title Cart Gateway API
// @version 1.0
// @description Edge gateway for the storefront cart: proxies cart operations to the authoritative cart engine while preserving session cookies.
// @BasePath /
func main() {

	config.LoadConfig()

	if config.AppConfig.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	engineURL := config.AppConfig.EngineURL
	if engineURL == "" {
		// No upstream configured: mount the in-process engine and point
		// the gateway at itself. Local development needs nothing else.
		eng := engine.New(engine.NewSessionStore(config.AppConfig.SessionTTL), config.AppConfig.SessionTTL)
		eng.Register(router.Group("/engine"))
		engineURL = "http://127.0.0.1:" + config.AppConfig.Port + "/engine"
		log.Println("ENGINE_URL not set, using in-process cart engine")
	}

	client := services.NewCartClient(engineURL, nil)
	routes.SetupRoutes(router, client)

	port := ":" + config.AppConfig.Port
	log.Printf("Server starting on port %s", port)
	log.Printf("Environment: %s", config.AppConfig.AppEnv)
	log.Printf("Cart engine: %s", engineURL)
	log.Printf("Swagger UI: http://localhost:%s/swagger/index.html", config.AppConfig.Port)

	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
