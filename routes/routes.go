package routes

import (
	"cart-gateway/controllers"
	"cart-gateway/services"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRoutes(router *gin.Engine, client *services.CartClient) {
	cartCtrl := controllers.NewCartController(client)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	router.GET("/cart", cartCtrl.GetCart)
	router.POST("/cart/add", cartCtrl.AddItem)
	router.PUT("/cart/update/:line_id", cartCtrl.UpdateLine)
	router.DELETE("/cart/remove/:line_id", cartCtrl.RemoveLine)
}
