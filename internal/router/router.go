package router

import (
	"Extensible-Homework-Helper/internal/api"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(h *api.HomeworkHandler, allowedOrigins []string) *gin.Engine {
	r := gin.Default()

	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	r.Use(cors.New(config))

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/login", h.Login)
		apiV1.POST("/logout", h.Logout)
		apiV1.GET("/homework", h.List)

		item := apiV1.Group("/homework/:index")
		item.GET("/text", h.Text)
		item.POST("/text/download", h.DownloadText)
		item.GET("/audio", h.Audio)
		item.POST("/audio/download", h.DownloadAudio)
		item.POST("/audio/transcribe", h.Transcribe)
		item.GET("/answers", h.Answers)
		item.POST("/answers/generate", h.Generate)
		item.POST("/start", h.Start)
		item.POST("/fill", h.FillIn)
		item.POST("/submit", h.Submit)

		apiV1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "UP"})
		})
	}

	return r
}
