package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	{
		api.GET("/topics", handler.ListTopics)
		api.POST("/topics", handler.CreateTopic)
		api.GET("/topics/:id/stats", handler.GetTopicStats)
		api.GET("/topics/:id/articles", handler.ListTopicArticles)
		api.GET("/topics/:id/articles/:date", handler.ListTopicArticlesForDay)

		api.GET("/feeds", handler.ListFeeds)
		api.POST("/feeds", handler.CreateFeed)
		api.POST("/feeds/:id/download", handler.DownloadFeed)

		api.POST("/dispatch", handler.DispatchAll)
		api.POST("/stats/refresh", handler.RefreshStats)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Newswatch",
			"description": "Topic mention tracker over RSS/Atom feeds",
			"endpoints": map[string]string{
				"health":   "/health",
				"topics":   "/api/topics",
				"feeds":    "/api/feeds",
				"stats":    "/api/topics/<id>/stats?unit=day|week&reference=YYYY-MM-DD",
				"articles": "/api/topics/<id>/articles?min_date&max_date&limit&offset",
				"day":      "/api/topics/<id>/articles/<YYYY-MM-DD>",
				"dispatch": "/api/dispatch (POST)",
				"download": "/api/feeds/<id>/download (POST)",
				"refresh":  "/api/stats/refresh (POST)",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}
