package main

import (
	"fmt"
	"log"
	"os"

	"fleema/internal/api/handlers"
	"fleema/internal/api/middleware"
	"fleema/internal/live"
	"fleema/internal/store"

	"github.com/gin-gonic/gin"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("RUN_REGISTRY_DB")
	if dbPath == "" {
		dbPath = "runs.db"
	}
	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("open run registry: %v", err)
	}

	broadcaster := live.New()
	defer broadcaster.Close()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	runHandler := handlers.NewRunHandler(st, broadcaster, logger)

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/runs", runHandler.SubmitRun)
		api.GET("/runs", runHandler.ListRuns)
		api.GET("/runs/:id", runHandler.GetRun)
		api.GET("/runs/:id/ws", runHandler.StreamRun)
		api.POST("/rank", runHandler.Rank)
	}

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "./web/dist"
	}
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		router.Static("/assets", staticDir+"/assets")
		router.StaticFile("/favicon.ico", staticDir+"/favicon.ico")
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path
			if len(path) >= 4 && path[:4] == "/api" {
				c.JSON(404, gin.H{"error": "not found"})
				return
			}
			c.File(staticDir + "/index.html")
		})
		log.Printf("serving static files from %s", staticDir)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
