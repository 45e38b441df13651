package main

import (
	"context"
	"log"
	"log/slog"

	"wisgen/internal/app"
	"wisgen/internal/config"
	"wisgen/internal/handler"
	"wisgen/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("error setting up logging: %v", err)
	}
	defer logCloser.Close()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("error starting services: %v", err)
	}
	defer a.Close()

	tmpl, err := handler.Templates()
	if err != nil {
		log.Fatalf("error parsing templates: %v", err)
	}

	newsletterHandler := handler.NewNewsletterHandler(a.Layout, a.Ingest)
	digestHandler := handler.NewDigestHandler(a.Transformer.Strict(), cfg.LLM.Model)
	insightsHandler := handler.NewInsightsHandler(a.Insights)
	batchHandler := handler.NewBatchHandler(a.Batches, cfg.WorkspaceRoot)
	pageHandler := handler.NewPageHandler(a.Layout, a.Insights)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), handler.Recovery())
	r.SetHTMLTemplate(tmpl)

	slog.Info("AllowOrigins URL:", "urls", cfg.AllowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	api := r.Group("/api")
	api.POST("/pull-newsletters", newsletterHandler.Pull)
	api.GET("/get-newsletters", newsletterHandler.List)
	api.GET("/get-newsletter-content", newsletterHandler.Content)
	api.POST("/gemini-process", digestHandler.Process)
	api.POST("/analyze-insights", insightsHandler.Analyze)
	api.GET("/run-python-script", insightsHandler.RunScript)
	api.GET("/get-insights", insightsHandler.Latest)
	api.GET("/get-insights-content", insightsHandler.LatestContent)
	api.GET("/batches", batchHandler.GetBatches)
	api.GET("/batches/:id", batchHandler.GetBatch)

	r.GET("/health", batchHandler.GetHealth)

	r.GET("/", pageHandler.Index)
	r.GET("/newsletter/:filename", pageHandler.Reader)
	r.GET("/insights", pageHandler.Insights)
	r.GET("/generate-insights", pageHandler.GenerateInsights)

	slog.Info("starting server", "addr", cfg.Addr, "workspace", cfg.WorkspaceRoot)

	err = r.Run(cfg.Addr)
	if err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
