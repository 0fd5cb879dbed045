package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/middlewares"
	"github.com/bakeledger/prodcost_backend/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const defaultPort = "8080"

func newRouter() *gin.Engine {
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Correlation-Id")
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.AuthMiddleware())

	r.GET("/healthz", healthHandler)

	api := r.Group("/api")
	{
		api.POST("/login", loginHandler)

		api.GET("/materials", listMaterialsHandler)
		api.POST("/materials", createMaterialHandler)
		api.GET("/materials/:id/stock", materialStockHandler)
		api.GET("/materials/:id/consumption-plan", consumptionPlanHandler)
		api.GET("/materials/:id/stock-events", stockEventsHandler)

		api.POST("/suppliers", createSupplierHandler)
		api.POST("/supplier-offers", setSupplierOfferHandler)

		api.GET("/nodes", listNodesHandler)
		api.POST("/nodes", createNodeHandler)
		api.GET("/nodes/:id", getNodeHandler)
		api.GET("/nodes/:id/cost", nodeCostHandler)
		api.GET("/nodes/:id/cost-breakdown", nodeCostBreakdownHandler)
		api.GET("/nodes/:id/stock", nodeStockHandler)

		api.POST("/stock-adjustments", stockAdjustmentHandler)
		api.POST("/stock-imports", stockImportHandler)

		api.GET("/productions", listProductionsHandler)
		api.POST("/productions", postProductionHandler)
	}

	return r
}

func healthHandler(c *gin.Context) {
	if config.GetDB() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	router := newRouter()
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start listening first, then connect backends;
	// /healthz reports "starting" until the DB is up.
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Print("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
}
