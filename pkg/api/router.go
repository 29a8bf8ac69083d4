package api

import (
	"github.com/gin-gonic/gin"

	"github.com/LENAX/dag-engine/pkg/api/handler"
	"github.com/LENAX/dag-engine/pkg/api/middleware"
	"github.com/LENAX/dag-engine/pkg/core/engine"
)

// SetupRouter 设置路由，cron可为nil
func SetupRouter(eng *engine.Engine, cron *engine.CronScheduler, version string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	dagHandler := handler.NewDagHandler(eng, cron)
	runHandler := handler.NewRunHandler(eng)
	eventHandler := handler.NewEventHandler(eng.EventBus())
	healthHandler := handler.NewHealthHandler(version)

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		dags := v1.Group("/dags")
		{
			dags.GET("", dagHandler.List)
			dags.GET("/:name", dagHandler.Get)
			dags.POST("/:name/run", dagHandler.Run)
			dags.GET("/:name/last", dagHandler.Last)
		}

		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.List)
			runs.GET("/:id", runHandler.Get)
		}

		v1.GET("/events", eventHandler.Stream)
	}

	return router
}
