package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/celebrum-signals/internal/api/handlers"
	"github.com/irfndi/celebrum-signals/internal/middleware"
)

// Dependencies are the collaborators the HTTP routes need.
type Dependencies struct {
	Analyzer     handlers.SignalAnalyzer
	SignalConfig handlers.SignalHandlerConfig
	Database     handlers.HealthChecker
	Redis        handlers.HealthChecker
	Gatherer     prometheus.Gatherer
	Version      string
	Logger       *logrus.Logger
}

// NewRouter returns a gin engine with recovery, tracing and request logging.
func NewRouter(serviceName string, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestLogger(logger))
	return router
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Redis, deps.Version)
	signalHandler := handlers.NewSignalHandler(deps.Analyzer, deps.SignalConfig, deps.Logger)

	router.GET("/health", healthHandler.HealthCheck)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		signals := v1.Group("/signals")
		{
			signals.GET("", signalHandler.GetSignals)
			signals.GET("/:symbol", signalHandler.GetSignal)
			signals.GET("/:symbol/labels", signalHandler.GetLabels)
		}
	}
}
