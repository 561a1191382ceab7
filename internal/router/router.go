package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/medimeet/consult-api/internal/handler"
	bookingHandler "github.com/medimeet/consult-api/internal/handler/booking"
	heartbeatHandler "github.com/medimeet/consult-api/internal/handler/heartbeat"
	meetingHandler "github.com/medimeet/consult-api/internal/handler/meeting"
	prometheusHandler "github.com/medimeet/consult-api/internal/handler/prometheus"
	slotHandler "github.com/medimeet/consult-api/internal/handler/slot"
	"github.com/medimeet/consult-api/internal/middleware"
)

type Config struct {
	// HeartbeatRate bounds how often one client may poll; doctors are
	// expected to poll on the order of seconds.
	HeartbeatRate  rate.Limit
	HeartbeatBurst int
	CORS           middleware.CORSConfig
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	config  Config
	metrics *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func initRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func NewRouter(auth *middleware.AuthMiddleware, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		config:  config,
		metrics: initRouterMetrics(),
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.CORS(config.CORS),
	)

	return r
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// Setup mounts all routes. Everything under /api/v1 requires a resolved
// identity; the heartbeat group additionally carries its own rate limit.
func (r *Router) Setup(
	h *handler.Handler,
	bookingH *bookingHandler.Handler,
	slotH *slotHandler.Handler,
	meetingH *meetingHandler.Handler,
	heartbeatH *heartbeatHandler.Handler,
	promH *prometheusHandler.Handler,
) {
	r.engine.GET("/healthz", h.HealthCheck)
	promH.RegisterRoutes(r.engine)

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())

	bookingH.RegisterRoutes(api)
	slotH.RegisterRoutes(api)
	meetingH.RegisterRoutes(api)

	heartbeatLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.HeartbeatRate,
		Burst: r.config.HeartbeatBurst,
	})
	hb := api.Group("")
	hb.Use(heartbeatLimiter.RateLimit())
	heartbeatH.RegisterRoutes(hb)
}
