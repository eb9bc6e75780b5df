package monitoring

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"concert-ticketing/utils"
)

// StartMetricsServer runs the Prometheus scrape endpoint on its own port,
// separate from the API server. Returns immediately.
func StartMetricsServer(port string, redisClient *redis.Client) {
	e := echo.New()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		if redisClient != nil {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	server := &http.Server{
		Addr:    ":" + port,
		Handler: e,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
}
