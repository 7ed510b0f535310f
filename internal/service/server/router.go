package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter creates a configured gin engine serving one feed directory.
//
// Middleware chain:
//
//	Global:            Recovery → Logger
//	API and artifacts: RateLimit
//
// The health endpoint stays outside rate limiting so monitoring probes
// always work.
func NewRouter(dir string, requestsPerSecond float64, burst int) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/healthz", healthHandler(time.Now()))

	limit := RateLimit(requestsPerSecond, burst)

	v1 := r.Group("/api/v1")
	v1.Use(limit)
	v1.GET("/release", releaseHandler(dir))

	// Everything else resolves against the feed directory.
	r.NoRoute(limit, artifactHandler(dir))

	return r
}
