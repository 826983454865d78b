package common

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthResponse is the payload for health and probe endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
}

// CheckStatus describes the outcome of one dependency check.
type CheckStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// HealthCheck returns a basic health endpoint.
func HealthCheck(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "healthy",
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
		})
	}
}

// LivenessProbe always reports alive while the process is serving.
func LivenessProbe(serviceName, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:    "alive",
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
		})
	}
}

// ReadinessProbe reports ready only when every dependency check passes.
// Checks run in parallel; a single failure flips the response to 503.
func ReadinessProbe(serviceName, version string, checks map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		type checkResult struct {
			name     string
			err      error
			duration time.Duration
		}

		resultChan := make(chan checkResult, len(checks))
		var wg sync.WaitGroup
		for name, checkFunc := range checks {
			wg.Add(1)
			go func(n string, cf func() error) {
				defer wg.Done()
				start := time.Now()
				resultChan <- checkResult{name: n, err: cf(), duration: time.Since(start)}
			}(name, checkFunc)
		}
		go func() {
			wg.Wait()
			close(resultChan)
		}()

		status := "ready"
		httpStatus := http.StatusOK
		checkResults := make(map[string]CheckStatus)
		for result := range resultChan {
			if result.err != nil {
				checkResults[result.name] = CheckStatus{
					Status:   "unhealthy",
					Message:  result.err.Error(),
					Duration: result.duration.String(),
				}
				status = "not_ready"
				httpStatus = http.StatusServiceUnavailable
				continue
			}
			checkResults[result.name] = CheckStatus{
				Status:   "healthy",
				Duration: result.duration.String(),
			}
		}

		c.JSON(httpStatus, HealthResponse{
			Status:    status,
			Service:   serviceName,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Checks:    checkResults,
		})
	}
}
