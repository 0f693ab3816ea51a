package health

import (
	"context"
	"sync"
	"time"

	"github.com/DMarby/image-api/internal/cache"
	"github.com/DMarby/image-api/internal/logger"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// SelfTester verifies that a component works end to end
type SelfTester interface {
	SelfTest() error
}

// Checker is a periodic health checker
type Checker struct {
	Ctx    context.Context
	Codec  SelfTester
	Cache  cache.Provider // Optional
	status Status
	mutex  sync.RWMutex
	Log    *logger.Logger
}

// Status contains the healtcheck status
type Status struct {
	Healthy bool   `json:"healthy"`
	Codec   string `json:"codec,omitempty"`
	Cache   string `json:"cache,omitempty"`
}

// Run starts the health checker
func (c *Checker) Run() {
	ticker := time.NewTicker(checkInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	c.runCheck()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) unknownStatus(healthy bool) Status {
	status := Status{
		Healthy: healthy,
	}
	if c.Codec != nil {
		status.Codec = "unknown"
	}
	if c.Cache != nil {
		status.Cache = "unknown"
	}

	return status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(c.Ctx, checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go func() {
		c.check(ctx, channel)
	}()

	select {
	case <-ctx.Done():
		c.mutex.Lock()
		c.status = c.unknownStatus(false)
		c.mutex.Unlock()
		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	if ctx.Err() != nil {
		return
	}

	status := c.unknownStatus(true)

	if c.Codec != nil {
		if err := c.Codec.SelfTest(); err != nil {
			c.Log.Errorw("codec self test failed", "error", err)
			status.Healthy = false
			status.Codec = "unhealthy"
		} else {
			status.Codec = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); err != cache.ErrNotFound {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	channel <- status
}
