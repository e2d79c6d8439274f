// Package server serves views over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-xview/internal/app"
	"github.com/goliatone/go-xview/pkg/ginview"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

const defaultAction = "index"

// NewRouter builds the gin engine: health and metrics endpoints plus the
// conventional "/{controller}/{action}" view routes.
func NewRouter(a *app.App) *gin.Engine {
	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(requestLogger(a.Logger.WithName("http")))
	r.Use(gin.Recovery())
	r.Use(ginview.Middleware(a.Engine))
	r.HTMLRender = ginview.New(a.Engine)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "plugins": a.Registry.Len(), "programs": a.Cache.Len()})
	})
	if a.Config.Server.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{})))
	}

	r.GET("/", func(c *gin.Context) {
		renderRoute(c, "Home", defaultAction)
	})
	r.GET("/:controller/*action", func(c *gin.Context) {
		action := strings.Trim(c.Param("action"), "/")
		if action == "" {
			action = defaultAction
		}
		renderRoute(c, c.Param("controller"), action)
	})
	return r
}

// renderRoute renders {controller}/{action} with the request details as the
// model.
func renderRoute(c *gin.Context, controller, action string) {
	if strings.Contains(action, "/") || strings.HasPrefix(controller, ".") || strings.HasPrefix(action, ".") {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	c.Params = upsertParam(upsertParam(c.Params, "controller", controller), "action", action)
	model := map[string]string{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"host":       c.Request.Host,
		"controller": controller,
		"action":     action,
	}
	if id, ok := c.Get(RequestIDHeader); ok {
		model["requestId"] = fmt.Sprint(id)
	}
	ginview.HTML(c, http.StatusOK, controller+"/"+action, model)
}

func upsertParam(params gin.Params, key, value string) gin.Params {
	for idx := range params {
		if params[idx].Key == key {
			params[idx].Value = value
			return params
		}
	}
	return append(params, gin.Param{Key: key, Value: value})
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Set(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		keysAndValues := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"requestId", c.GetString(RequestIDHeader),
		}
		if err := c.Errors.Last(); err != nil {
			logger.Error(err.Err, "request failed", keysAndValues...)
			return
		}
		logger.Info("request", keysAndValues...)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, a *app.App) error {
	srv := &http.Server{
		Addr:         a.Config.Server.Listen,
		Handler:      NewRouter(a),
		ReadTimeout:  time.Duration(a.Config.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(a.Config.Server.WriteTimeoutMs) * time.Millisecond,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("xview listening", "addr", srv.Addr, "views", a.Cache.Resolver().ViewRoot)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
