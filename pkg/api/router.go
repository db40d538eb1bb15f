package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/relaykit/go-submitq/pkg/config"
	"github.com/relaykit/go-submitq/pkg/processor"
	"github.com/relaykit/go-submitq/pkg/store"
)

// SetupRouter wires the ingress routes the browser forms POST to.
func SetupRouter(log *zap.Logger, cfg config.ServerSettings, proc *processor.SubmissionProcessor, repo store.SubmissionRepository) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(corsMiddleware(cfg.CORS))

	h := &submissionHandler{proc: proc, repo: repo, log: log}

	apiGroup := router.Group("/api")
	apiGroup.POST("/submissions", h.submit)
	apiGroup.GET("/queue", h.queue)
	apiGroup.GET("/history", h.history)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": proc.Online()})
	})

	return router
}
