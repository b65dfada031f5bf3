package controller

import (
	"strconv"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/web/service"

	"github.com/gin-gonic/gin"
)

const defaultLogCount = 100

// QueueStats reports the counters of the sync queue.
type QueueStats interface {
	Stats() (handled, failed int64)
}

// ServerController exposes service status: version, backend host statistics, sync
// queue counters and recent log lines.
type ServerController struct {
	BaseController

	statsService *service.StatsService
	queue        QueueStats
}

// NewServerController creates a new ServerController and sets up its routes.
func NewServerController(g *gin.RouterGroup, statsService *service.StatsService, queue QueueStats) *ServerController {
	a := &ServerController{statsService: statsService, queue: queue}
	a.initRouter(g)
	return a
}

func (a *ServerController) initRouter(g *gin.RouterGroup) {
	g.GET("/status", a.status)
	g.GET("/logs", a.getLogs)
}

func (a *ServerController) status(c *gin.Context) {
	handled, failed := a.queue.Stats()
	obj := gin.H{
		"name":    config.GetName(),
		"version": config.GetVersion(),
		"queue":   gin.H{"handled": handled, "failed": failed},
	}
	stats, err := a.statsService.GetSystemStats(c.Request.Context())
	if err != nil {
		logger.Warning("get remote system stats failed: ", err)
	} else {
		obj["remote"] = stats
	}
	jsonObj(c, obj, nil)
}

// getLogs returns recent log lines; count and level are optional query parameters.
func (a *ServerController) getLogs(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(defaultLogCount)))
	if err != nil || count <= 0 {
		count = defaultLogCount
	}
	jsonObj(c, logger.GetLogs(count, c.DefaultQuery("level", "INFO")), nil)
}
