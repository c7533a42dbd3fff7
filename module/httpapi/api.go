package httpapi

import (
	"net/http"

	"DProject/logger"
	eventstore "DProject/module/event/store"
	"DProject/module/feed"
	"DProject/module/readstate"
	"DProject/module/stats"
	"DProject/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// API 把重算 / 消息流 / 读态入口包成 HTTP。鉴权由外层网关负责，这里只认路径里的租户。
type API struct {
	Engine *stats.Engine
	Feed   *feed.Feed
	Read   *readstate.Manager
	Events *eventstore.Store
}

func New(engine *stats.Engine, f *feed.Feed, read *readstate.Manager, events *eventstore.Store) *API {
	return &API{Engine: engine, Feed: f, Read: read, Events: events}
}

// Register 挂路由。
func (a *API) Register(r *gin.Engine) {
	v1 := r.Group("/v1/:tenant")
	v1.POST("/dialogs/:dialog/stats/recalculate", a.recalcDialog)
	v1.POST("/packs/:pack/stats/recalculate", a.recalcPack)
	v1.POST("/packs/:pack/user-stats/recalculate", a.recalcUserPack)
	v1.POST("/users/:user/stats/recalculate", a.recalcUser)
	v1.GET("/packs/:pack/messages", a.packMessages)
	v1.PUT("/dialogs/:dialog/members/:user/unread", a.setUnread)
	v1.GET("/events", a.queryEvents)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
}

func fail(c *gin.Context, err error) {
	code := errs.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case errs.ArgsError, errs.CursorError:
		status = http.StatusBadRequest
	case errs.RecordNotFoundError:
		status = http.StatusNotFound
	case errs.DuplicateKeyError:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"code": code, "msg": err.Error()})
}
