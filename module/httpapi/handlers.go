package httpapi

import (
	"strconv"

	eventstore "DProject/module/event/store"
	"DProject/module/feed"
	"DProject/module/stats"
	"DProject/tools/errs"

	"github.com/gin-gonic/gin"
)

func recalcOptions(c *gin.Context, entityID string) stats.Options {
	return stats.Options{
		SourceOperation: "api." + c.Request.Method + c.FullPath(),
		SourceEntityID:  entityID,
	}
}

func (a *API) recalcDialog(c *gin.Context) {
	row, err := a.Engine.RecalculateDialogStats(c.Request.Context(), c.Param("tenant"), c.Param("dialog"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, row)
}

func (a *API) recalcPack(c *gin.Context) {
	packID := c.Param("pack")
	row, err := a.Engine.RecalculatePackStats(c.Request.Context(), c.Param("tenant"), packID, recalcOptions(c, packID))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, row)
}

func (a *API) recalcUserPack(c *gin.Context) {
	packID := c.Param("pack")
	rows, err := a.Engine.RecalculateUserPackStats(c.Request.Context(), c.Param("tenant"), packID, recalcOptions(c, packID))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rows)
}

func (a *API) recalcUser(c *gin.Context) {
	row, err := a.Engine.RecalculateUserStats(c.Request.Context(), c.Param("tenant"), c.Param("user"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, row)
}

func (a *API) packMessages(c *gin.Context) {
	limit, err := parseInt64(c.Query("limit"))
	if err != nil {
		fail(c, errs.ErrArgs.WrapMsg("bad limit", "limit", c.Query("limit")))
		return
	}
	page, err := a.Feed.GetPackMessages(c.Request.Context(), c.Param("tenant"), c.Param("pack"), feed.Options{
		Limit:  limit,
		Cursor: c.Query("cursor"),
		UserID: c.Query("user_id"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, page)
}

type setUnreadReq struct {
	UnreadCount int64 `json:"unread_count"`
	ReadUntil   int64 `json:"read_until"` // 毫秒时间戳，0 表示不带
}

func (a *API) setUnread(c *gin.Context) {
	var req setUnreadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrArgs.WrapMsg("bad body"))
		return
	}
	row, err := a.Read.SetUnreadCount(c.Request.Context(),
		c.Param("tenant"), c.Param("dialog"), c.Param("user"), req.UnreadCount, req.ReadUntil)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, row)
}

func (a *API) queryEvents(c *gin.Context) {
	limit, err := parseInt64(c.Query("limit"))
	if err != nil {
		fail(c, errs.ErrArgs.WrapMsg("bad limit", "limit", c.Query("limit")))
		return
	}
	from, err := parseInt64(c.Query("from"))
	if err != nil {
		fail(c, errs.ErrArgs.WrapMsg("bad from", "from", c.Query("from")))
		return
	}
	to, err := parseInt64(c.Query("to"))
	if err != nil {
		fail(c, errs.ErrArgs.WrapMsg("bad to", "to", c.Query("to")))
		return
	}
	rows, err := a.Events.Query(c.Request.Context(), c.Param("tenant"), eventstore.Filter{
		EventType:  c.Query("event_type"),
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		ActorID:    c.Query("actor_id"),
		FromMS:     from,
		ToMS:       to,
	}, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rows)
}

func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
