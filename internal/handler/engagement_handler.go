package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

type EngagementHandler struct {
	svc *service.EngagementService
}

func NewEngagementHandler(svc *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{svc: svc}
}

// engageReq active 缺省时按切换处理
type engageReq struct {
	Active *bool `json:"active"`
}

// Engage like/save 切换或设置，share 只记录一次；Comment 类型只支持 like
func (h *EngagementHandler) Engage(c *gin.Context) {
	action, ok := model.ParseAction(c.Param("action"))
	if !ok {
		badRequest(c, "unknown action")
		return
	}
	t, ok := paramType(c, false)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req engageReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid params")
			return
		}
	}

	ctx := c.Request.Context()
	uid := userIDFromCtx(c)
	var (
		st  model.EngagementState
		err error
	)
	if req.Active == nil {
		st, err = h.svc.Toggle(ctx, uid, t, id, action)
	} else {
		st, err = h.svc.Set(ctx, uid, t, id, action, *req.Active)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "active": st.Active, "count": st.Count, "changed": st.Changed})
}

// Flags 当前用户的互动状态
func (h *EngagementHandler) Flags(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	f, err := h.svc.Flags(c.Request.Context(), userIDFromCtx(c), t, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "flags": f})
}

func (h *EngagementHandler) Stats(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), userIDFromCtx(c), t, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "stats": st})
}
