package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

type GroupHandler struct {
	svc *service.GroupService
}

func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type createGroupReq struct {
	Name        string `json:"name" binding:"required,max=64"`
	Description string `json:"description" binding:"max=512"`
}

type groupIDReq struct {
	GroupID uint64 `json:"group_id" binding:"required"`
}

type updateMemberReq struct {
	Role   string `json:"role" binding:"required,oneof=admin moderator member"`
	Status string `json:"status" binding:"required,oneof=active pending invited banned left"`
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	g, err := h.svc.Create(c.Request.Context(), userIDFromCtx(c), req.Name, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "group": g})
}

func (h *GroupHandler) Join(c *gin.Context) {
	var req groupIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	changed, err := h.svc.Join(c.Request.Context(), userIDFromCtx(c), req.GroupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "changed": changed})
}

func (h *GroupHandler) Leave(c *gin.Context) {
	var req groupIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	changed, err := h.svc.Leave(c.Request.Context(), userIDFromCtx(c), req.GroupID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "changed": changed})
}

func (h *GroupHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), queryInt(c, "page"), queryInt(c, "size"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "list": list})
}

func (h *GroupHandler) Members(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.Members(c.Request.Context(), id, queryInt(c, "page"), queryInt(c, "size"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "list": list})
}

// UpdateMember 修改成员角色与状态，需要 manage 权限
func (h *GroupHandler) UpdateMember(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	uid, ok := paramID(c, "uid")
	if !ok {
		return
	}
	var req updateMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.UpdateMember(c.Request.Context(), userIDFromCtx(c), id, uid, req.Role, req.Status); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok"})
}
