package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

type FollowHandler struct {
	svc *service.FollowService
}

func NewFollowHandler(svc *service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

type followReq struct {
	FolloweeID uint64 `json:"followee_id" binding:"required"`
	Action     string `json:"action" binding:"required,oneof=follow unfollow block unblock mute unmute"`
}

type followRequestReq struct {
	FollowerID uint64 `json:"follower_id" binding:"required"`
	Action     string `json:"action" binding:"required,oneof=accept reject"`
}

// Follow 关注关系变更接口
func (h *FollowHandler) Follow(c *gin.Context) {
	var req followReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	ctx := c.Request.Context()
	uid := userIDFromCtx(c)
	var (
		changed bool
		status  model.RelationStatus
		err     error
	)
	switch req.Action {
	case "follow":
		changed, status, err = h.svc.Follow(ctx, uid, req.FolloweeID)
	case "unfollow":
		changed, err = h.svc.Unfollow(ctx, uid, req.FolloweeID)
	case "block":
		changed, err = h.svc.Block(ctx, uid, req.FolloweeID)
	case "unblock":
		changed, err = h.svc.Unblock(ctx, uid, req.FolloweeID)
	case "mute":
		changed, err = h.svc.Mute(ctx, uid, req.FolloweeID)
	case "unmute":
		changed, err = h.svc.Unmute(ctx, uid, req.FolloweeID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	resp := gin.H{"code": "ok", "changed": changed}
	if status != "" {
		resp["status"] = status
	}
	c.JSON(http.StatusOK, resp)
}

// Respond 处理待确认的关注请求
func (h *FollowHandler) Respond(c *gin.Context) {
	var req followRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	var (
		changed bool
		err     error
	)
	if req.Action == "accept" {
		changed, err = h.svc.Accept(c.Request.Context(), userIDFromCtx(c), req.FollowerID)
	} else {
		changed, err = h.svc.Reject(c.Request.Context(), userIDFromCtx(c), req.FollowerID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "changed": changed})
}

// ListFollowings 获取关注者列表
func (h *FollowHandler) ListFollowings(c *gin.Context) {
	rows, next, err := h.svc.ListFollowings(c.Request.Context(), queryUint(c, "user_id"), queryUint(c, "cursor"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "list": rows, "next_cursor": next})
}

// ListFollowers 获取粉丝列表
func (h *FollowHandler) ListFollowers(c *gin.Context) {
	rows, next, err := h.svc.ListFollowers(c.Request.Context(), queryUint(c, "user_id"), queryUint(c, "cursor"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "list": rows, "next_cursor": next})
}

// ListPending 只能查看自己收到的请求
func (h *FollowHandler) ListPending(c *gin.Context) {
	rows, next, err := h.svc.ListPending(c.Request.Context(), userIDFromCtx(c), queryUint(c, "cursor"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "list": rows, "next_cursor": next})
}

// Relation 获取用户间关系
func (h *FollowHandler) Relation(c *gin.Context) {
	ok, err := h.svc.IsFollowing(c.Request.Context(), queryUint(c, "from"), queryUint(c, "to"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "following": ok})
}
