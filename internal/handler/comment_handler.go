package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

type CommentHandler struct {
	svc *service.CommentService
}

func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{svc: svc}
}

type addCommentReq struct {
	Text     string  `json:"text" binding:"required"`
	ParentID *uint64 `json:"parent_id"`
}

type editCommentReq struct {
	Text string `json:"text" binding:"required"`
}

type moderateCommentReq struct {
	Status string `json:"status" binding:"required,oneof=active flagged hidden"`
}

// List 评论分页，parent 为空时列顶层评论
func (h *CommentHandler) List(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q := service.ListQuery{
		Page:  queryInt(c, "page"),
		Limit: queryInt(c, "limit"),
		Sort:  c.Query("sort"),
	}
	if p := queryUint(c, "parent"); p > 0 {
		q.Parent = &p
	}
	page, err := h.svc.List(c.Request.Context(), userIDFromCtx(c), t, id, q)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "page": page})
}

func (h *CommentHandler) Add(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req addCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	cm, err := h.svc.Add(c.Request.Context(), userIDFromCtx(c), t, id, req.Text, req.ParentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "comment": cm})
}

// Edit 仅作者可改
func (h *CommentHandler) Edit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req editCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	cm, err := h.svc.Edit(c.Request.Context(), userIDFromCtx(c), id, req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "comment": cm})
}

// Delete 连同回复一起删除
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.Delete(c.Request.Context(), userIDFromCtx(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "removed": n})
}

func (h *CommentHandler) Moderate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req moderateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	if err := h.svc.Moderate(c.Request.Context(), userIDFromCtx(c), id, model.CommentStatus(req.Status)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok"})
}
