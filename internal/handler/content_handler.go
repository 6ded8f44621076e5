package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

type ContentHandler struct {
	svc *service.ContentService
}

func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

type createContentReq struct {
	Title      string     `json:"title" binding:"required,max=200"`
	Body       string     `json:"body"`
	Visibility string     `json:"visibility" binding:"omitempty,oneof=public club-members friends group private"`
	GroupID    *uint64    `json:"group_id"`
	SourceURL  string     `json:"source_url"`
	Summary    string     `json:"summary"`
	Location   string     `json:"location"`
	StartsAt   *time.Time `json:"starts_at"`
	EndsAt     *time.Time `json:"ends_at"`
	URL        string     `json:"url"`
	Kind       string     `json:"kind"`
	MediaURL   string     `json:"media_url"`
}

// Create 发布内容
func (h *ContentHandler) Create(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	var req createContentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid params")
		return
	}
	item, err := h.svc.Create(c.Request.Context(), userIDFromCtx(c), t, service.CreateInput{
		Title:      req.Title,
		Body:       req.Body,
		Visibility: req.Visibility,
		GroupID:    req.GroupID,
		SourceURL:  req.SourceURL,
		Summary:    req.Summary,
		Location:   req.Location,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		URL:        req.URL,
		Kind:       req.Kind,
		MediaURL:   req.MediaURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "item": item})
}

// Get 查看内容，同时记一次浏览
func (h *ContentHandler) Get(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.View(c.Request.Context(), userIDFromCtx(c), t, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "item": item})
}

func (h *ContentHandler) List(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), userIDFromCtx(c), t, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "list": list})
}

func (h *ContentHandler) Delete(c *gin.Context) {
	t, ok := paramType(c, true)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userIDFromCtx(c), t, id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok"})
}
