package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bustedpokemon39/uniclub-sub001/internal/middleware"
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
)

// errorBody 错误响应统一为 {code, msg}
type errorBody struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// fail 把领域错误映射为 HTTP 状态码，msg 保持稳定，不透出存储细节
func fail(c *gin.Context, err error) {
	var denied *pkg.DeniedError
	switch {
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, errorBody{Code: denied.Reason, Msg: "access denied"})
	case errors.Is(err, pkg.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorBody{Code: "unauthenticated", Msg: "login required"})
	case errors.Is(err, pkg.ErrForbidden):
		c.JSON(http.StatusForbidden, errorBody{Code: "forbidden", Msg: "permission denied"})
	case errors.Is(err, pkg.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{Code: "not_found", Msg: "resource not found"})
	case errors.Is(err, pkg.ErrConflict):
		c.JSON(http.StatusConflict, errorBody{Code: "conflict", Msg: err.Error()})
	case errors.Is(err, pkg.ErrInvalidActionType):
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_action_type", Msg: "unsupported action"})
	case errors.Is(err, pkg.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_argument", Msg: err.Error()})
	default:
		c.JSON(http.StatusServiceUnavailable, errorBody{Code: "unavailable", Msg: "service temporarily unavailable"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Code: "invalid_argument", Msg: msg})
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

func roleFromCtx(c *gin.Context) int {
	if v, ok := c.Get(middleware.ContextRoleKey); ok {
		if r, ok2 := v.(int); ok2 {
			return r
		}
	}
	return model.RoleUser
}

func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// paramType 路径里的内容类型，items 为 true 时不接受 Comment
func paramType(c *gin.Context, items bool) (model.ContentType, bool) {
	t, ok := model.ParseContentType(c.Param("type"))
	if !ok || (items && !t.IsItem()) {
		badRequest(c, "unknown content type")
		return "", false
	}
	return t, true
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func queryUint(c *gin.Context, key string) uint64 {
	n, _ := strconv.ParseUint(c.Query(key), 10, 64)
	return n
}
