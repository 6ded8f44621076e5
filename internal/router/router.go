package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/handler"
	"github.com/bustedpokemon39/uniclub-sub001/internal/middleware"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/service"
)

// Deps 路由需要的服务与中间件依赖
type Deps struct {
	Log        *zap.Logger
	Tokens     *pkg.TokenManager
	Sessions   middleware.SessionChecker
	Limiter    middleware.Limiter
	RateLimits config.RateLimitConfig

	Users       *service.UserService
	Follows     *service.FollowService
	Groups      *service.GroupService
	Contents    *service.ContentService
	Engagements *service.EngagementService
	Comments    *service.CommentService
}

func InitRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	user := handler.NewUserHandler(d.Users)
	follow := handler.NewFollowHandler(d.Follows)
	group := handler.NewGroupHandler(d.Groups)
	content := handler.NewContentHandler(d.Contents)
	engagement := handler.NewEngagementHandler(d.Engagements)
	comment := handler.NewCommentHandler(d.Comments)

	auth := middleware.AuthMiddleware(d.Tokens, d.Sessions)
	limit := func(scope string, perMinute int) gin.HandlerFunc {
		return middleware.RateLimit(d.Limiter, scope, perMinute, d.Log)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 登录态接口
	authGroup := r.Group("/api/user")
	authGroup.Use(auth)
	{
		authGroup.POST("/logout", user.Logout)
		authGroup.POST("/change-password", user.ChangePassword)
		authGroup.GET("/:id", user.Profile)
		authGroup.PUT("/profile-visibility", user.UpdateProfileVisibility)
		authGroup.PUT("/:id/enrollment", user.SetEnrollment)
	}

	// 用户关注相关接口
	followGroup := r.Group("/api/follow")
	followGroup.Use(auth)
	{
		followGroup.POST("/", limit("follow", d.RateLimits.FollowPerMinute), follow.Follow)
		followGroup.POST("/requests", follow.Respond)
		followGroup.GET("/requests", follow.ListPending)
		followGroup.GET("/followings", follow.ListFollowings)
		followGroup.GET("/followers", follow.ListFollowers)
		followGroup.GET("/relation", follow.Relation)
	}

	// 小组相关接口
	groupGroup := r.Group("/api/group")
	groupGroup.Use(auth)
	{
		groupGroup.POST("/create", group.Create)
		groupGroup.POST("/join", group.Join)
		groupGroup.POST("/leave", group.Leave)
		groupGroup.GET("/list", group.List)
		groupGroup.GET("/:id/members", group.Members)
		groupGroup.PUT("/:id/members/:uid", group.UpdateMember)
	}

	// 内容相关接口
	contentGroup := r.Group("/api/content")
	contentGroup.Use(auth)
	{
		contentGroup.POST("/:type", content.Create)
		contentGroup.GET("/:type", content.List)
		contentGroup.GET("/:type/:id", content.Get)
		contentGroup.DELETE("/:type/:id", content.Delete)
	}

	// 互动相关接口，Comment 类型即评论点赞
	engagementGroup := r.Group("/api/engagement")
	engagementGroup.Use(auth)
	{
		engagementGroup.POST("/:action/:type/:id", limit("engagement", d.RateLimits.EngagementPerMinute), engagement.Engage)
		engagementGroup.GET("/user/:type/:id", engagement.Flags)
		engagementGroup.GET("/stats/:type/:id", engagement.Stats)
	}

	// 评论相关接口
	commentGroup := r.Group("/api/comments")
	commentGroup.Use(auth)
	{
		commentGroup.GET("/:type/:id", comment.List)
		commentGroup.POST("/:type/:id", limit("comment", d.RateLimits.CommentPerMinute), comment.Add)
		commentGroup.PUT("/:id", comment.Edit)
		commentGroup.PUT("/:id/status", comment.Moderate)
		commentGroup.DELETE("/:id", comment.Delete)
	}

	return r
}
