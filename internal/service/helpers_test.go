package service

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/redis"
	"github.com/bustedpokemon39/uniclub-sub001/internal/testutil"
)

type fixture struct {
	db          *gorm.DB
	cfg         config.EngagementConfig
	access      *AccessService
	engagements *EngagementService
	contents    *ContentService
	comments    *CommentService
	follows     *FollowService
	groups      *GroupService
	users       *UserService
	stats       *redis.StatsCacheRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	_, rdb := testutil.Redis(t)
	cfg := config.EngagementConfig{
		MaxCommentLength: 20,
		MaxNestingDepth:  2,
		CommentPageSize:  2,
		ContentPageSize:  3,
		MaxPageSize:      10,
		StatsCacheTTL:    time.Minute,
	}
	log := zap.NewNop()
	stats := redis.NewStatsCacheRepository(rdb, cfg.StatsCacheTTL)
	access := NewAccessService(db)
	engagements := NewEngagementService(db, access, stats, &redis.DistLock{RDB: rdb}, log)
	tokens := pkg.NewTokenManager("a-secret", "r-secret", time.Minute, time.Hour)
	return &fixture{
		db:          db,
		cfg:         cfg,
		access:      access,
		engagements: engagements,
		contents:    NewContentService(db, access, engagements, cfg, log),
		comments:    NewCommentService(db, access, cfg),
		follows:     NewFollowService(db),
		groups:      NewGroupService(db),
		users:       NewUserService(db, access, redis.NewSessionRepository(rdb, time.Minute), tokens),
		stats:       stats,
	}
}
