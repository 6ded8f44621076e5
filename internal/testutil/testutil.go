// Package testutil 测试共用的数据库、redis 与数据构造
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
)

// DB 每个测试一个独立的内存 sqlite；单连接保证事务串行
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(model.All()...); err != nil {
		tb.Fatalf("failed automigrating models: %v", err)
	}
	return db
}

// Redis 基于 miniredis 的客户端
func Redis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() {
		_ = client.Close()
	})
	return mr, client
}

var seq atomic.Uint64

// CreateUser 插入一个用户，enrolled 控制社团成员身份
func CreateUser(tb testing.TB, db *gorm.DB, enrolled bool) *model.User {
	tb.Helper()
	n := seq.Add(1)
	u := &model.User{
		Username:          fmt.Sprintf("user%d", n),
		Password:          "hash",
		Email:             fmt.Sprintf("user%d@uni.test", n),
		UniqueID:          fmt.Sprintf("S%06d", n),
		IsEnrolled:        enrolled,
		ProfileVisibility: model.ProfileClubMembers,
		Status:            model.UserStatusActive,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("failed creating user: %v", err)
	}
	return u
}

// CreatePost 插入一条 SocialPost
func CreatePost(tb testing.TB, db *gorm.DB, authorID uint64, vis model.Visibility, groupID *uint64) *model.SocialPost {
	tb.Helper()
	p := &model.SocialPost{
		ContentBase: model.ContentBase{
			AuthorID:   authorID,
			GroupID:    groupID,
			Title:      "hello",
			Body:       "first post",
			Visibility: vis,
			Status:     model.ContentStatusActive,
		},
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("failed creating post: %v", err)
	}
	return p
}

// CreateGroup 插入小组与创建者成员关系
func CreateGroup(tb testing.TB, db *gorm.DB, creatorID uint64) *model.Group {
	tb.Helper()
	n := seq.Add(1)
	g := &model.Group{Name: fmt.Sprintf("group%d", n), CreatorID: creatorID}
	if err := db.Create(g).Error; err != nil {
		tb.Fatalf("failed creating group: %v", err)
	}
	AddMember(tb, db, g.ID, creatorID, model.MemberRoleCreator, model.MembershipActive)
	return g
}

func AddMember(tb testing.TB, db *gorm.DB, groupID, userID uint64, role model.MemberRole, status model.MembershipStatus) *model.GroupMembership {
	tb.Helper()
	m := &model.GroupMembership{
		GroupID:     groupID,
		UserID:      userID,
		Role:        role,
		Status:      status,
		Permissions: model.DefaultPermissions(role),
	}
	if err := db.Create(m).Error; err != nil {
		tb.Fatalf("failed creating membership: %v", err)
	}
	return m
}
