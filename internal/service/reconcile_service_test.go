package service

import (
	"context"
	"database/sql"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/testutil"
)

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func TestReconcilerFixesDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	user := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	_, err := f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionLike)
	require.NoError(t, err)
	_, _, err = f.follows.Follow(ctx, user.ID, author.ID)
	require.NoError(t, err)

	// 人为制造漂移
	require.NoError(t, f.db.Model(&model.SocialPost{}).Where("id = ?", post.ID).
		Updates(map[string]any{"like_count": 5, "save_count": 2}).Error)
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", author.ID).
		UpdateColumn("follower_count", 9).Error)

	r := NewCounterReconciler(f.db, config.ReconcileConfig{BatchSize: 1}, f.stats, zap.NewNop())
	assert.Equal(t, 3, r.ReconcileOnce(ctx))
	assert.Zero(t, r.ReconcileOnce(ctx))

	var got model.SocialPost
	require.NoError(t, f.db.First(&got, post.ID).Error)
	assert.EqualValues(t, 1, got.LikeCount)
	assert.Zero(t, got.SaveCount)

	var u model.User
	require.NoError(t, f.db.First(&u, author.ID).Error)
	assert.EqualValues(t, 1, u.FollowerCount)
}

func TestReconcilerKeepsToggleDuringFix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	fan := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)
	require.NoError(t, f.db.Model(&model.SocialPost{}).Where("id = ?", post.ID).
		UpdateColumn("like_count", 5).Error)

	// 修正事务内统计评论数时发起一次点赞，点赞要等修正事务提交后才能落库
	var fired atomic.Bool
	done := make(chan error, 1)
	err := f.db.Callback().Query().After("gorm:query").Register("test:like_during_fix", func(db *gorm.DB) {
		if _, inTx := db.Statement.ConnPool.(*sql.Tx); !inTx || db.Statement.Table != "comments" {
			return
		}
		if !fired.CompareAndSwap(false, true) {
			return
		}
		go func() {
			_, err := f.engagements.Toggle(context.Background(), fan.ID, model.ContentSocialPost, post.ID, model.ActionLike)
			done <- err
		}()
	})
	require.NoError(t, err)

	r := NewCounterReconciler(f.db, config.ReconcileConfig{BatchSize: 10}, f.stats, zap.NewNop())
	r.ReconcileOnce(ctx)
	require.True(t, fired.Load())
	require.NoError(t, <-done)

	var active int64
	require.NoError(t, f.db.Model(&model.Engagement{}).
		Where("content_type = ? AND content_id = ? AND action = ? AND active = ?",
			model.ContentSocialPost, post.ID, model.ActionLike, true).
		Count(&active).Error)
	var got model.SocialPost
	require.NoError(t, f.db.First(&got, post.ID).Error)
	assert.EqualValues(t, 1, active)
	assert.Equal(t, active, got.LikeCount)
}

func TestReconcilerLogsFollowCountError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, true)
	require.NoError(t, f.db.Migrator().DropTable(&model.Follow{}))

	core, logs := observer.New(zapcore.WarnLevel)
	r := NewCounterReconciler(f.db, config.ReconcileConfig{BatchSize: 10}, f.stats, zap.New(core))
	assert.Zero(t, r.ReconcileOnce(ctx))

	entries := logs.FilterMessage("reconcile followers count failed").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, user.ID, entries[0].ContextMap()["user_id"])
}
