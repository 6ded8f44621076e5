package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/privacy"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/redis"
	"github.com/bustedpokemon39/uniclub-sub001/internal/testutil"
)

func deniedReason(t *testing.T, err error) privacy.Reason {
	t.Helper()
	var de *pkg.DeniedError
	require.True(t, errors.As(err, &de), "expected denial, got %v", err)
	return privacy.Reason(de.Reason)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	user := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	st, err := f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionLike)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.EqualValues(t, 1, st.Count)

	st, err = f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionLike)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.EqualValues(t, 0, st.Count)
}

func TestToggleErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	user := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	_, err := f.engagements.Toggle(ctx, 0, model.ContentSocialPost, post.ID, model.ActionLike)
	assert.ErrorIs(t, err, pkg.ErrUnauthenticated)

	_, err = f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionView)
	assert.ErrorIs(t, err, pkg.ErrInvalidActionType)

	_, err = f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID+100, model.ActionLike)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = f.engagements.Set(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionShare, false)
	assert.ErrorIs(t, err, pkg.ErrInvalidActionType)

	_, err = f.engagements.Toggle(ctx, user.ID, model.ContentComment, 1, model.ActionSave)
	assert.ErrorIs(t, err, pkg.ErrInvalidActionType)
}

func TestToggleDeniedByVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	outsider := testutil.CreateUser(t, f.db, false)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityClubMembers, nil)

	_, err := f.engagements.Toggle(ctx, outsider.ID, model.ContentSocialPost, post.ID, model.ActionLike)
	assert.ErrorIs(t, err, pkg.ErrForbidden)
	assert.Equal(t, privacy.ReasonClubMembersOnly, deniedReason(t, err))

	var rows int64
	require.NoError(t, f.db.Model(&model.Engagement{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestBlockedViewerCannotSeePublicPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, f.db, true)
	b := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, a.ID, model.VisibilityPublic, nil)

	_, err := f.follows.Block(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = f.contents.View(ctx, b.ID, model.ContentSocialPost, post.ID)
	assert.Equal(t, privacy.ReasonUnavailable, deniedReason(t, err))

	_, err = f.engagements.Toggle(ctx, b.ID, model.ContentSocialPost, post.ID, model.ActionLike)
	assert.Equal(t, privacy.ReasonUnavailable, deniedReason(t, err))

	// 作者本人不受影响
	_, err = f.contents.View(ctx, a.ID, model.ContentSocialPost, post.ID)
	assert.NoError(t, err)
}

func TestRecordShareOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	user := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	st, err := f.engagements.RecordShare(ctx, user.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.True(t, st.Changed)

	st, err = f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionShare)
	require.NoError(t, err)
	assert.False(t, st.Changed)
	assert.True(t, st.Active)
	assert.EqualValues(t, 1, st.Count)
}

func TestConcurrentTogglesSameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	user := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	var wg sync.WaitGroup
	results := make([]model.EngagementState, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := f.engagements.Set(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionLike, true)
			assert.NoError(t, err)
			results[i] = st
		}(i)
	}
	wg.Wait()

	// 只有一次真实的状态变化
	changes := 0
	for _, st := range results {
		if st.Changed {
			changes++
		}
		assert.True(t, st.Active)
		assert.EqualValues(t, 1, st.Count)
	}
	assert.Equal(t, 1, changes)
}

func TestFlagsAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	user := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	_, err := f.contents.View(ctx, user.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	_, err = f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionSave)
	require.NoError(t, err)

	flags, err := f.engagements.Flags(ctx, user.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Flags{Saved: true, Viewed: true}, flags)

	stats, err := f.engagements.Stats(ctx, user.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Saves: 1, Views: 1}, stats)

	cached, ok, err := f.stats.Get(ctx, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stats, cached)

	// 写入后缓存失效
	_, err = f.engagements.Toggle(ctx, user.ID, model.ContentSocialPost, post.ID, model.ActionLike)
	require.NoError(t, err)
	_, ok, err = f.stats.Get(ctx, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err = f.engagements.Stats(ctx, user.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Likes)
}

func TestCommentLikeThroughEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	fan := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)
	c, err := f.comments.Add(ctx, author.ID, model.ContentSocialPost, post.ID, "hello", nil)
	require.NoError(t, err)

	st, err := f.engagements.Toggle(ctx, fan.ID, model.ContentComment, c.ID, model.ActionLike)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.EqualValues(t, 1, st.Count)

	st, err = f.engagements.Set(ctx, fan.ID, model.ContentComment, c.ID, model.ActionLike, false)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Zero(t, st.Count)
}

func TestUnauthenticatedBeforeActionCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	_, err := f.engagements.Toggle(ctx, 0, model.ContentSocialPost, post.ID, model.ActionView)
	assert.ErrorIs(t, err, pkg.ErrUnauthenticated)
	_, err = f.engagements.Toggle(ctx, 0, model.ContentComment, 1, model.ActionShare)
	assert.ErrorIs(t, err, pkg.ErrUnauthenticated)
	_, err = f.engagements.RecordShare(ctx, 0, model.ContentComment, 1)
	assert.ErrorIs(t, err, pkg.ErrUnauthenticated)
	_, err = f.engagements.Set(ctx, 0, model.ContentSocialPost, post.ID, model.ActionShare, false)
	assert.ErrorIs(t, err, pkg.ErrUnauthenticated)

	// 已登录时仍按动作类型拒绝
	_, err = f.engagements.Toggle(ctx, author.ID, model.ContentSocialPost, post.ID, model.ActionView)
	assert.ErrorIs(t, err, pkg.ErrInvalidActionType)
}

// hookedLock 在取锁时执行 onAcquire，用于模拟取锁前后发生的写入
type hookedLock struct {
	Locker
	onAcquire func()
	err       error
}

func (l *hookedLock) Acquire(ctx context.Context, t model.ContentType, id uint64, token string) (bool, error) {
	if l.onAcquire != nil {
		hook := l.onAcquire
		l.onAcquire = nil
		hook()
	}
	if l.err != nil {
		return false, l.err
	}
	return l.Locker.Acquire(ctx, t, id, token)
}

func TestStatsRebuildReadsCountersAfterLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	fan := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	lock := &hookedLock{Locker: &redis.DistLock{RDB: f.stats.RDB}}
	svc := NewEngagementService(f.db, f.access, f.stats, lock, zap.NewNop())
	lock.onAcquire = func() {
		_, err := svc.Toggle(ctx, fan.ID, model.ContentSocialPost, post.ID, model.ActionLike)
		require.NoError(t, err)
	}

	st, err := svc.Stats(ctx, author.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Likes)

	cached, ok, err := f.stats.Get(ctx, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, cached.Likes)
}

func TestStatsLockErrorIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, true)
	post := testutil.CreatePost(t, f.db, author.ID, model.VisibilityPublic, nil)

	core, logs := observer.New(zapcore.WarnLevel)
	lock := &hookedLock{Locker: &redis.DistLock{RDB: f.stats.RDB}, err: errors.New("redis down")}
	svc := NewEngagementService(f.db, f.access, f.stats, lock, zap.New(core))

	st, err := svc.Stats(ctx, author.ID, model.ContentSocialPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{}, st)
	assert.Equal(t, 1, logs.FilterMessage("stats lock acquire failed").Len())
}
