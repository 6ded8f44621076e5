package mysql

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/testutil"
)

func TestContentCreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	repo := &ContentRepository{DB: db}

	item, err := NewItem(model.ContentNews)
	require.NoError(t, err)
	news := item.(*model.News)
	news.AuthorID = author.ID
	news.Title = "campus news"
	news.Visibility = model.VisibilityPublic
	news.Status = model.ContentStatusActive
	news.SourceURL = "https://news.uni.test/1"
	require.NoError(t, repo.Create(ctx, news))

	got, err := repo.Get(ctx, model.ContentNews, news.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContentNews, got.Type())
	assert.Equal(t, "https://news.uni.test/1", got.(*model.News).SourceURL)

	_, err = repo.Get(ctx, model.ContentEvent, news.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = repo.Get(ctx, model.ContentType("Poll"), 1)
	assert.ErrorIs(t, err, pkg.ErrInvalidArgument)
}

func TestContentAdjustCounterClampsAtZero(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &ContentRepository{DB: db}

	require.NoError(t, repo.AdjustCounter(ctx, model.ContentSocialPost, post.ID, model.CounterShares, 2))
	require.NoError(t, repo.AdjustCounter(ctx, model.ContentSocialPost, post.ID, model.CounterShares, -5))
	n, err := repo.Counter(ctx, model.ContentSocialPost, post.ID, model.CounterShares)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = repo.AdjustCounter(ctx, model.ContentSocialPost, post.ID, model.CounterField("karma"), 1)
	assert.ErrorIs(t, err, pkg.ErrInvalidArgument)

	err = repo.AdjustCounter(ctx, model.ContentSocialPost, post.ID+100, model.CounterLikes, 1)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestContentAdjustCounterConcurrentDeltasAdd(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &ContentRepository{DB: db}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AdjustCounter(ctx, model.ContentSocialPost, post.ID, model.CounterViews, 1))
		}()
	}
	wg.Wait()

	n, err := repo.Counter(ctx, model.ContentSocialPost, post.ID, model.CounterViews)
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)
}

func TestContentSoftDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &ContentRepository{DB: db}

	changed, err := repo.SoftDelete(ctx, model.ContentSocialPost, post.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SoftDelete(ctx, model.ContentSocialPost, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.Get(ctx, model.ContentSocialPost, post.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	list, err := repo.List(ctx, model.ContentSocialPost, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
