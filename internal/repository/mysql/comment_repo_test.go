package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/testutil"
)

func addComment(t *testing.T, repo *CommentRepository, post *model.SocialPost, authorID uint64, parent *model.Comment) *model.Comment {
	t.Helper()
	c := &model.Comment{
		ContentType: model.ContentSocialPost,
		ContentID:   post.ID,
		AuthorID:    authorID,
		Text:        "nice",
		Status:      model.CommentActive,
	}
	if parent != nil {
		c.ParentCommentID = &parent.ID
		c.Depth = parent.Depth + 1
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCommentCreateIncrementsCounter(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &CommentRepository{DB: db}
	contents := &ContentRepository{DB: db}

	top := addComment(t, repo, post, author.ID, nil)
	addComment(t, repo, post, author.ID, top)

	n, err := contents.Counter(ctx, model.ContentSocialPost, post.ID, model.CounterComments)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	err = repo.Create(ctx, &model.Comment{ContentType: model.ContentSocialPost, ContentID: post.ID + 1, AuthorID: author.ID, Text: "x"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestCommentListSortAndParent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &CommentRepository{DB: db}

	first := addComment(t, repo, post, author.ID, nil)
	second := addComment(t, repo, post, author.ID, nil)
	reply := addComment(t, repo, post, author.ID, first)
	hidden := addComment(t, repo, post, author.ID, nil)
	require.NoError(t, repo.SetStatus(ctx, hidden.ID, model.CommentHidden))
	require.NoError(t, db.Model(&model.Comment{}).Where("id = ?", second.ID).Update("like_count", 5).Error)

	list, total, err := repo.List(ctx, model.ContentSocialPost, post.ID, nil, model.SortOldest, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)

	list, _, err = repo.List(ctx, model.ContentSocialPost, post.ID, nil, model.SortMostLiked, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, second.ID, list[0].ID)

	replies, total, err := repo.List(ctx, model.ContentSocialPost, post.ID, &first.ID, model.SortNewest, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, reply.ID, replies[0].ID)
}

func TestCommentDeleteTreeRemovesReplies(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	other := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &CommentRepository{DB: db}
	contents := &ContentRepository{DB: db}

	root := addComment(t, repo, post, author.ID, nil)
	child := addComment(t, repo, post, other.ID, root)
	addComment(t, repo, post, author.ID, child)
	keep := addComment(t, repo, post, other.ID, nil)

	_, err := repo.ApplyLike(ctx, child.ID, author.ID, SetTo(true))
	require.NoError(t, err)

	removed, err := repo.DeleteTree(ctx, root, author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	n, err := contents.Counter(ctx, model.ContentSocialPost, post.ID, model.CounterComments)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.FindByID(ctx, child.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	_, err = repo.FindByID(ctx, keep.ID)
	assert.NoError(t, err)

	var likes int64
	require.NoError(t, db.Model(&model.CommentLike{}).Count(&likes).Error)
	assert.Zero(t, likes)
}

func TestCommentLikeToggle(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	fan := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &CommentRepository{DB: db}
	c := addComment(t, repo, post, author.ID, nil)

	st, err := repo.ApplyLike(ctx, c.ID, fan.ID, Flip)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.EqualValues(t, 1, st.Count)

	st, err = repo.ApplyLike(ctx, c.ID, fan.ID, SetTo(true))
	require.NoError(t, err)
	assert.False(t, st.Changed)
	assert.EqualValues(t, 1, st.Count)

	liked, err := repo.LikedBy(ctx, fan.ID, []uint64{c.ID})
	require.NoError(t, err)
	assert.True(t, liked[c.ID])

	st, err = repo.ApplyLike(ctx, c.ID, fan.ID, Flip)
	require.NoError(t, err)
	assert.False(t, st.Active)
	assert.Zero(t, st.Count)

	_, err = repo.ApplyLike(ctx, c.ID+100, fan.ID, Flip)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestCommentUpdateText(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, true)
	post := testutil.CreatePost(t, db, author.ID, model.VisibilityPublic, nil)
	repo := &CommentRepository{DB: db}
	c := addComment(t, repo, post, author.ID, nil)

	_, err := repo.UpdateText(ctx, c.ID, "edited")
	require.NoError(t, err)
	got, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text)
	assert.True(t, got.IsEdited)
	assert.NotNil(t, got.EditedAt)
}
