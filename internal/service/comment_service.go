package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

type CommentService struct {
	access   *AccessService
	comments *mysql.CommentRepository
	cfg      config.EngagementConfig
}

func NewCommentService(db *gorm.DB, access *AccessService, cfg config.EngagementConfig) *CommentService {
	return &CommentService{
		access:   access,
		comments: &mysql.CommentRepository{DB: db},
		cfg:      cfg,
	}
}

// ListQuery 评论分页参数
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Parent *uint64
}

func (s *CommentService) checkText(text string) (string, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return "", pkg.Invalid("comment text required")
	}
	if n > s.cfg.MaxCommentLength {
		return "", pkg.Invalid("comment longer than %d characters", s.cfg.MaxCommentLength)
	}
	return text, nil
}

// Add 发表评论或回复。先校验参数，再判定可见性与小组评论权限
func (s *CommentService) Add(ctx context.Context, userID uint64, t model.ContentType, contentID uint64, text string, parentID *uint64) (*model.Comment, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !t.IsItem() {
		return nil, pkg.Invalid("comments are not allowed on %s", t)
	}
	text, err = s.checkText(text)
	if err != nil {
		return nil, err
	}
	item, err := s.access.LoadVisible(ctx, v, t, contentID)
	if err != nil {
		return nil, err
	}
	if err := s.access.GroupWrite(ctx, v.ID, item.Base().GroupID, model.PermComment); err != nil {
		return nil, err
	}

	c := &model.Comment{
		ContentType: t,
		ContentID:   contentID,
		AuthorID:    v.ID,
		Text:        text,
		Status:      model.CommentActive,
	}
	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if err != nil {
			return nil, pkg.StorageErr(err)
		}
		if parent.ContentType != t || parent.ContentID != contentID {
			return nil, pkg.Invalid("parent comment belongs to another content")
		}
		depth := parent.Depth + 1
		if depth > s.cfg.MaxNestingDepth {
			return nil, pkg.Invalid("replies nested deeper than %d", s.cfg.MaxNestingDepth)
		}
		c.ParentCommentID = &parent.ID
		c.Depth = depth
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, pkg.StorageErr(err)
	}
	return c, nil
}

// ownComment 仅作者本人可以修改或删除
func (s *CommentService) ownComment(ctx context.Context, userID, commentID uint64) (*model.Comment, error) {
	if userID == 0 {
		return nil, pkg.ErrUnauthenticated
	}
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	if c.AuthorID != userID {
		return nil, pkg.ErrForbidden
	}
	return c, nil
}

func (s *CommentService) Edit(ctx context.Context, userID, commentID uint64, text string) (*model.Comment, error) {
	text, err := s.checkText(text)
	if err != nil {
		return nil, err
	}
	c, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}
	at, err := s.comments.UpdateText(ctx, c.ID, text)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	c.Text = text
	c.IsEdited = true
	c.EditedAt = &at
	return c, nil
}

// Delete 连同全部回复一起删除，返回删除的条数
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint64) (int64, error) {
	c, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return 0, err
	}
	n, err := s.comments.DeleteTree(ctx, c, userID)
	return n, pkg.StorageErr(err)
}

// List 先判定内容可见性，再分页
func (s *CommentService) List(ctx context.Context, userID uint64, t model.ContentType, contentID uint64, q ListQuery) (*model.CommentPage, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort, ok := model.ParseCommentSort(q.Sort)
	if !ok {
		return nil, pkg.Invalid("unknown sort %q", q.Sort)
	}
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = s.cfg.CommentPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	if _, err := s.access.LoadVisible(ctx, v, t, contentID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	list, total, err := s.comments.List(ctx, t, contentID, q.Parent, sort, offset, limit)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	if list == nil {
		list = []model.Comment{}
	}
	return &model.CommentPage{
		List:    list,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: int64(offset+len(list)) < total,
	}, nil
}

// Moderate 小组审核员修改评论状态
func (s *CommentService) Moderate(ctx context.Context, userID, commentID uint64, status model.CommentStatus) error {
	switch status {
	case model.CommentActive, model.CommentFlagged, model.CommentHidden:
	default:
		return pkg.Invalid("unsupported comment status %q", status)
	}
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return err
	}
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return pkg.StorageErr(err)
	}
	item, err := s.access.LoadVisible(ctx, v, c.ContentType, c.ContentID)
	if err != nil {
		return err
	}
	if item.Base().GroupID == nil {
		return pkg.ErrForbidden
	}
	if err := s.access.GroupWrite(ctx, v.ID, item.Base().GroupID, model.PermModerate); err != nil {
		return err
	}
	return pkg.StorageErr(s.comments.SetStatus(ctx, commentID, status))
}
