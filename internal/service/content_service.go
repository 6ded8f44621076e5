package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/config"
	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

type ContentService struct {
	access      *AccessService
	engagements *EngagementService
	contents    *mysql.ContentRepository
	cfg         config.EngagementConfig
	log         *zap.Logger
}

func NewContentService(db *gorm.DB, access *AccessService, engagements *EngagementService, cfg config.EngagementConfig, log *zap.Logger) *ContentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContentService{
		access:      access,
		engagements: engagements,
		contents:    &mysql.ContentRepository{DB: db},
		cfg:         cfg,
		log:         log,
	}
}

// CreateInput 各类型共用的字段，类型特有字段按需填写
type CreateInput struct {
	Title      string
	Body       string
	Visibility string
	GroupID    *uint64

	SourceURL string
	Summary   string
	Location  string
	StartsAt  *time.Time
	EndsAt    *time.Time
	URL       string
	Kind      string
	MediaURL  string
}

// Create 发布内容；小组内容需要发帖权限
func (s *ContentService) Create(ctx context.Context, userID uint64, t model.ContentType, in CreateInput) (model.ContentItem, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return nil, err
	}
	vis, ok := model.ParseVisibility(in.Visibility)
	if !ok {
		return nil, pkg.Invalid("unknown visibility %q", in.Visibility)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, pkg.Invalid("title required")
	}
	if vis == model.VisibilityGroup && in.GroupID == nil {
		return nil, pkg.Invalid("group visibility requires group_id")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return nil, pkg.Invalid("ends_at before starts_at")
	}
	if err := s.access.GroupWrite(ctx, v.ID, in.GroupID, model.PermPost); err != nil {
		return nil, err
	}

	item, err := mysql.NewItem(t)
	if err != nil {
		return nil, err
	}
	b := item.Base()
	b.AuthorID = v.ID
	b.GroupID = in.GroupID
	b.Title = title
	b.Body = in.Body
	b.Visibility = vis
	b.Status = model.ContentStatusActive
	switch it := item.(type) {
	case *model.News:
		it.SourceURL = in.SourceURL
		it.Summary = in.Summary
	case *model.Event:
		it.Location = in.Location
		it.StartsAt = in.StartsAt
		it.EndsAt = in.EndsAt
	case *model.Resource:
		it.URL = in.URL
		it.Kind = in.Kind
	case *model.SocialPost:
		it.MediaURL = in.MediaURL
	}
	if err := s.contents.Create(ctx, item); err != nil {
		return nil, pkg.StorageErr(err)
	}
	return item, nil
}

// View 读取内容并记录一次浏览；浏览记录失败不影响读取
func (s *ContentService) View(ctx context.Context, userID uint64, t model.ContentType, id uint64) (model.ContentItem, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := s.access.LoadVisible(ctx, v, t, id)
	if err != nil {
		return nil, err
	}
	st, err := s.engagements.RecordView(ctx, v.ID, t, id)
	if err != nil {
		s.log.Warn("record view failed", zap.String("type", string(t)), zap.Uint64("id", id), zap.Error(err))
		return item, nil
	}
	if st.Changed {
		item.Base().ViewCount = st.Count
	}
	return item, nil
}

// List 分页列出，逐条过可见性判定
func (s *ContentService) List(ctx context.Context, userID uint64, t model.ContentType, page, size int) ([]model.ContentItem, error) {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return nil, err
	}
	page, size = s.pageBounds(page, size)
	rows, err := s.contents.List(ctx, t, (page-1)*size, size)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	out := make([]model.ContentItem, 0, len(rows))
	for _, item := range rows {
		d, err := s.access.Decide(ctx, v, item)
		if err != nil {
			return nil, err
		}
		if d.Allowed {
			out = append(out, item)
		}
	}
	return out, nil
}

// Delete 软删除：作者本人或小组内有审核权限的成员
func (s *ContentService) Delete(ctx context.Context, userID uint64, t model.ContentType, id uint64) error {
	v, err := s.access.Viewer(ctx, userID)
	if err != nil {
		return err
	}
	item, err := s.contents.Get(ctx, t, id)
	if err != nil {
		return pkg.StorageErr(err)
	}
	b := item.Base()
	if b.AuthorID != v.ID {
		if b.GroupID == nil {
			return pkg.ErrForbidden
		}
		if err := s.access.GroupWrite(ctx, v.ID, b.GroupID, model.PermModerate); err != nil {
			return err
		}
	}
	if _, err := s.contents.SoftDelete(ctx, t, id, v.ID); err != nil {
		return pkg.StorageErr(err)
	}
	return nil
}

func (s *ContentService) pageBounds(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = s.cfg.ContentPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	return page, size
}
