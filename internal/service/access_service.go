package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
	"github.com/bustedpokemon39/uniclub-sub001/internal/pkg"
	"github.com/bustedpokemon39/uniclub-sub001/internal/privacy"
	"github.com/bustedpokemon39/uniclub-sub001/internal/repository/mysql"
)

// AccessService 组装关系快照并调用可见性判定
type AccessService struct {
	users    *mysql.UserRepository
	follows  *mysql.FollowRepository
	members  *mysql.GroupMemberRepository
	contents *mysql.ContentRepository
	comments *mysql.CommentRepository
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{
		users:    &mysql.UserRepository{DB: db},
		follows:  &mysql.FollowRepository{DB: db},
		members:  &mysql.GroupMemberRepository{DB: db},
		contents: &mysql.ContentRepository{DB: db},
		comments: &mysql.CommentRepository{DB: db},
	}
}

// Viewer 当前登录用户；未登录或账号不可用都视为未认证
func (s *AccessService) Viewer(ctx context.Context, userID uint64) (privacy.Viewer, error) {
	if userID == 0 {
		return privacy.Viewer{}, pkg.ErrUnauthenticated
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return privacy.Viewer{}, pkg.ErrUnauthenticated
	}
	if err != nil {
		return privacy.Viewer{}, pkg.StorageErr(err)
	}
	if u.Status != model.UserStatusActive {
		return privacy.Viewer{}, pkg.ErrUnauthenticated
	}
	return privacy.Viewer{ID: u.ID, Enrolled: u.IsEnrolled}, nil
}

// Snapshot viewer 与作者、小组之间的关系
func (s *AccessService) Snapshot(ctx context.Context, viewerID, authorID uint64, groupID *uint64) (privacy.Snapshot, error) {
	var snap privacy.Snapshot
	if viewerID == 0 || viewerID == authorID {
		return snap, nil
	}
	blocked, err := s.follows.IsBlockedEither(ctx, viewerID, authorID)
	if err != nil {
		return snap, pkg.StorageErr(err)
	}
	snap.Blocked = blocked
	if blocked {
		return snap, nil
	}
	if snap.Following, err = s.follows.IsFollowing(ctx, viewerID, authorID); err != nil {
		return snap, pkg.StorageErr(err)
	}
	if groupID != nil {
		m, err := s.members.Get(ctx, *groupID, viewerID)
		if err != nil {
			return snap, pkg.StorageErr(err)
		}
		snap.ActiveMember = m.IsActive()
	}
	return snap, nil
}

// Decide 判定 viewer 能否看到内容
func (s *AccessService) Decide(ctx context.Context, v privacy.Viewer, item model.ContentItem) (privacy.Decision, error) {
	subject := privacy.SubjectOf(item)
	snap, err := s.Snapshot(ctx, v.ID, subject.AuthorID, subject.GroupID)
	if err != nil {
		return privacy.Decision{}, err
	}
	return privacy.CanView(v, subject, snap), nil
}

// LoadVisible 读取内容并校验可见性。隐藏的内容对作者以外的人等同不存在
func (s *AccessService) LoadVisible(ctx context.Context, v privacy.Viewer, t model.ContentType, id uint64) (model.ContentItem, error) {
	item, err := s.contents.Get(ctx, t, id)
	if err != nil {
		return nil, pkg.StorageErr(err)
	}
	b := item.Base()
	if b.Status == model.ContentStatusHidden && b.AuthorID != v.ID {
		return nil, pkg.ErrNotFound
	}
	d, err := s.Decide(ctx, v, item)
	if err != nil {
		return nil, err
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	return item, nil
}

// LoadVisibleComment 评论的可见性跟随其所属内容
func (s *AccessService) LoadVisibleComment(ctx context.Context, v privacy.Viewer, commentID uint64) (*model.Comment, model.ContentItem, error) {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, nil, pkg.StorageErr(err)
	}
	if !c.Status.Listed() && c.AuthorID != v.ID {
		return nil, nil, pkg.ErrNotFound
	}
	item, err := s.LoadVisible(ctx, v, c.ContentType, c.ContentID)
	if err != nil {
		return nil, nil, err
	}
	return c, item, nil
}

// GroupWrite 小组内容的写权限，在读权限之上再判定
func (s *AccessService) GroupWrite(ctx context.Context, userID uint64, groupID *uint64, perm model.Permission) error {
	if groupID == nil {
		return nil
	}
	m, err := s.members.Get(ctx, *groupID, userID)
	if err != nil {
		return pkg.StorageErr(err)
	}
	return privacy.CanWriteInGroup(m, perm).Err()
}
