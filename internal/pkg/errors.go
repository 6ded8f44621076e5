package pkg

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidActionType = errors.New("invalid action type")
	ErrUnavailable       = errors.New("service unavailable")
)

var domainErrors = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrConflict,
	ErrInvalidArgument,
	ErrInvalidActionType,
	ErrUnavailable,
}

// DeniedError 可见性/权限拒绝，Reason 为触发拒绝的策略码
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "forbidden: " + e.Reason
}

func (e *DeniedError) Unwrap() error { return ErrForbidden }

func Denied(reason string) error {
	return &DeniedError{Reason: reason}
}

// Invalid 参数校验失败，写入前返回
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// StorageErr 统一存储层错误：未找到 -> ErrNotFound，其余 -> ErrUnavailable（可重试）
func StorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
