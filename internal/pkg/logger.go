package pkg

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger prod 输出 json，其余使用开发模式
func NewLogger(mode string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
