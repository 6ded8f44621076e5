package mysql

import (
	"errors"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/bustedpokemon39/uniclub-sub001/internal/model"
)

// InitDB 连接 MySQL 并设置连接池
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Migrate 自动建表，唯一索引即存储层需要保证的约束
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}

// isRetryable 死锁与锁等待超时可以整体重试事务
func isRetryable(err error) bool {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	return false
}

// clampAdd 计数增减且不小于 0
func clampAdd(col string) string {
	return "CASE WHEN " + col + " + ? < 0 THEN 0 ELSE " + col + " + ? END"
}
