package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"RagLink/internal/config"
	"RagLink/internal/modules/rag/domain/document"
	userEntity "RagLink/internal/modules/user/domain/entity"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormDB 建立 MySQL 连接并自动迁移登记表
func NewGormDB(conf *config.Config) (*gorm.DB, error) {
	user := conf.MysqlConfig.User
	password := conf.MysqlConfig.Password
	host := conf.MysqlConfig.Host
	port := conf.MysqlConfig.Port
	dbName := conf.MysqlConfig.DatabaseName
	if dbName == "" {
		dbName = conf.AppName
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", user, password, host, port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	// 自动迁移，如果没有建表，会自动创建对应的表
	if err := db.AutoMigrate(
		&document.RagDocument{},
		&document.RagIngestEvent{},
		&userEntity.UserInfo{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
