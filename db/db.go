package db

import (
	"fmt"
	"log/slog"

	"Gin_postgres_redis_lendshare/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB opens Postgres and runs the schema migration.
func ConnectDB(dsn string) (*gorm.DB, error) {
	gdb, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("database connected")
	return gdb, nil
}

// Open 统一 gorm 配置：TranslateError 让唯一约束冲突变成 gorm.ErrDuplicatedKey
func Open(d gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(d, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Credential{},
		&models.Category{},
		&models.Item{},
		&models.BorrowRequest{},
		&models.BorrowRecord{},
		&models.DamageReport{},
		&models.Rating{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// 同一物品最多一条未归还的借用记录
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_item
	  ON %s (item_id)
	  WHERE status <> 'returned';
	`, models.BorrowRecordTable, models.BorrowRecordTable)).Error; err != nil {
		return err
	}

	// 通知列表按 user + 时间倒序
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_user_created_desc
	  ON %s (user_id, created_at DESC);
	`, models.NotificationTable, models.NotificationTable)).Error; err != nil {
		return err
	}

	return nil
}
