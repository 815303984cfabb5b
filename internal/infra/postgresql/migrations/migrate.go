package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/glamyouup/mailflow/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_notifications_status_type_created ON notifications (status, type, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_merchant_id ON notifications (merchant_id)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_email)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationModel{})
			},
		},
		{
			ID: "000002_create_notification_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
					return err
				}
				sqls := []string{
					`CREATE INDEX IF NOT EXISTS idx_attempts_notification_id ON notification_attempts (notification_id)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_notification_number ON notification_attempts (notification_id, attempt_number)`,
				}
				for _, sql := range sqls {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
		{
			ID: "000003_create_notification_rate_limits",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.RateLimitWindowModel{}); err != nil {
					return err
				}
				return tx.Exec(
					`CREATE INDEX IF NOT EXISTS idx_rate_limits_recipient_window ON notification_rate_limits (recipient_email, notification_type, window_start)`,
				).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.RateLimitWindowModel{})
			},
		},
		{
			ID: "000004_create_notification_templates",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.TemplateModel{}); err != nil {
					return err
				}
				return tx.Exec(
					`CREATE INDEX IF NOT EXISTS idx_templates_type_active ON notification_templates (type, is_active)`,
				).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.TemplateModel{})
			},
		},
	})

	return m.Migrate()
}
