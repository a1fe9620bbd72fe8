package notification

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("notification.service",
	fx.Provide(
		NewService,
		NewHandler,
		NewTaskNotifier,
	),
	fx.Invoke(
		AutoMigrate,
		RegisterRoutes,
	),
)

// Worker consumes loyalty:notify tasks. It needs task.Server in the same app.
var Worker = fx.Module("notification.worker",
	fx.Invoke(registerTaskHandlers),
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Notification{})
}
