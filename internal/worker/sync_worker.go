package worker

import (
	"github.com/spec-kit/sac-service/internal/service"
)

// StartSyncWorker registers the webhook forwarding handlers.
func StartSyncWorker(syncService *service.SyncService) {
	if syncService == nil {
		return
	}
	syncService.RegisterHandlers()
}
