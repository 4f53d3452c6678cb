package worker

import (
	"github.com/sk-federation/youth-portal/internal/service"
)

// StartAuditWorker registers the audit log handlers.
func StartAuditWorker(audit *service.AuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}
