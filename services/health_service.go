// services/health_service.go
package services

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthService struct {
	DB      *gorm.DB
	backend PaymentBackend
}

func NewHealthService(db *gorm.DB, backend PaymentBackend) *HealthService {
	return &HealthService{DB: db, backend: backend}
}

// Health reports database and payment backend reachability. Only a database
// failure makes the service unhealthy.
func (s *HealthService) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := fiber.StatusOK
	body := fiber.Map{"status": "ok", "database": "ok", "payment_backend": "ok"}

	if sqlDB, err := s.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status = fiber.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = "unavailable"
	}
	if err := s.backend.Health(ctx); err != nil {
		zap.L().Warn("payment backend health check failed", zap.Error(err))
		body["payment_backend"] = "unavailable"
	}
	return c.Status(status).JSON(body)
}
