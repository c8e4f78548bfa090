// Package registry управляет справочными сущностями: торговыми точками,
// принтерами и чеками. Удаление защищено проверкой живых ссылок.
package registry

import (
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// Service реализует операции управления справочниками.
type Service struct {
	points   domain.MerchantPointRepository
	printers domain.PrinterRepository
	checks   domain.CheckRepository
	logger   *log.Entry
	now      func() time.Time
}

// NewService создаёт сервис справочников.
func NewService(points domain.MerchantPointRepository, printers domain.PrinterRepository, checks domain.CheckRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "registry-service")
	}

	return &Service{
		points:   points,
		printers: printers,
		checks:   checks,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// newAPIKey генерирует непрозрачный ключ принтера.
func newAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
