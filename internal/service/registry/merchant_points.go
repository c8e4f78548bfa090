package registry

import (
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

// MerchantPointInput — входные данные создания и обновления торговой точки.
type MerchantPointInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (in MerchantPointInput) validate() error {
	if in.Name == "" {
		return domain.NewValidationError("name")
	}
	if in.Address == "" {
		return domain.NewValidationError("address")
	}
	return nil
}

// CreateMerchantPoint создаёт торговую точку.
func (s *Service) CreateMerchantPoint(in MerchantPointInput) (domain.MerchantPoint, error) {
	if err := in.validate(); err != nil {
		return domain.MerchantPoint{}, err
	}

	now := s.now()
	point := domain.MerchantPoint{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.points.Create(point); err != nil {
		return domain.MerchantPoint{}, err
	}

	s.logger.WithField("merchant_point_id", point.ID).Info("merchant point created")
	return point, nil
}

// GetMerchantPoint возвращает точку по идентификатору.
func (s *Service) GetMerchantPoint(id string) (domain.MerchantPoint, error) {
	return s.points.Get(id)
}

// ListMerchantPoints возвращает точки в порядке создания.
func (s *Service) ListMerchantPoints() ([]domain.MerchantPoint, error) {
	return s.points.List()
}

// UpdateMerchantPoint обновляет имя и адрес точки.
func (s *Service) UpdateMerchantPoint(id string, in MerchantPointInput) (domain.MerchantPoint, error) {
	if err := in.validate(); err != nil {
		return domain.MerchantPoint{}, err
	}

	point, err := s.points.Get(id)
	if err != nil {
		return domain.MerchantPoint{}, err
	}

	point.Name = in.Name
	point.Address = in.Address
	point.UpdatedAt = s.now()

	if err := s.points.Save(point); err != nil {
		return domain.MerchantPoint{}, err
	}
	return point, nil
}

// DeleteMerchantPoint удаляет точку, если на неё не ссылается ни один принтер.
// Иначе возвращает ProtectedError со списком блокирующих принтеров.
func (s *Service) DeleteMerchantPoint(id string) error {
	if _, err := s.points.Get(id); err != nil {
		return err
	}

	printers, err := s.printers.ListByMerchantPoint(id)
	if err != nil {
		return err
	}
	if len(printers) > 0 {
		refs := make([]domain.ProtectedRef, 0, len(printers))
		for _, printer := range printers {
			refs = append(refs, domain.ProtectedRef{ID: printer.ID, Name: printer.Name})
		}
		return &domain.ProtectedError{Refs: refs}
	}

	if err := s.points.Delete(id); err != nil {
		return err
	}

	s.logger.WithField("merchant_point_id", id).Info("merchant point deleted")
	return nil
}
