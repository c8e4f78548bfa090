package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего имени сущности.
	ErrNameRequired = errors.New("name is required")
	// Ошибка отсутствующего адреса торговой точки.
	ErrAddressRequired = errors.New("address is required")
	// Ошибка отсутствующей ссылки на торговую точку.
	ErrMerchantPointRequired = errors.New("merchant_point is required")
	// Ошибка отсутствующей ссылки на принтер в чеке.
	ErrPrinterIDRequired = errors.New("printer is required")
	// Ошибка отсутствующего UUID заказа в чеке.
	ErrOrderUUIDRequired = errors.New("order uuid is required")
	// Ошибка недопустимого типа чека.
	ErrCheckKindInvalid = errors.New("invalid check type")
	// Ошибка недопустимого статуса чека.
	ErrCheckStatusInvalid = errors.New("invalid check status")
	// Ошибка попытки двинуть статус чека назад.
	ErrCheckStatusRegression = errors.New("check status cannot move backwards")
	// Несогласованность статуса и ссылки на артефакт.
	ErrArtifactStateMismatch = errors.New("artifact reference does not match check status")

	// ErrMerchantPointNotFound возвращается, если торговая точка не найдена.
	ErrMerchantPointNotFound = errors.New("merchant point not found")
	// ErrPrinterNotFound возвращается, если принтер не найден (в том числе по api_key).
	ErrPrinterNotFound = errors.New("printer not found")
	// ErrCheckNotFound возвращается, если чек не найден в репозитории.
	ErrCheckNotFound = errors.New("check not found")
	// ErrArtifactNotFound возвращается хранилищем артефактов при чтении отсутствующего имени.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrCheckStateChanged сигнализирует, что условное обновление статуса не прошло:
	// чек уже не в статусе new. Для воркера это повод пропустить чек, а не ошибка.
	ErrCheckStateChanged = errors.New("check is no longer in status new")

	// ErrDuplicateCheck возвращается при попытке повторно создать чек с тем же ID.
	ErrDuplicateCheck = errors.New("check already exists")
)

// ValidationError описывает ошибку формы входных данных с указанием поля.
// Никогда не ретраится и разрешается на границе HTTP как 400.
type ValidationError struct {
	Field string
}

// NewValidationError создаёт ошибку валидации для поля.
func NewValidationError(field string) *ValidationError {
	return &ValidationError{Field: field}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Field)
}

// IsValidation проверяет, является ли ошибка ошибкой валидации.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProtectedRef описывает объект, блокирующий удаление.
type ProtectedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProtectedError возвращается при попытке удалить сущность, на которую ссылаются
// другие записи. Содержит список блокирующих объектов для ответа клиенту.
type ProtectedError struct {
	Refs []ProtectedRef
}

func (e *ProtectedError) Error() string {
	return fmt.Sprintf("cannot delete object as it is being used by %d objects", len(e.Refs))
}

// IsProtected проверяет, заблокировано ли удаление живыми ссылками.
func IsProtected(err error) (*ProtectedError, bool) {
	var pe *ProtectedError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsNotFound объединяет все not-found ошибки доменного слоя.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMerchantPointNotFound) ||
		errors.Is(err, ErrPrinterNotFound) ||
		errors.Is(err, ErrCheckNotFound) ||
		errors.Is(err, ErrArtifactNotFound)
}
