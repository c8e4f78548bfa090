package domain

// MerchantPointRepository описывает требования к хранилищу торговых точек.
type MerchantPointRepository interface {
	Create(point MerchantPoint) error
	// Get возвращает точку по идентификатору или ErrMerchantPointNotFound.
	Get(id string) (MerchantPoint, error)
	// List возвращает точки в порядке создания.
	List() ([]MerchantPoint, error)
	Save(point MerchantPoint) error
	// Delete удаляет точку. Проверка блокирующих принтеров выполняется
	// сервисным слоем до вызова.
	Delete(id string) error
}

// PrinterFilter — закрытый набор параметров выборки принтеров.
type PrinterFilter struct {
	MerchantPointID string
	Kind            CheckKind
}

// PrinterRepository описывает требования к хранилищу принтеров.
type PrinterRepository interface {
	Create(printer Printer) error
	// Get возвращает принтер по идентификатору или ErrPrinterNotFound.
	Get(id string) (Printer, error)
	// GetByAPIKey резолвит api_key принтера. Неизвестный или кривой ключ —
	// одинаково ErrPrinterNotFound, чтобы не палить перебор ключей.
	GetByAPIKey(key string) (Printer, error)
	// List возвращает принтеры по фильтру в порядке создания.
	List(filter PrinterFilter) ([]Printer, error)
	// ListByMerchantPoint возвращает принтеры точки в стабильном порядке:
	// один и тот же заказ всегда видит один и тот же набор.
	ListByMerchantPoint(merchantPointID string) ([]Printer, error)
	Save(printer Printer) error
	Delete(id string) error
}

// CheckFilter — закрытый набор параметров выборки чеков.
type CheckFilter struct {
	PrinterID string
	Kind      CheckKind
	Status    CheckStatus
}

// CheckRepository описывает требования к хранилищу чеков.
type CheckRepository interface {
	// CreateBatch атомарно сохраняет все чеки одного заказа:
	// либо виден весь fan-out, либо ничего.
	CreateBatch(checks []Check) error
	// Get возвращает чек по идентификатору или ErrCheckNotFound.
	Get(id string) (Check, error)
	// List возвращает чеки по фильтру в порядке создания.
	List(filter CheckFilter) ([]Check, error)
	// ListByOrder возвращает чеки заказа в заданном статусе.
	ListByOrder(orderUUID string, status CheckStatus) ([]Check, error)
	// ListForPrint возвращает rendered-чеки принтера в порядке создания
	// с limit/offset пагинацией (limit <= 0 — без ограничения).
	ListForPrint(printerID string, limit, offset int) ([]Check, error)
	// MarkRendered атомарно проставляет артефакт и статус rendered при условии,
	// что чек всё ещё new; иначе возвращает ErrCheckStateChanged.
	MarkRendered(id, artifactName string) error
	// UpdateStatus двигает статус только вперёд; регресс — ErrCheckStatusRegression.
	UpdateStatus(id string, status CheckStatus) error
	Delete(id string) error
	// ListByPrinter нужен для проверки защиты от удаления принтера.
	ListByPrinter(printerID string) ([]Check, error)
}
