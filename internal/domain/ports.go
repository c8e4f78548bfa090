package domain

import "context"

// Converter описывает внешний сервис конвертации HTML в PDF.
// Вызов либо возвращает байты PDF, либо ошибку; сетевые ошибки считаются
// временными и ретраятся воркером.
type Converter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// ArtifactStore — долговременное хранилище отрисованных PDF, адресуемое именем.
type ArtifactStore interface {
	// Put сохраняет содержимое под именем. Перезапись идемпотентна:
	// повторный рендер пишет идентичные байты под тем же именем.
	Put(name string, data []byte) error
	// Get возвращает содержимое или ErrArtifactNotFound.
	Get(name string) ([]byte, error)
	// Exists сообщает, существует ли артефакт.
	Exists(name string) bool
}

// RenderQueue принимает задания на рендеринг: одно задание на заказ.
// Публикация происходит строго после коммита fan-out, чтобы воркер
// не обогнал видимость данных.
type RenderQueue interface {
	Enqueue(ctx context.Context, orderUUID string) error
}
