// Package render отрисовывает чеки заказа в PDF через внешний конвертер.
// Одно задание соответствует одному заказу и обрабатывает все его чеки.
package render

import "time"

// ResultKind определяет исход обработки render-задания.
type ResultKind int

const (
	// ResultCompleted — все чеки заказа отрисованы либо уже были отрисованы.
	ResultCompleted ResultKind = iota
	// ResultRetryAfter — временная ошибка: задание нужно повторить после Delay.
	ResultRetryAfter
	// ResultPermanentFailure — задание дальше не ретраится; чеки остаются new,
	// причина отдаётся оператору.
	ResultPermanentFailure
)

// JobResult — явный результат задания вместо control-flow исключений:
// планировщик (pool или kafka consumer) решает, что делать дальше.
type JobResult struct {
	Kind   ResultKind
	Delay  time.Duration
	Reason string
}

// Completed сообщает об успешном завершении задания.
func Completed() JobResult {
	return JobResult{Kind: ResultCompleted}
}

// RetryAfter просит повторить то же задание после паузы delay.
func RetryAfter(delay time.Duration) JobResult {
	return JobResult{Kind: ResultRetryAfter, Delay: delay}
}

// PermanentFailure завершает задание без повторов с причиной для оператора.
func PermanentFailure(reason string) JobResult {
	return JobResult{Kind: ResultPermanentFailure, Reason: reason}
}
