// Package version хранит сборочную информацию сервиса чеков.
package version

import "fmt"

// Service — имя бинаря для логов и health-ответов.
const Service = "checks-service"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает version/commit/date, заполняемые через -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// String собирает однострочное описание сборки.
func String() string {
	return fmt.Sprintf("%s version=%s commit=%s date=%s", Service, version, commit, date)
}
