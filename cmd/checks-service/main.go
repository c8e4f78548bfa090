package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checks/internal/app"
)

// Переменные окружения для переопределения конфигурации по умолчанию.
const (
	envHTTPAddr     = "CHECKS_HTTP_ADDR"
	envMetricsAddr  = "CHECKS_METRICS_ADDR"
	envKafkaBrokers = "KAFKA_BROKERS"
	envPostgresDSN  = "CHECKS_POSTGRES_DSN"
	envMediaDir     = "CHECKS_MEDIA_DIR"
	envConverterURL = "CHECKS_CONVERTER_URL"

	envRenderWorkers   = "CHECKS_RENDER_WORKERS"
	envRenderQueueSize = "CHECKS_RENDER_QUEUE_SIZE"
	envMaxAttempts     = "CHECKS_RENDER_MAX_ATTEMPTS"
	envInitialDelay    = "CHECKS_RENDER_INITIAL_DELAY"
	envMaxDelay        = "CHECKS_RENDER_MAX_DELAY"
)

// envLookup абстрагирует os.LookupEnv для тестируемости.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных окружения.
// Невалидные значения не прерывают запуск: остаётся значение по умолчанию,
// а причина возвращается в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	readString(lookup, envHTTPAddr, &cfg.HTTPAddr)
	readString(lookup, envMetricsAddr, &cfg.MetricsAddr)
	readString(lookup, envKafkaBrokers, &cfg.KafkaBrokers)
	readString(lookup, envPostgresDSN, &cfg.PostgresDSN)
	readString(lookup, envMediaDir, &cfg.MediaDir)
	readString(lookup, envConverterURL, &cfg.ConverterURL)

	readInt(lookup, envRenderWorkers, &cfg.RenderWorkers, &warnings, func(v int) bool { return v > 0 }, "must be > 0")
	readInt(lookup, envRenderQueueSize, &cfg.RenderQueueSize, &warnings, func(v int) bool { return v > 0 }, "must be > 0")
	readInt(lookup, envMaxAttempts, &cfg.MaxAttempts, &warnings, func(v int) bool { return v > 0 }, "must be > 0")
	readDuration(lookup, envInitialDelay, &cfg.InitialDelay, &warnings, func(v time.Duration) bool { return v > 0 }, "must be > 0")
	readDuration(lookup, envMaxDelay, &cfg.MaxDelay, &warnings, func(v time.Duration) bool { return v > 0 }, "must be > 0")

	return cfg, warnings
}

func readString(lookup envLookup, key string, target *string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return
	}
	*target = value
}

func readInt(lookup envLookup, key string, target *int, warnings *[]string, valid func(int) bool, rule string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	value, err := parseInt(raw, valid, rule)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*target = value
}

func readDuration(lookup envLookup, key string, target *time.Duration, warnings *[]string, valid func(time.Duration) bool, rule string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	value, err := parseDuration(raw, valid, rule)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*target = value
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d is out of range: %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s is out of range: %s", value, rule)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем сервис чеков")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис чеков остановлен")
}
