package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Количество обработанных команд",
	}, []string{"command"})

	ReportBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_build_seconds",
		Help:    "Время построения отчёта",
		Buckets: prometheus.DefBuckets,
	})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})

	TableReloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "table_reloads_total",
		Help: "Перечитывания таблиц архива по сигналу обновления",
	})

	ArgumentErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_argument_errors_total",
		Help: "Команды, отклонённые на разборе аргументов",
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		CommandsTotal,
		ReportBuildSeconds,
		BotSendErrors,
		TableReloads,
		ArgumentErrors,
	)
}

// IncCommand увеличивает счётчик обработанных команд.
func IncCommand(command string) {
	CommandsTotal.WithLabelValues(command).Inc()
}

// IncArgumentError увеличивает счётчик ошибок аргументов.
func IncArgumentError() {
	ArgumentErrors.Inc()
}

// ObserveReportBuild записывает длительность построения отчёта.
func ObserveReportBuild(start time.Time) {
	ReportBuildSeconds.Observe(time.Since(start).Seconds())
}

// StartServer запускает HTTP сервер с /metrics и /healthz.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		promhttp.Handler().ServeHTTP(w, req)
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}
