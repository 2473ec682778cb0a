package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"tg-chat-stats-bot/internal/adapters/bot"
	"tg-chat-stats-bot/internal/adapters/chart"
	"tg-chat-stats-bot/internal/adapters/repo"
	"tg-chat-stats-bot/internal/infra/config"
	"tg-chat-stats-bot/internal/infra/log"
	"tg-chat-stats-bot/internal/infra/metrics"
	"tg-chat-stats-bot/internal/usecase/stats"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("неизвестный часовой пояс")
	}

	store, err := repo.Open(cfg.Storage.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть хранилище")
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := stats.NewTableCache(ctx, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить таблицы архива")
	}

	renderer := chart.NewRenderer(cfg.Storage.TempDir)
	statsService := stats.NewService(cache, store, renderer, logger, loc, cfg.Limits.TopCount, cfg.Limits.NumberLimit)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	handler := bot.NewHandler(botAPI, logger, statsService)

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logger, fmt.Sprintf(":%d", cfg.Port))

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := botAPI.GetUpdatesChan(updateCfg)

	go func() {
		logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот запущен")
		for upd := range updates {
			handler.HandleUpdate(ctx, upd)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("остановка бота")
	botAPI.StopReceivingUpdates()
	cancel()
}
