package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	// TZ — гражданский часовой пояс чата: от него считаются «полуночные»
	// границы окон и подписи времени, независимо от пояса сервера.
	TZ   string `envconfig:"TZ" default:"Europe/Warsaw"`
	Port int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Storage struct {
		DataDir string `envconfig:"DATA_DIR" default:"./data"`
		TempDir string `envconfig:"TEMP_DIR" default:"./tmp"`
	} `envconfig:""`

	Limits struct {
		TopCount    int `envconfig:"TOP_COUNT" default:"5"`
		NumberLimit int `envconfig:"NUMBER_LIMIT" default:"100"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
