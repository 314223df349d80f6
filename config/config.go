package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Control  ControlConfig  `mapstructure:"control"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig points at the game server the client synchronizes with.
type ServerConfig struct {
	WSURL            string        `mapstructure:"ws_url"`
	HTTPBaseURL      string        `mapstructure:"http_base_url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	Heartbeat        time.Duration `mapstructure:"heartbeat"`
}

type SessionConfig struct {
	PlayerName          string        `mapstructure:"player_name"`
	RoomRefreshInterval time.Duration `mapstructure:"room_refresh_interval"`
	AckTimeout          time.Duration `mapstructure:"ack_timeout"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
}

// ControlConfig holds the local control surfaces. Empty addresses disable them.
type ControlConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // memory, gorm, postgres
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.ws_url", "ws://localhost:5000/ws")
	v.SetDefault("server.http_base_url", "http://localhost:5000")
	v.SetDefault("server.handshake_timeout", 10*time.Second)
	v.SetDefault("server.heartbeat", 15*time.Second)

	v.SetDefault("session.room_refresh_interval", 5*time.Second)
	v.SetDefault("session.ack_timeout", 10*time.Second)
	v.SetDefault("session.sweep_interval", 500*time.Millisecond)

	v.SetDefault("control.http_address", "127.0.0.1:8090")
	v.SetDefault("control.rpc_address", "")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path, then overlays TWILIGHT_* environment
// variables. A local .env file is loaded first when present. A missing
// config file is not an error.
func LoadConfig(path string) (config *Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("twilight")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	return
}
