package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Checker  CheckerConfig  `mapstructure:"checker"`
	Features FeaturesConfig `mapstructure:"features"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// CheckerConfig drives the round lifecycle and task generation. All values are
// fixed at construction; there is no runtime reconfiguration.
type CheckerConfig struct {
	RoundDuration     time.Duration  `mapstructure:"round_duration"`
	CheckInterval     time.Duration  `mapstructure:"check_interval"`
	MaxTasksPerSubnet int            `mapstructure:"max_tasks_per_subnet"`
	MaxTasksPerNode   int            `mapstructure:"max_tasks_per_node"`
	Retention         time.Duration  `mapstructure:"retention"`
	Subnets           []SubnetConfig `mapstructure:"subnets"`
}

type SubnetConfig struct {
	Name      string   `mapstructure:"name"`
	Endpoints []string `mapstructure:"endpoints"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("CHECKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("checker.round_duration", 10*time.Minute)
	viper.SetDefault("checker.check_interval", 30*time.Second)
	viper.SetDefault("checker.max_tasks_per_subnet", 16)
	viper.SetDefault("checker.max_tasks_per_node", 4)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Checker.RoundDuration <= 0 {
		return nil, fmt.Errorf("checker.round_duration must be positive, got %s", cfg.Checker.RoundDuration)
	}
	if cfg.Checker.CheckInterval <= 0 {
		return nil, fmt.Errorf("checker.check_interval must be positive, got %s", cfg.Checker.CheckInterval)
	}

	return &cfg, nil
}
