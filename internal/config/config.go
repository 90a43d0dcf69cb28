// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
}

// TelegramConfig 存储 Telegram Bot 相关的配置。
type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// Debug 开启 tgbotapi 的调试输出。
	Debug bool `mapstructure:"debug"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// IdeaCacheTTLMinutes 是创意卡片缓存的过期时间（分钟）。
	IdeaCacheTTLMinutes int `mapstructure:"idea_cache_ttl_minutes"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置（模型制品仓库）。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	// ModelObject 是存储桶中 GGUF 模型文件的对象名。
	ModelObject string `mapstructure:"model_object"`
}

// LLMConfig 存储本地补全服务相关的配置。
type LLMConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ModelPath 是本地 GGUF 模型文件路径，同时作为补全服务的启动参数。
	ModelPath string `mapstructure:"model_path"`
	// RequestTimeoutSeconds 是单次补全调用的超时，分钟级（默认 180 秒）。
	RequestTimeoutSeconds int                 `mapstructure:"request_timeout_seconds"`
	Generation            LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// SupervisorConfig 存储补全服务进程监管相关的配置。
type SupervisorConfig struct {
	// ServerBinary 是 llmserver 可执行文件路径。
	ServerBinary string `mapstructure:"server_binary"`
	// HealthAttempts 是启动窗口内健康探测的最大次数。
	HealthAttempts int `mapstructure:"health_attempts"`
	// HealthIntervalSeconds 是两次健康探测之间的休眠秒数。
	HealthIntervalSeconds int `mapstructure:"health_interval_seconds"`
}

// BaseURL 返回补全服务的根地址。
func (c LLMConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults()
}

// applyDefaults 为缺省项填入与原系统一致的默认值。
func applyDefaults() {
	if Conf.LLM.Host == "" {
		Conf.LLM.Host = "127.0.0.1"
	}
	if Conf.LLM.Port == 0 {
		Conf.LLM.Port = 8000
	}
	if Conf.LLM.RequestTimeoutSeconds == 0 {
		Conf.LLM.RequestTimeoutSeconds = 180
	}
	if Conf.Supervisor.HealthAttempts == 0 {
		Conf.Supervisor.HealthAttempts = 30
	}
	if Conf.Supervisor.HealthIntervalSeconds == 0 {
		Conf.Supervisor.HealthIntervalSeconds = 1
	}
	if Conf.Database.Redis.IdeaCacheTTLMinutes == 0 {
		Conf.Database.Redis.IdeaCacheTTLMinutes = 30
	}
}
