package config

import (
	"brickpay-sol/internal/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers    string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize  int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs   int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）
	Topic      string `yaml:"topic"`      // 支付事件 topic
	Partitions int    `yaml:"partitions"` // topic 分区数
}

// RpcConfig Solana RPC 节点配置
type RpcConfig struct {
	Endpoint string `yaml:"endpoint"` // RPC 节点地址
}

// FeeConfig 优先费配置
type FeeConfig struct {
	DefaultMicroLamports uint64 `yaml:"default_micro_lamports"` // 估算不可用时的兜底费率
}

// SubmitConfig 交易提交配置
type SubmitConfig struct {
	ResendIntervalMs int `yaml:"resend_interval_ms"` // 重发/确认检查间隔（毫秒）
}

// WebhookConfig 确认交易推送入口配置
type WebhookConfig struct {
	AuthToken string `yaml:"auth_token"` // Bearer 鉴权令牌
}

// SyncConfig 主动拉取同步配置（webhook 的兜底通道）
type SyncConfig struct {
	Enabled     bool `yaml:"enabled"`
	IntervalSec int  `yaml:"interval_sec"` // 拉取间隔（秒）
	BatchLimit  int  `yaml:"batch_limit"`  // 单次拉取的签名数量上限
}

// JupiterConfig 聚合交易所报价服务配置
type JupiterConfig struct {
	Endpoint    string `yaml:"endpoint"`     // 例如 https://quote-api.jup.ag
	SlippageBps int    `yaml:"slippage_bps"` // 兑换滑点（基点）
}

// ApiConfig 是主配置结构体，驱动支付 API 服务
type ApiConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // Kafka 生产者配置
	RpcConf           RpcConfig           `yaml:"rpc"`            // Solana RPC 配置
	FeeConf           FeeConfig           `yaml:"fee"`            // 优先费配置
	SubmitConf        SubmitConfig        `yaml:"submit"`         // 提交引擎配置
	WebhookConf       WebhookConfig       `yaml:"webhook"`        // webhook 鉴权配置
	SyncConf          SyncConfig          `yaml:"sync"`           // 拉取同步配置
	JupiterConf       JupiterConfig       `yaml:"jupiter"`        // Jupiter 配置

	RedisAddr   string `yaml:"redis_addr"`   // Redis 地址
	PostgresDSN string `yaml:"postgres_dsn"` // PostgreSQL 数据源
}
