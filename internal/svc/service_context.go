package svc

import (
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"

	"brickpay-sol/internal/config"
	"brickpay-sol/internal/logic/eventparser"
	"brickpay-sol/internal/logic/submit"
	"brickpay-sol/internal/mq"
	"brickpay-sol/internal/pkg/logger"
	"brickpay-sol/internal/service"
	"brickpay-sol/internal/store"
)

// ServiceContext 包含支付 API 服务的全部共享资源
type ServiceContext struct {
	Config    config.ApiConfig
	Client    *client.Client
	Store     store.Store
	Marks     *store.SigMarks
	Producer  *kafka.Producer
	Publisher *mq.EventPublisher
	Engine    *submit.Engine
	Jupiter   *service.JupiterClient

	pg *store.PostgresStore
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c config.ApiConfig) (*ServiceContext, error) {
	// 1. Kafka 生产者
	producer, err := mq.NewKafkaProducer(c.KafkaProducerConf)
	if err != nil {
		logger.Errorf("Kafka producer 初始化失败: %v", err)
		return nil, err
	}

	// 2. Redis 客户端（签名幂等标记）
	rdb := redis.NewClient(&redis.Options{
		Addr: c.RedisAddr,
	})

	// 3. PostgreSQL 连接（事件投影落库）
	pg, err := store.NewPostgresStore(c.PostgresDSN)
	if err != nil {
		logger.Errorf("PostgreSQL 连接失败: %v", err)
		return nil, err
	}

	// 4. Solana RPC 客户端
	cli := client.NewClient(c.RpcConf.Endpoint)

	interval := time.Duration(c.SubmitConf.ResendIntervalMs) * time.Millisecond

	ctx := &ServiceContext{
		Config:    c,
		Client:    cli,
		Store:     pg,
		Marks:     store.NewSigMarks(rdb),
		Producer:  producer,
		Publisher: mq.NewEventPublisher(producer, c.KafkaProducerConf),
		Engine:    submit.NewEngine(submit.NewClientRPC(cli), interval),
		Jupiter:   service.NewJupiterClient(&c.JupiterConf),
		pg:        pg,
	}

	logger.Infof("服务上下文初始化完成")
	return ctx, nil
}

// ParserDeps 事件解析流水线的依赖集合（webhook 与拉取同步共用）
func (ctx *ServiceContext) ParserDeps() *eventparser.Deps {
	deps := &eventparser.Deps{
		Store: ctx.Store,
		Marks: ctx.Marks,
	}
	if ctx.Publisher != nil {
		deps.Events = ctx.Publisher
	}
	return deps
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.Publisher != nil {
		ctx.Publisher.Close()
	}
	if ctx.pg != nil {
		_ = ctx.pg.Close()
	}
}
