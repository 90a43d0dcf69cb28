// Package main 是问答机器人（编排进程）的入口点。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/bot"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/config"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/repository"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/service"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/supervisor"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/database"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/kafka"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/llm"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/storage"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 与可选的外部设施
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if cfg.MinIO.Endpoint != "" {
		storage.InitMinIO(cfg.MinIO)
	}
	if cfg.Kafka.Brokers != "" {
		kafka.InitProducer(cfg.Kafka)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 确保补全服务健康：失败即致命，不允许在无后端的情况下接收流量
	sup := supervisor.New(cfg.Supervisor, cfg.LLM, cfg.MinIO)
	if err := sup.EnsureRunning(ctx); err != nil {
		log.Fatal("补全服务启动失败", err)
	}

	// 5. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	ideaRepo := repository.NewIdeaRepository(database.DB, database.RDB,
		time.Duration(cfg.Database.Redis.IdeaCacheTTLMinutes)*time.Minute)
	chatRepo := repository.NewChatRepository(database.DB)
	historyRepo := repository.NewHistoryRepository(database.DB)

	// 6. 初始化传输层与 Service (依赖注入)
	tgBot, err := bot.New(cfg.Telegram)
	if err != nil {
		log.Fatal("Telegram 连接失败", err)
	}

	llmClient := llm.NewClient(cfg.LLM)
	gate := service.NewPendingGate()
	assistant := service.NewAssistantService(
		gate,
		userRepo,
		ideaRepo,
		chatRepo,
		historyRepo,
		llmClient,
		tgBot,
		time.Duration(cfg.LLM.RequestTimeoutSeconds)*time.Second,
	)
	tgBot.SetAssistant(assistant)

	// 7. 启动长轮询并等待停机信号
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("接收到停机信号，正在关闭服务...")
		cancel()
	}()

	tgBot.Run(ctx)
	log.Info("服务已优雅关闭")
}
