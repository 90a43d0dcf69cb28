// Package main 是本地补全服务的入口点。
// 启动参数 --host/--port/--model 即监管方的进程启动契约。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/handler"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/middleware"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/engine"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/gin-gonic/gin"
)

func main() {
	host := flag.String("host", "127.0.0.1", "bind host")
	port := flag.Int("port", 8000, "bind port")
	modelPath := flag.String("model", "", "GGUF model file path")
	flag.Parse()

	log.Init("info", "console", "")
	defer log.Sync()

	if *modelPath == "" {
		log.Fatalf("--model is required")
	}

	// 模型在进程启动时加载一次，句柄在整个进程生命周期内共享且不变
	ctxLen := envInt("LLM_CTX", 4096)
	threads := envInt("LLM_THREADS", runtime.NumCPU())
	log.Infof("正在加载模型: %s (ctx=%d, threads=%d)", *modelPath, ctxLen, threads)
	eng, err := engine.Load(*modelPath, ctxLen, threads)
	if err != nil {
		log.Fatal("模型加载失败", err)
	}
	log.Info("模型加载完成")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	h := handler.NewCompletionHandler(eng)
	r.GET("/health", h.Health)
	r.POST("/v1/completions", h.Complete)
	r.POST("/run", h.Run)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", *host, *port),
		Handler: r,
	}

	go func() {
		log.Infof("补全服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// envInt 读取整型环境变量，缺省或非法时返回默认值。
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
