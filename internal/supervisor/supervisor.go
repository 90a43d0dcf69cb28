// Package supervisor 负责确保补全服务进程在流量进入前处于健康状态。
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/config"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/storage"
)

// Supervisor 持有补全服务的进程句柄，并提供启动窗口内的健康监管。
// 启动窗口之外不做任何重启监管。
type Supervisor struct {
	cfg      config.SupervisorConfig
	llmCfg   config.LLMConfig
	minioCfg config.MinIOConfig
	client   *http.Client
	proc     *os.Process
}

// New 创建一个新的 Supervisor。
func New(cfg config.SupervisorConfig, llmCfg config.LLMConfig, minioCfg config.MinIOConfig) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		llmCfg:   llmCfg,
		minioCfg: minioCfg,
		// 健康探测要快速失败，与补全调用的分钟级超时无关
		client: &http.Client{Timeout: time.Second},
	}
}

// IsHealthy 对 /health 做一次存活探测。
func (s *Supervisor) IsHealthy() bool {
	resp, err := s.client.Get(s.llmCfg.BaseURL() + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EnsureRunning 是幂等的：服务已健康时立即返回；
// 否则以分离进程方式启动 llmserver，并在有界次数内轮询健康端点。
// 超出次数上限返回错误，调用方应视为致命错误退出进程。
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if s.IsHealthy() {
		log.Info("补全服务已在运行")
		return nil
	}

	// 本地缺失模型时先从对象存储拉取
	if err := storage.EnsureModelArtifact(ctx, s.minioCfg, s.llmCfg.ModelPath); err != nil {
		return fmt.Errorf("model artifact unavailable: %w", err)
	}

	if _, err := os.Stat(s.cfg.ServerBinary); err != nil {
		return fmt.Errorf("llmserver binary not found at %s: %w", s.cfg.ServerBinary, err)
	}

	cmd := exec.Command(s.cfg.ServerBinary,
		"--host", s.llmCfg.Host,
		"--port", strconv.Itoa(s.llmCfg.Port),
		"--model", s.llmCfg.ModelPath,
	)
	log.Infof("正在启动补全服务: %s", cmd.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start llmserver: %w", err)
	}
	s.proc = cmd.Process
	// 只负责回收子进程，不做重启
	go func() { _ = cmd.Wait() }()

	interval := time.Duration(s.cfg.HealthIntervalSeconds) * time.Second
	for attempt := 0; attempt < s.cfg.HealthAttempts; attempt++ {
		if s.IsHealthy() {
			log.Info("补全服务已就绪")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("llmserver did not become healthy within %d attempts", s.cfg.HealthAttempts)
}
