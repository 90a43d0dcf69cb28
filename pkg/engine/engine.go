// Package engine 封装了进程内加载的本地生成模型。
package engine

import (
	"fmt"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// Params 控制单次生成的行为。
type Params struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Engine 是对已加载模型的只读句柄。
// 实现必须可被多个请求共享；模型在进程生命周期内只加载一次，
// 由入口显式构造后传入，不使用惰性全局变量。
type Engine interface {
	// Generate 执行一次文本补全。模型运行期故障原样返回。
	Generate(prompt string, p Params) (string, error)
	// ModelName 返回对外暴露的模型标识。
	ModelName() string
}

// llamaEngine 基于 llama.cpp 绑定实现 Engine。
// llama.cpp 的推理调用不可重入，用互斥锁串行化；
// HTTP 层因此天然以模型为瓶颈排队，与原服务行为一致。
type llamaEngine struct {
	mu    sync.Mutex
	model *llama.LLama
	// threads 是每次推理使用的 CPU 线程数。
	threads int
}

// Load 加载 GGUF 模型并返回进程唯一的 Engine 句柄。
// CPU-only 推理，上下文长度与线程数由调用方给定。
func Load(modelPath string, ctxLen, threads int) (Engine, error) {
	model, err := llama.New(
		modelPath,
		llama.SetContext(ctxLen),
		llama.SetGPULayers(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", modelPath, err)
	}
	return &llamaEngine{model: model, threads: threads}, nil
}

// Generate 执行一次补全调用。
func (e *llamaEngine) Generate(prompt string, p Params) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.model.Predict(
		prompt,
		llama.SetTokens(p.MaxTokens),
		llama.SetTemperature(float32(p.Temperature)),
		llama.SetThreads(e.threads),
		llama.SetStopWords(p.Stop...),
	)
	if err != nil {
		return "", fmt.Errorf("model inference failed: %w", err)
	}
	return out, nil
}

// ModelName 固定返回 "local"，与原补全服务保持一致。
func (e *llamaEngine) ModelName() string {
	return "local"
}
