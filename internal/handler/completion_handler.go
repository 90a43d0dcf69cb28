// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strings"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/service"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/engine"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// defaultStopSequence 是未指定 stop 时使用的默认停止符。
const defaultStopSequence = "###"

// CompletionHandler 对外暴露补全服务的 HTTP 接口。
// 它不持有任何请求间状态，模型句柄在进程启动时注入且此后不变。
type CompletionHandler struct {
	eng engine.Engine
}

// NewCompletionHandler 创建一个新的 CompletionHandler。
func NewCompletionHandler(eng engine.Engine) *CompletionHandler {
	return &CompletionHandler{eng: eng}
}

// Health 处理存活探测。只说明 HTTP 面可达，与模型状态无关。
func (h *CompletionHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// completionRequest 是 /v1/completions 的请求体。
// 对齐 OpenAI text-completion 请求形状的一个子集；
// gin 的 JSON 绑定会静默忽略这里没有声明的多余字段。
type completionRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop"`
}

// Complete 处理一次文本补全请求。
func (h *CompletionHandler) Complete(c *gin.Context) {
	req := completionRequest{MaxTokens: 512, Temperature: 0.7}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	stop := req.Stop
	if len(stop) == 0 {
		stop = []string{defaultStopSequence}
	}

	text, err := h.eng.Generate(req.Prompt, engine.Params{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        stop,
	})
	if err != nil {
		// 模型运行期故障只上报，不在本层重试
		log.Error("completion failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "model inference failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     "cmpl-" + uuid.NewString(),
		"object": "text_completion",
		"choices": []gin.H{
			{"text": strings.TrimLeft(text, " \n"), "index": 0, "finish_reason": "stop"},
		},
		"model": h.eng.ModelName(),
	})
}

// runRequest 是 /run 便捷接口的请求体（旧前端使用）。
type runRequest struct {
	Question string            `json:"question"`
	Profile  map[string]string `json:"profile"`
	Locale   string            `json:"locale"`
}

// Run 用固定内部模板直接回答一个问题。
func (h *CompletionHandler) Run(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	prompt := buildRunPrompt(req)
	text, err := h.eng.Generate(prompt, engine.Params{
		MaxTokens:   512,
		Temperature: 0.7,
		Stop:        []string{defaultStopSequence},
	})
	if err != nil {
		log.Error("run completion failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "model inference failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": strings.TrimLeft(text, " \n")})
}

// buildRunPrompt 套用与机器人一致的顾问模板，画像字段缺失时用占位符。
func buildRunPrompt(req runRequest) string {
	profile := func(key string) string {
		if v, ok := req.Profile[key]; ok && strings.TrimSpace(v) != "" {
			return v
		}
		return "—"
	}
	user := &model.User{
		Region:          profile("region"),
		BusinessSector:  profile("sector"),
		ExperienceLevel: profile("exp"),
		TransitionGoal:  profile("goal"),
	}
	idea := &model.TrendingIdea{
		Title:       profile("idea_title"),
		Description: profile("idea_descr"),
	}
	return service.BuildPrompt(user, idea, req.Question)
}
