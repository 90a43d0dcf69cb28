package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/repository"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/kafka"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/llm"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"gorm.io/gorm"
)

// 面向用户的提示文案。内部错误细节不外露，
// 唯一的例外是后端失败时附带的简短诊断后缀。
const (
	msgBusy          = "⏳ Ответ ещё формируется, пожалуйста дождитесь и не отправляйте новые сообщения."
	msgNoUsername    = "❌ Добавь username в Telegram и укажи его в профиле на сайте."
	msgUnknownUser   = "❌ Telegram не привязан к пользователю сайта."
	msgProfileHint   = "ℹ️ Заполни профиль на сайте (регион и сферу) — советы будут точнее."
	msgNoIdea        = "❗ Сначала выбери идею на сайте во вкладке «Идеи»."
	msgAck           = "💬 Я думаю над ответом — это займёт до 2 минут. Пожалуйста, не отправляйте новые сообщения."
	msgGenericFail   = "❌ Ошибка при обработке запроса, попробуй ещё раз позже."
	msgQuestionFail  = "❌ Не удалось сохранить вопрос, попробуй ещё раз."
	msgFeedbackThank = "🙏 Спасибо за оценку!"
)

// Identity 标识一条入站消息的来源。
type Identity struct {
	// TelegramID 是平台的数字用户 ID，作为忙碌标记的键。
	TelegramID int64
	// Handle 是用户名（不带 @），可能为空。
	Handle string
	// ChatID 是回复目标对话。
	ChatID int64
}

// Messenger 是出站聊天边界。由 Telegram 传输层实现。
type Messenger interface {
	// Reply 发送一条消息并返回其消息 ID（之后可编辑）。
	Reply(chatID int64, text string) (int, error)
	// Edit 将已发送的消息改写为新文本。
	Edit(chatID int64, messageID int, text string) error
	// EditWithActions 改写消息并附带三个固定动作（清单 / 换创意 / 评价）。
	EditWithActions(chatID int64, messageID int, text, sessionID string) error
}

// AssistantService 定义了问答编排的业务接口。
// 所有可恢复错误都在这一层消化为面向用户的单条提示。
type AssistantService interface {
	// Ask 驱动一次完整的问答流程：
	// 闸门 → 解析身份 → 组装提示词 → 调用后端 → 持久化 → 送达。
	Ask(ctx context.Context, from Identity, question string)
	// Checklist 对已有会话的最近提问追加固定清单指令并再次调用后端。
	// 该流程由按钮触发、单发单收，不经过忙碌闸门。
	Checklist(ctx context.Context, from Identity, sessionID string)
	// RecordFeedback 记录一次满意度评价。
	RecordFeedback(ctx context.Context, from Identity, positive bool)
}

type assistantService struct {
	gate        *PendingGate
	userRepo    repository.UserRepository
	ideaRepo    repository.IdeaRepository
	chatRepo    repository.ChatRepository
	historyRepo repository.HistoryRepository
	llmClient   llm.Client
	messenger   Messenger
	// backendTimeout 是单次补全调用的上界，同时也是忙碌标记存续时间的上界。
	backendTimeout time.Duration
}

// NewAssistantService 创建一个新的 AssistantService。
func NewAssistantService(
	gate *PendingGate,
	userRepo repository.UserRepository,
	ideaRepo repository.IdeaRepository,
	chatRepo repository.ChatRepository,
	historyRepo repository.HistoryRepository,
	llmClient llm.Client,
	messenger Messenger,
	backendTimeout time.Duration,
) AssistantService {
	return &assistantService{
		gate:           gate,
		userRepo:       userRepo,
		ideaRepo:       ideaRepo,
		chatRepo:       chatRepo,
		historyRepo:    historyRepo,
		llmClient:      llmClient,
		messenger:      messenger,
		backendTimeout: backendTimeout,
	}
}

// Ask 实现 §状态机：Idle → Gated → Resolving → Composing → AwaitingBackend → Persisting → Delivered。
func (s *assistantService) Ask(ctx context.Context, from Identity, question string) {
	// 检查与置位在闸门内部一把锁下完成，之后的每个退出路径都必须释放
	if !s.gate.TryAcquire(from.TelegramID) {
		s.reply(from.ChatID, msgBusy)
		return
	}

	if strings.TrimSpace(from.Handle) == "" {
		s.reply(from.ChatID, msgNoUsername)
		s.gate.Release(from.TelegramID)
		return
	}

	tag := "@" + strings.TrimPrefix(from.Handle, "@")
	user, err := s.userRepo.FindByTelegram(tag)
	if err != nil {
		if isNotFound(err) {
			s.reply(from.ChatID, msgUnknownUser)
		} else {
			log.Errorf("查找用户失败: tag=%s, err=%v", tag, err)
			s.reply(from.ChatID, msgGenericFail)
		}
		s.gate.Release(from.TelegramID)
		return
	}

	// 画像不全只提醒一次，不中断流程
	if user.Region == "" || user.BusinessSector == "" {
		s.reply(from.ChatID, msgProfileHint)
	}

	ideaID, err := s.ideaRepo.FindSelection(user.UserID)
	if err != nil {
		if isNotFound(err) {
			s.reply(from.ChatID, msgNoIdea)
		} else {
			log.Errorf("查找创意选择失败: userID=%d, err=%v", user.UserID, err)
			s.reply(from.ChatID, msgGenericFail)
		}
		s.gate.Release(from.TelegramID)
		return
	}

	idea, err := s.ideaRepo.FindIdeaByID(ctx, ideaID)
	if err != nil {
		log.Errorf("读取创意卡片失败: ideaID=%d, err=%v", ideaID, err)
		s.reply(from.ChatID, msgGenericFail)
		s.gate.Release(from.TelegramID)
		return
	}

	sessionID, err := s.chatRepo.GetOrCreateSession(user.UserID, ideaID)
	if err != nil {
		log.Errorf("解析会话失败: userID=%d, ideaID=%d, err=%v", user.UserID, ideaID, err)
		s.reply(from.ChatID, msgGenericFail)
		s.gate.Release(from.TelegramID)
		return
	}

	prompt := BuildPrompt(user, idea, question)

	// 入站消息必须在调用后端之前落库：中途崩溃也不能丢问题
	if _, err := s.chatRepo.AppendMessage(sessionID, user.UserID, model.RoleUser, question); err != nil {
		log.Errorf("记录用户消息失败: session=%s, err=%v", sessionID, err)
		s.reply(from.ChatID, msgQuestionFail)
		s.gate.Release(from.TelegramID)
		return
	}

	// 先发确认消息，之后答案会编辑进同一条消息：每个问题只占一条可见消息
	ackID, err := s.messenger.Reply(from.ChatID, msgAck)
	if err != nil {
		log.Errorf("发送确认消息失败: chatID=%d, err=%v", from.ChatID, err)
		s.gate.Release(from.TelegramID)
		return
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()
	answer, err := s.llmClient.Complete(llmCtx, prompt)
	if err != nil {
		// 超时或传输失败：不重试，用户需要重新提问
		log.Errorf("补全调用失败: session=%s, err=%v", sessionID, err)
		s.edit(from.ChatID, ackID, "❌ LLM не ответил: "+shortDiagnostic(err))
		s.gate.Release(from.TelegramID)
		return
	}

	if _, err := s.chatRepo.AppendMessage(sessionID, user.UserID, model.RoleAssistant, answer); err != nil {
		// 答案已经生成，丢弃它对用户更糟：记日志并继续送达
		log.Errorf("记录助手消息失败: session=%s, err=%v", sessionID, err)
	}

	if err := s.messenger.EditWithActions(from.ChatID, ackID, answer, sessionID); err != nil {
		log.Errorf("送达答案失败: chatID=%d, err=%v", from.ChatID, err)
	}

	s.gate.Release(from.TelegramID)

	s.audit(user.UserID, sessionID, model.ActionLLMRecommendation, fmt.Sprintf("prompt_len=%d", len(question)))
}

// Checklist 重读会话的最近用户提问，追加固定清单指令并再次调用后端。
func (s *assistantService) Checklist(ctx context.Context, from Identity, sessionID string) {
	session, err := s.chatRepo.FindSessionByID(sessionID)
	if err != nil {
		log.Errorf("查找会话失败: session=%s, err=%v", sessionID, err)
		s.reply(from.ChatID, msgGenericFail)
		return
	}

	lastQuestion, err := s.chatRepo.LastUserMessage(sessionID)
	if err != nil {
		log.Errorf("读取最近提问失败: session=%s, err=%v", sessionID, err)
		s.reply(from.ChatID, msgGenericFail)
		return
	}

	user, err := s.userRepo.FindByID(session.UserID)
	if err != nil {
		log.Errorf("查找用户失败: userID=%d, err=%v", session.UserID, err)
		s.reply(from.ChatID, msgGenericFail)
		return
	}

	idea, err := s.ideaRepo.FindIdeaByID(ctx, session.IdeaID)
	if err != nil {
		log.Errorf("读取创意卡片失败: ideaID=%d, err=%v", session.IdeaID, err)
		s.reply(from.ChatID, msgGenericFail)
		return
	}

	prompt := BuildChecklistPrompt(user, idea, lastQuestion.Content)

	llmCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()
	answer, err := s.llmClient.Complete(llmCtx, prompt)
	if err != nil {
		log.Errorf("清单补全调用失败: session=%s, err=%v", sessionID, err)
		s.reply(from.ChatID, "❌ LLM не ответил: "+shortDiagnostic(err))
		return
	}

	if _, err := s.chatRepo.AppendMessage(sessionID, session.UserID, model.RoleAssistant, answer); err != nil {
		log.Errorf("记录清单消息失败: session=%s, err=%v", sessionID, err)
	}

	s.reply(from.ChatID, answer)

	s.audit(session.UserID, sessionID, model.ActionChecklist, "checklist")
}

// RecordFeedback 把满意度评价写入审计流。
func (s *assistantService) RecordFeedback(ctx context.Context, from Identity, positive bool) {
	verdict := "negative"
	if positive {
		verdict = "positive"
	}

	tag := "@" + strings.TrimPrefix(from.Handle, "@")
	user, err := s.userRepo.FindByTelegram(tag)
	if err != nil {
		// 未注册用户的评价无处归档，只回谢语
		s.reply(from.ChatID, msgFeedbackThank)
		return
	}

	s.audit(user.UserID, "", model.ActionFeedback, verdict)
	s.reply(from.ChatID, msgFeedbackThank)
}

// audit 写入尽力而为的审计记录并投递 Kafka 事件。
// 两者的失败都只记日志，不影响已送达的回答。
func (s *assistantService) audit(userID uint, sessionID, action, details string) {
	now := time.Now().UTC()
	if err := s.historyRepo.Insert(&model.UserHistory{
		UserID:     userID,
		ActionType: action,
		ActionTime: now,
		Details:    details,
	}); err != nil {
		log.Errorf("写入审计记录失败: userID=%d, action=%s, err=%v", userID, action, err)
	}
	if err := kafka.ProduceChatEvent(kafka.ChatEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Action:     action,
		Details:    details,
		OccurredAt: now,
	}); err != nil {
		log.Errorf("投递对话事件失败: userID=%d, action=%s, err=%v", userID, action, err)
	}
}

func (s *assistantService) reply(chatID int64, text string) {
	if _, err := s.messenger.Reply(chatID, text); err != nil {
		log.Errorf("发送消息失败: chatID=%d, err=%v", chatID, err)
	}
}

func (s *assistantService) edit(chatID int64, messageID int, text string) {
	if err := s.messenger.Edit(chatID, messageID, text); err != nil {
		log.Errorf("编辑消息失败: chatID=%d, err=%v", chatID, err)
	}
}

// isNotFound 判断是否为"记录不存在"，这类错误映射为引导性提示而非故障。
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// shortDiagnostic 把内部错误压缩成可以外露的简短后缀。
func shortDiagnostic(err error) string {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "timeout"
	}
	if len(msg) > 120 {
		msg = msg[:120] + "…"
	}
	return msg
}
