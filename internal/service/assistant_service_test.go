package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/repository"
	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/llm"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ---- fakes ----

var (
	_ repository.UserRepository    = (*fakeUserRepo)(nil)
	_ repository.IdeaRepository    = (*fakeIdeaRepo)(nil)
	_ repository.ChatRepository    = (*fakeChatRepo)(nil)
	_ repository.HistoryRepository = (*fakeHistoryRepo)(nil)
	_ llm.Client                   = (*fakeLLM)(nil)
	_ Messenger                    = (*fakeMessenger)(nil)
)

type fakeUserRepo struct {
	users map[string]*model.User // key: "@handle"
}

func (f *fakeUserRepo) FindByTelegram(handle string) (*model.User, error) {
	u, ok := f.users[handle]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByID(userID uint) (*model.User, error) {
	for _, u := range f.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeIdeaRepo struct {
	selections map[uint]uint
	ideas      map[uint]*model.TrendingIdea
}

func (f *fakeIdeaRepo) FindSelection(userID uint) (uint, error) {
	id, ok := f.selections[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return id, nil
}

func (f *fakeIdeaRepo) FindIdeaByID(_ context.Context, ideaID uint) (*model.TrendingIdea, error) {
	idea, ok := f.ideas[ideaID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return idea, nil
}

type fakeChatRepo struct {
	sessions map[string]*model.ChatSession
	messages []model.ChatMessage
	// tick 保证 created_at 严格单调递增
	tick int
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{sessions: make(map[string]*model.ChatSession)}
}

func (f *fakeChatRepo) GetOrCreateSession(userID, ideaID uint) (string, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.IdeaID == ideaID {
			return s.SessionID, nil
		}
	}
	sid := fmt.Sprintf("sess-%d", len(f.sessions)+1)
	f.sessions[sid] = &model.ChatSession{SessionID: sid, UserID: userID, IdeaID: ideaID, Title: "Telegram chat"}
	return sid, nil
}

func (f *fakeChatRepo) FindSessionByID(sessionID string) (*model.ChatSession, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeChatRepo) AppendMessage(sessionID string, userID uint, role, content string) (*model.ChatMessage, error) {
	f.tick++
	msg := model.ChatMessage{
		MessageID: fmt.Sprintf("msg-%d", f.tick),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Unix(0, int64(f.tick)*int64(time.Millisecond)),
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeChatRepo) LastUserMessage(sessionID string) (*model.ChatMessage, error) {
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].SessionID == sessionID && f.messages[i].Role == model.RoleUser {
			return &f.messages[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChatRepo) ListMessages(sessionID string) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	records []model.UserHistory
}

func (f *fakeHistoryRepo) Insert(record *model.UserHistory) error {
	f.records = append(f.records, *record)
	return nil
}

type fakeLLM struct {
	answer  string
	prompts []string
	// blockOnce 为 true 时第一次调用挂起直到 ctx 超时
	blockOnce bool
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.blockOnce {
		f.blockOnce = false
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, nil
}

type sentMessage struct {
	chatID int64
	id     int
	text   string
}

type editedMessage struct {
	chatID    int64
	messageID int
	text      string
	actions   bool
	sessionID string
}

type fakeMessenger struct {
	sent   []sentMessage
	edits  []editedMessage
	nextID int
}

func (f *fakeMessenger) Reply(chatID int64, text string) (int, error) {
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, id: f.nextID, text: text})
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(chatID int64, messageID int, text string) error {
	f.edits = append(f.edits, editedMessage{chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeMessenger) EditWithActions(chatID int64, messageID int, text, sessionID string) error {
	f.edits = append(f.edits, editedMessage{
		chatID: chatID, messageID: messageID, text: text, actions: true, sessionID: sessionID,
	})
	return nil
}

// ---- fixture ----

type fixture struct {
	gate      *PendingGate
	users     *fakeUserRepo
	ideas     *fakeIdeaRepo
	chat      *fakeChatRepo
	history   *fakeHistoryRepo
	llmClient *fakeLLM
	messenger *fakeMessenger
	svc       AssistantService
}

func newFixture(t *testing.T, backendTimeout time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		gate: NewPendingGate(),
		users: &fakeUserRepo{users: map[string]*model.User{
			"@alice": {UserID: 10, Telegram: "@alice", Region: "Moscow", BusinessSector: "retail"},
		}},
		ideas: &fakeIdeaRepo{
			selections: map[uint]uint{10: 77},
			ideas: map[uint]*model.TrendingIdea{
				77: {IdeaID: 77, Title: "EcoDelivery", Description: "green last-mile delivery"},
			},
		},
		chat:      newFakeChatRepo(),
		history:   &fakeHistoryRepo{},
		llmClient: &fakeLLM{answer: "Вот мой план."},
		messenger: &fakeMessenger{},
	}
	f.svc = NewAssistantService(f.gate, f.users, f.ideas, f.chat, f.history, f.llmClient, f.messenger, backendTimeout)
	return f
}

var alice = Identity{TelegramID: 1001, Handle: "alice", ChatID: 555}

const aliceQuestion = "How do I move from a physical store?"

// ---- tests ----

func TestAsk_EndToEnd(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), alice, aliceQuestion)

	// 入站问题原文落库，且先于助手回合
	require.Len(t, f.chat.messages, 2)
	require.Equal(t, model.RoleUser, f.chat.messages[0].Role)
	require.Equal(t, aliceQuestion, f.chat.messages[0].Content)
	require.Equal(t, model.RoleAssistant, f.chat.messages[1].Role)
	require.Equal(t, "Вот мой план.", f.chat.messages[1].Content)

	// 提示词包含四个画像字段（缺省的用占位符）与原始问题
	require.Len(t, f.llmClient.prompts, 1)
	prompt := f.llmClient.prompts[0]
	require.Contains(t, prompt, "Moscow")
	require.Contains(t, prompt, "retail")
	require.Contains(t, prompt, "Опыт:           —")
	require.Contains(t, prompt, "Цель перехода:  —")
	require.Contains(t, prompt, "EcoDelivery")
	require.Contains(t, prompt, aliceQuestion)

	// 单条可见消息：确认消息被编辑为带动作的最终答案
	require.Len(t, f.messenger.sent, 1)
	require.Equal(t, msgAck, f.messenger.sent[0].text)
	require.Len(t, f.messenger.edits, 1)
	edit := f.messenger.edits[0]
	require.Equal(t, f.messenger.sent[0].id, edit.messageID)
	require.Equal(t, "Вот мой план.", edit.text)
	require.True(t, edit.actions)
	require.Equal(t, f.chat.messages[0].SessionID, edit.sessionID)

	// 审计记录已写入，闸门已释放
	require.Len(t, f.history.records, 1)
	require.Equal(t, model.ActionLLMRecommendation, f.history.records[0].ActionType)
	require.True(t, f.gate.TryAcquire(alice.TelegramID))
}

func TestAsk_BusyShortCircuit(t *testing.T) {
	f := newFixture(t, time.Second)

	require.True(t, f.gate.TryAcquire(alice.TelegramID))
	f.svc.Ask(context.Background(), alice, "ещё вопрос")

	require.Len(t, f.messenger.sent, 1)
	require.Equal(t, msgBusy, f.messenger.sent[0].text)
	// 不触达后端，不落库
	require.Empty(t, f.llmClient.prompts)
	require.Empty(t, f.chat.messages)
}

func TestAsk_UnknownIdentity(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), Identity{TelegramID: 2, Handle: "ghost", ChatID: 9}, "вопрос")

	require.Len(t, f.messenger.sent, 1)
	require.Equal(t, msgUnknownUser, f.messenger.sent[0].text)
	require.Empty(t, f.chat.sessions)
	// 中止后闸门必须已释放
	require.True(t, f.gate.TryAcquire(2))
}

func TestAsk_MissingUsername(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), Identity{TelegramID: 3, ChatID: 9}, "вопрос")

	require.Len(t, f.messenger.sent, 1)
	require.Equal(t, msgNoUsername, f.messenger.sent[0].text)
	require.True(t, f.gate.TryAcquire(3))
}

func TestAsk_MissingSelectionCreatesNoSession(t *testing.T) {
	f := newFixture(t, time.Second)
	delete(f.ideas.selections, 10)

	f.svc.Ask(context.Background(), alice, "вопрос")

	require.Len(t, f.messenger.sent, 1)
	require.Equal(t, msgNoIdea, f.messenger.sent[0].text)
	require.Empty(t, f.chat.sessions)
	require.Empty(t, f.chat.messages)
	require.True(t, f.gate.TryAcquire(alice.TelegramID))
}

func TestAsk_ProfileHintForIncompleteProfile(t *testing.T) {
	f := newFixture(t, time.Second)
	f.users.users["@alice"].Region = ""

	f.svc.Ask(context.Background(), alice, aliceQuestion)

	// 提醒在前，确认消息在后，流程照常完成
	require.Len(t, f.messenger.sent, 2)
	require.Equal(t, msgProfileHint, f.messenger.sent[0].text)
	require.Equal(t, msgAck, f.messenger.sent[1].text)
	require.Len(t, f.chat.messages, 2)
}

func TestAsk_BackendTimeout(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.llmClient.blockOnce = true

	f.svc.Ask(context.Background(), alice, aliceQuestion)

	// 恰好一条失败通知：确认消息被编辑为错误文案，无动作按钮
	require.Len(t, f.messenger.edits, 1)
	require.False(t, f.messenger.edits[0].actions)
	require.True(t, strings.HasPrefix(f.messenger.edits[0].text, "❌ LLM не ответил:"))
	// 问题本身已经落库，但没有助手回合
	require.Len(t, f.chat.messages, 1)
	require.Equal(t, model.RoleUser, f.chat.messages[0].Role)

	// 闸门已清除：同一用户的下一个问题正常走完
	f.svc.Ask(context.Background(), alice, "повторяю вопрос")
	require.Len(t, f.chat.messages, 3)
	require.Equal(t, model.RoleAssistant, f.chat.messages[2].Role)
}

func TestAsk_SessionReusedAcrossQuestions(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), alice, "первый вопрос")
	f.svc.Ask(context.Background(), alice, "второй вопрос")

	require.Len(t, f.chat.sessions, 1)
	require.Len(t, f.chat.messages, 4)
	for _, m := range f.chat.messages {
		require.Equal(t, f.chat.messages[0].SessionID, m.SessionID)
	}
}

func TestAsk_TurnOrderingMonotonic(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), alice, "первый вопрос")
	f.svc.Ask(context.Background(), alice, "второй вопрос")

	msgs, err := f.chat.ListMessages(f.chat.messages[0].SessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i := 1; i < len(msgs); i++ {
		// 每个助手回合严格晚于触发它的用户回合
		require.True(t, msgs[i].CreatedAt.After(msgs[i-1].CreatedAt))
	}
	require.Equal(t, model.RoleUser, msgs[0].Role)
	require.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.Equal(t, model.RoleUser, msgs[2].Role)
	require.Equal(t, model.RoleAssistant, msgs[3].Role)
}

func TestAsk_RedeliveryDoesNotMutatePersistedTurns(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), alice, aliceQuestion)
	snapshot := make([]model.ChatMessage, len(f.chat.messages))
	copy(snapshot, f.chat.messages)

	f.svc.Ask(context.Background(), alice, aliceQuestion)

	// 重复提交只追加，不改写已有回合
	require.Len(t, f.chat.messages, 4)
	for i, m := range snapshot {
		require.Equal(t, m, f.chat.messages[i])
	}
}

func TestChecklist_ReusesLastQuestion(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.Ask(context.Background(), alice, aliceQuestion)
	require.Len(t, f.chat.messages, 2)
	sessionID := f.chat.messages[0].SessionID
	f.llmClient.answer = "Чек-лист: 1, 2, 3."

	f.svc.Checklist(context.Background(), alice, sessionID)

	// 最近的用户提问被原样复用，并追加了固定清单指令
	require.Len(t, f.llmClient.prompts, 2)
	checklistPrompt := f.llmClient.prompts[1]
	require.Contains(t, checklistPrompt, aliceQuestion)
	require.True(t, strings.HasSuffix(checklistPrompt, "Сформируй чек-лист к плану выше."))

	// 新的助手回合追加在同一会话
	require.Len(t, f.chat.messages, 3)
	last := f.chat.messages[2]
	require.Equal(t, sessionID, last.SessionID)
	require.Equal(t, model.RoleAssistant, last.Role)
	require.Equal(t, "Чек-лист: 1, 2, 3.", last.Content)

	// 清单以新消息送达，不编辑原答案
	require.Equal(t, "Чек-лист: 1, 2, 3.", f.messenger.sent[len(f.messenger.sent)-1].text)
}

func TestChecklist_BypassesGate(t *testing.T) {
	f := newFixture(t, time.Second)
	f.svc.Ask(context.Background(), alice, aliceQuestion)
	sessionID := f.chat.messages[0].SessionID

	// 闸门被占用也不妨碍按钮触发的清单流程
	require.True(t, f.gate.TryAcquire(alice.TelegramID))
	f.svc.Checklist(context.Background(), alice, sessionID)

	require.Len(t, f.chat.messages, 3)
}

func TestRecordFeedback(t *testing.T) {
	f := newFixture(t, time.Second)

	f.svc.RecordFeedback(context.Background(), alice, true)
	f.svc.RecordFeedback(context.Background(), alice, false)

	require.Len(t, f.history.records, 2)
	require.Equal(t, model.ActionFeedback, f.history.records[0].ActionType)
	require.Equal(t, "positive", f.history.records[0].Details)
	require.Equal(t, "negative", f.history.records[1].Details)
	require.Equal(t, msgFeedbackThank, f.messenger.sent[0].text)
}
