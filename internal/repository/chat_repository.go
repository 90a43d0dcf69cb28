package repository

import (
	"errors"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRepository 定义了会话与消息的持久化操作。
// 会话对 (user_id, idea_id) 唯一；消息只追加，按 created_at 排序。
type ChatRepository interface {
	// GetOrCreateSession 返回该组合的会话 ID，不存在则新建。
	// 并发首次创建依赖数据库唯一索引：插入冲突时重读已有行。
	GetOrCreateSession(userID, ideaID uint) (string, error)
	FindSessionByID(sessionID string) (*model.ChatSession, error)
	// AppendMessage 追加一条消息并返回持久化后的记录。
	AppendMessage(sessionID string, userID uint, role, content string) (*model.ChatMessage, error)
	// LastUserMessage 返回会话内最新的一条用户消息。
	LastUserMessage(sessionID string) (*model.ChatMessage, error)
	// ListMessages 按 created_at 升序返回会话的全部消息。
	ListMessages(sessionID string) ([]model.ChatMessage, error)
}

// chatRepository 是 ChatRepository 接口的 GORM 实现。
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetOrCreateSession 查找或创建 (user_id, idea_id) 对应的会话。
func (r *chatRepository) GetOrCreateSession(userID, ideaID uint) (string, error) {
	var session model.ChatSession
	err := r.db.Where("user_id = ? AND idea_id = ?", userID, ideaID).First(&session).Error
	if err == nil {
		return session.SessionID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	session = model.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		IdeaID:    ideaID,
		Title:     "Telegram chat",
	}
	createErr := r.db.Create(&session).Error
	if createErr == nil {
		return session.SessionID, nil
	}
	if errors.Is(createErr, gorm.ErrDuplicatedKey) {
		// 并发首次创建输掉了竞争：唯一索引拦下了重复行，重读即可
		var existing model.ChatSession
		if err := r.db.Where("user_id = ? AND idea_id = ?", userID, ideaID).First(&existing).Error; err != nil {
			return "", err
		}
		return existing.SessionID, nil
	}
	return "", createErr
}

// FindSessionByID 根据会话 ID 查找会话。
func (r *chatRepository) FindSessionByID(sessionID string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// AppendMessage 追加一条消息记录。
func (r *chatRepository) AppendMessage(sessionID string, userID uint, role, content string) (*model.ChatMessage, error) {
	msg := model.ChatMessage{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// LastUserMessage 返回会话内 created_at 最新的用户消息。
func (r *chatRepository) LastUserMessage(sessionID string) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	err := r.db.Where("session_id = ? AND role = ?", sessionID, model.RoleUser).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages 按时间升序列出会话的全部消息。
func (r *chatRepository) ListMessages(sessionID string) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
