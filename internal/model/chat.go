package model

import "time"

// 消息角色。一个会话内的消息只会是这两种角色之一。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession 对应于数据库中的 'chat_sessions' 表。
// 每个 (user_id, idea_id) 组合至多一个会话，由唯一索引保证；创建后不再修改。
type ChatSession struct {
	SessionID string    `gorm:"column:session_id;type:varchar(36);primaryKey" json:"sessionId"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:uk_user_idea" json:"userId"`
	IdeaID    uint      `gorm:"column:idea_id;not null;uniqueIndex:uk_user_idea" json:"ideaId"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage 对应于数据库中的 'chat_messages' 表。
// 消息只追加、不修改、不删除，按 created_at 单调排序。
type ChatMessage struct {
	MessageID string    `gorm:"column:message_id;type:varchar(36);primaryKey" json:"messageId"`
	SessionID string    `gorm:"column:session_id;type:varchar(36);index;not null" json:"sessionId"`
	UserID    uint      `gorm:"column:user_id;not null" json:"userId"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatMessage) TableName() string {
	return "chat_messages"
}
