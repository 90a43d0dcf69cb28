package model

import "time"

// 审计动作类型。
const (
	ActionLLMRecommendation = "llm_recommendation"
	ActionChecklist         = "llm_checklist"
	ActionFeedback          = "user_feedback"
)

// UserHistory 对应于数据库中的 'userhistory' 表。
// 审计记录是尽力而为的：写入失败不回滚已送达的回答。
type UserHistory struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"column:user_id;not null" json:"userId"`
	ActionType string    `gorm:"column:action_type;type:varchar(50);not null" json:"actionType"`
	ActionTime time.Time `gorm:"column:action_time" json:"actionTime"`
	Details    string    `gorm:"type:text" json:"details"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UserHistory) TableName() string {
	return "userhistory"
}
