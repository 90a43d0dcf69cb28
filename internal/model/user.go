// Package model 定义了与数据库表对应的 Go 结构体。
// 表结构由网站端系统拥有，这里是只读映射（chat_sessions/chat_messages 除外）。
package model

import "time"

// User 对应于数据库中的 'users' 表。
// 用户账号在网站上创建，机器人侧只读。
type User struct {
	// UserID 是用户的唯一标识符，作为主键。
	UserID uint `gorm:"column:user_id;primaryKey" json:"userId"`
	// Telegram 是网站资料里填写的 Telegram 句柄（形如 "@alice"）。
	Telegram string `gorm:"type:varchar(64)" json:"telegram"`
	// 以下画像字段用于提示词组装，均可为空。
	Region          string    `gorm:"type:varchar(100)" json:"region"`
	BusinessSector  string    `gorm:"column:business_sector;type:varchar(100)" json:"businessSector"`
	ExperienceLevel string    `gorm:"column:experience_level;type:varchar(50)" json:"experienceLevel"`
	TransitionGoal  string    `gorm:"column:transition_goal;type:varchar(255)" json:"transitionGoal"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// UserIdea 对应于数据库中的 'userideas' 表。
// 记录用户当前在网站上选中的创意，机器人侧只读。
type UserIdea struct {
	UserID uint `gorm:"column:user_id;primaryKey" json:"userId"`
	IdeaID uint `gorm:"column:idea_id;not null" json:"ideaId"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (UserIdea) TableName() string {
	return "userideas"
}

// TrendingIdea 对应于数据库中的 'trendingideas' 表。
// 创意目录由外部的采集与加工流水线填充。
type TrendingIdea struct {
	IdeaID      uint   `gorm:"column:idea_id;primaryKey" json:"ideaId"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (TrendingIdea) TableName() string {
	return "trendingideas"
}
