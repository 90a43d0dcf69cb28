// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"gorm.io/gorm"
)

// UserRepository 接口定义了用户数据的读取操作。
// 用户记录由网站端创建和维护，机器人侧只读。
type UserRepository interface {
	// FindByTelegram 根据 Telegram 句柄（"@xxx"）查找用户。
	// 未找到时返回 gorm.ErrRecordNotFound。
	FindByTelegram(handle string) (*model.User, error)
	FindByID(userID uint) (*model.User, error)
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByTelegram 根据 Telegram 句柄从数据库中查找一个用户。
func (r *userRepository) FindByTelegram(handle string) (*model.User, error) {
	var user model.User
	err := r.db.Where("telegram = ?", handle).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 从数据库中查找一个用户。
func (r *userRepository) FindByID(userID uint) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
