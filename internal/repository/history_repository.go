package repository

import (
	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"gorm.io/gorm"
)

// HistoryRepository 定义了用户行为审计记录的写入操作。
type HistoryRepository interface {
	Insert(record *model.UserHistory) error
}

// historyRepository 是 HistoryRepository 接口的 GORM 实现。
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建一个新的 HistoryRepository 实例。
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Insert 写入一条审计记录。
func (r *historyRepository) Insert(record *model.UserHistory) error {
	return r.db.Create(record).Error
}
