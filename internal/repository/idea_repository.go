package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/internal/model"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// IdeaRepository 定义了创意选择与创意目录的读取操作。
// 两张表都由外部系统（网站与加工流水线）拥有。
type IdeaRepository interface {
	// FindSelection 返回用户当前选中的创意 ID。
	// 未选择时返回 gorm.ErrRecordNotFound。
	FindSelection(userID uint) (uint, error)
	// FindIdeaByID 返回创意卡片（标题与描述）。
	FindIdeaByID(ctx context.Context, ideaID uint) (*model.TrendingIdea, error)
}

// ideaRepository 在 GORM 之上加了一层 Redis 读缓存：
// 创意卡片读多写少（只由加工流水线更新），适合短 TTL 缓存。
type ideaRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
	cacheTTL    time.Duration
}

// NewIdeaRepository 创建一个新的 IdeaRepository 实例。
// redisClient 可以为 nil，此时退化为直接查库。
func NewIdeaRepository(db *gorm.DB, redisClient *redis.Client, cacheTTL time.Duration) IdeaRepository {
	return &ideaRepository{db: db, redisClient: redisClient, cacheTTL: cacheTTL}
}

// FindSelection 查找用户当前选中的创意 ID。
func (r *ideaRepository) FindSelection(userID uint) (uint, error) {
	var link model.UserIdea
	err := r.db.Where("user_id = ?", userID).First(&link).Error
	if err != nil {
		return 0, err
	}
	return link.IdeaID, nil
}

// FindIdeaByID 先查 Redis 缓存，未命中再查库并回填。
func (r *ideaRepository) FindIdeaByID(ctx context.Context, ideaID uint) (*model.TrendingIdea, error) {
	key := fmt.Sprintf("idea:%d", ideaID)

	if r.redisClient != nil {
		cached, err := r.redisClient.Get(ctx, key).Result()
		if err == nil {
			var idea model.TrendingIdea
			if jsonErr := json.Unmarshal([]byte(cached), &idea); jsonErr == nil {
				return &idea, nil
			}
			// 缓存内容损坏时穿透到数据库
		}
	}

	var idea model.TrendingIdea
	if err := r.db.First(&idea, ideaID).Error; err != nil {
		return nil, err
	}

	if r.redisClient != nil {
		if data, err := json.Marshal(&idea); err == nil {
			// 缓存失败不影响主流程
			_ = r.redisClient.Set(ctx, key, data, r.cacheTTL).Err()
		}
	}
	return &idea, nil
}
