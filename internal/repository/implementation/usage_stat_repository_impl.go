package implementation

import (
	"context"

	"madlen-ai-be/internal/model"
	"madlen-ai-be/internal/repository/contract"

	"gorm.io/gorm"
)

type UsageStatRepositoryImpl struct {
	db *gorm.DB
}

func NewUsageStatRepository(db *gorm.DB) contract.UsageStatRepository {
	return &UsageStatRepositoryImpl{db: db}
}

func (r *UsageStatRepositoryImpl) Create(ctx context.Context, stat *model.UsageStat) error {
	return r.db.WithContext(ctx).Create(stat).Error
}

func (r *UsageStatRepositoryImpl) AggregateByModel(ctx context.Context, userId string) ([]model.ModelUsage, error) {
	var rows []model.ModelUsage
	err := r.db.WithContext(ctx).
		Model(&model.UsageStat{}).
		Select("model, count(*) as turns, coalesce(sum(reply_chars), 0) as reply_chars").
		Where("user_id = ?", userId).
		Group("model").
		Order("turns DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
