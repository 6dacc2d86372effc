package contract

import (
	"context"

	"madlen-ai-be/internal/model"
)

// UsageStatRepository works on the model directly; usage rows are
// write-mostly telemetry with no domain behavior of their own.
type UsageStatRepository interface {
	Create(ctx context.Context, stat *model.UsageStat) error
	AggregateByModel(ctx context.Context, userId string) ([]model.ModelUsage, error)
}
