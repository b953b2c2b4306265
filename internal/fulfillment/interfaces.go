package fulfillment

import (
	"context"

	"tiffinloop/internal/domain"
)

type PlanReader interface {
	GetPlan(ctx context.Context, id int) (*domain.Plan, error)
}

type OrderWriter interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
}

type GeneratorInterface interface {
	Generate(ctx context.Context, sub *domain.Subscription) Result
	Regenerate(ctx context.Context, sub *domain.Subscription) Result
}

var _ GeneratorInterface = (*Generator)(nil)
