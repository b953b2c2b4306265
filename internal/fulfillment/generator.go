package fulfillment

import (
	"context"
	"errors"
	"log"
	"sync"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/schedule"
)

const defaultWorkers = 4

// Result reports the outcome of one generation batch. Skipped counts drafts
// the persistence layer rejected as duplicates (re-runs of an already
// generated range).
type Result struct {
	Resolved int `json:"resolved"`
	Created  int `json:"created"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Generator expands a subscription into dated orders and persists each one
// independently. One order's failure never aborts the batch.
type Generator struct {
	plans        PlanReader
	orders       OrderWriter
	materializer Materializer
	workers      int
}

func NewGenerator(plans PlanReader, orders OrderWriter, materializer Materializer, workers int) *Generator {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Generator{plans: plans, orders: orders, materializer: materializer, workers: workers}
}

// Generate materializes and persists every delivery slot of the
// subscription's date span. A plan that cannot be resolved, or that has no
// partner, is a recoverable configuration problem: it is logged and yields
// zero orders instead of an error, so a malformed plan never blocks
// subscription creation.
func (g *Generator) Generate(ctx context.Context, sub *domain.Subscription) Result {
	plan, err := g.plans.GetPlan(ctx, sub.PlanID)
	if err != nil {
		log.Printf("[fulfillment] subscription %d: plan %d unresolved: %v", sub.ID, sub.PlanID, err)
		return Result{}
	}
	if plan.PartnerID == 0 {
		log.Printf("[fulfillment] subscription %d: plan %d has no partner, skipping generation", sub.ID, plan.ID)
		return Result{}
	}

	slots := schedule.Resolve(plan, sub.StartDate, sub.EndDate)
	result := Result{Resolved: len(slots)}
	if len(slots) == 0 {
		log.Printf("[fulfillment] subscription %d: no delivery slots in range", sub.ID)
		return result
	}

	jobs := make(chan schedule.DeliverySlot)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range jobs {
				draft := g.materializer.Draft(sub, plan, slot)
				err := g.orders.CreateOrder(ctx, draft)

				mu.Lock()
				switch {
				case err == nil:
					result.Created++
				case errors.Is(err, domain.ErrDuplicate):
					result.Skipped++
				default:
					result.Failed++
					log.Printf("[fulfillment] subscription %d: order for %s %s failed: %v",
						sub.ID, slot.Date.Format("2006-01-02"), slot.Slot, err)
				}
				mu.Unlock()
			}
		}()
	}

	for _, slot := range slots {
		jobs <- slot
	}
	close(jobs)
	wg.Wait()

	log.Printf("[fulfillment] subscription %d: %d resolved, %d created, %d skipped, %d failed",
		sub.ID, result.Resolved, result.Created, result.Skipped, result.Failed)
	return result
}

// Regenerate re-runs generation for operational recovery. Materialization is
// deterministic, so already persisted orders surface as skipped duplicates
// and only the missing ones are created.
func (g *Generator) Regenerate(ctx context.Context, sub *domain.Subscription) Result {
	return g.Generate(ctx, sub)
}
