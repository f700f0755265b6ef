package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/requisition-service/internal/domain"
	"github.com/spec-kit/requisition-service/internal/repository"
)

// DashboardService aggregates per-type status counts for the summary view.
type DashboardService struct {
	requisitions repository.RequisitionRepository
}

// NewDashboardService constructs the service.
func NewDashboardService(requisitions repository.RequisitionRepository) *DashboardService {
	return &DashboardService{requisitions: requisitions}
}

// TypeSummary holds aggregate counts for one requisition type.
type TypeSummary struct {
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"by_status"`
}

// Summary counts requisitions by status for each type. The three queries run
// concurrently and the response waits for all of them; one failure fails the
// whole summary.
func (s *DashboardService) Summary(ctx context.Context) (map[domain.RequisitionType]TypeSummary, error) {
	types := []domain.RequisitionType{domain.TypeIT, domain.TypeConferenceRoom, domain.TypeLeave}

	var mu sync.Mutex
	result := make(map[domain.RequisitionType]TypeSummary, len(types))

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range types {
		t := t
		g.Go(func() error {
			counts, err := s.requisitions.CountByStatus(ctx, t)
			if err != nil {
				return err
			}
			total := 0
			for _, n := range counts {
				total += n
			}
			mu.Lock()
			result[t] = TypeSummary{Total: total, ByStatus: counts}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
