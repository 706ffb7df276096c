package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

// RouteSelector resolves the approval route for a monetary amount and an
// optional category. Categorized routes take precedence over category-less
// ones for amounts in their category.
type RouteSelector struct {
	repo Repository
}

func NewRouteSelector(repo Repository) *RouteSelector {
	return &RouteSelector{repo: repo}
}

// SelectRoute returns the active route whose range contains amount. When a
// category is given, a route dedicated to that category wins; otherwise the
// category-less routes are consulted.
func (s *RouteSelector) SelectRoute(ctx context.Context, tx *gorm.DB, amount int64, category *model.ApprovalCategory) (*model.ApprovalRoute, error) {
	if category != nil {
		route, err := s.repo.FindRouteByAmount(ctx, tx, amount, category)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if route != nil {
			return route, nil
		}
	}

	route, err := s.repo.FindRouteByAmount(ctx, tx, amount, nil)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if route == nil {
		return nil, apperror.NotFound(fmt.Sprintf("金額 %d円 に適用可能な承認ルートがありません", amount))
	}
	return route, nil
}

// NeedsRouteReselection reports whether a request whose amount changed to
// newAmount can keep its current route. True when the current route cannot be
// resolved, when newAmount falls outside its bounds, or when the category no
// longer matches the route that would be selected now.
func (s *RouteSelector) NeedsRouteReselection(ctx context.Context, tx *gorm.DB, currentRouteID uuid.UUID, newAmount int64, category *model.ApprovalCategory) (bool, error) {
	current, err := s.repo.FindRouteByID(ctx, tx, currentRouteID)
	if err != nil {
		return false, apperror.Internal(err)
	}
	if current == nil {
		return true, nil
	}

	if !current.Contains(newAmount) {
		return true, nil
	}

	if !categoryEqual(category, current.Category) {
		newRoute, err := s.SelectRoute(ctx, tx, newAmount, category)
		if err != nil {
			return false, err
		}
		return newRoute.ID != currentRouteID, nil
	}

	return false, nil
}

// GetAllRoutes returns every active route.
func (s *RouteSelector) GetAllRoutes(ctx context.Context) ([]model.ApprovalRoute, error) {
	routes, err := s.repo.FindActiveRoutes(ctx, nil)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return routes, nil
}

// FormatAmountRange renders a route's monetary band for display.
func (s *RouteSelector) FormatAmountRange(route *model.ApprovalRoute) string {
	if route.MaxAmount == nil {
		return fmt.Sprintf("%d円以上", route.MinAmount)
	}
	if route.MinAmount == 0 {
		return fmt.Sprintf("%d円以下", *route.MaxAmount)
	}
	return fmt.Sprintf("%d円〜%d円", route.MinAmount, *route.MaxAmount)
}

// ValidatePartition checks that the active routes of each category form
// non-overlapping, gap-free closed intervals starting at zero. Meant to run
// at startup so routing failures surface before the first request.
func (s *RouteSelector) ValidatePartition(ctx context.Context) error {
	routes, err := s.repo.FindActiveRoutes(ctx, nil)
	if err != nil {
		return apperror.Internal(err)
	}

	byCategory := make(map[string][]model.ApprovalRoute)
	for _, route := range routes {
		key := ""
		if route.Category != nil {
			key = string(*route.Category)
		}
		byCategory[key] = append(byCategory[key], route)
	}

	for key, group := range byCategory {
		sort.Slice(group, func(i, j int) bool {
			return group[i].MinAmount < group[j].MinAmount
		})

		var next int64
		for i, route := range group {
			if route.MinAmount != next {
				return fmt.Errorf("route partition broken for category %q: expected min_amount %d, route %q has %d", key, next, route.Name, route.MinAmount)
			}
			if route.MaxAmount == nil {
				if i != len(group)-1 {
					return fmt.Errorf("route partition broken for category %q: unbounded route %q is not last", key, route.Name)
				}
				break
			}
			if *route.MaxAmount < route.MinAmount {
				return fmt.Errorf("route partition broken for category %q: route %q has empty range", key, route.Name)
			}
			next = *route.MaxAmount + 1
		}
	}
	return nil
}

func categoryEqual(a, b *model.ApprovalCategory) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
