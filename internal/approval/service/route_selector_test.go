package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/apperror"
	"github.com/PROLE-ISLAND/management-dashboard-sub000/internal/approval/model"
)

func categoryPtr(c model.ApprovalCategory) *model.ApprovalCategory { return &c }

func TestSelectRoute(t *testing.T) {
	t.Run("a category route wins over the general route", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		contract := categoryPtr(model.ApprovalCategoryContract)
		contractRoute := &model.ApprovalRoute{
			BaseModel: model.BaseModel{ID: uuid.New()},
			Name:      "契約決裁",
			MinAmount: 0,
			MaxAmount: int64Ptr(300_000),
			Category:  contract,
			IsActive:  true,
		}

		repo.On("FindRouteByAmount", mock.Anything, mock.Anything, int64(200_000), contract).Return(contractRoute, nil)

		route, err := selector.SelectRoute(context.Background(), nil, 200_000, contract)

		assert.NoError(t, err)
		assert.Equal(t, contractRoute.ID, route.ID)
		repo.AssertNotCalled(t, "FindRouteByAmount", mock.Anything, mock.Anything, int64(200_000), (*model.ApprovalCategory)(nil))
	})

	t.Run("falls back to category-less routes when the category has none", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		expense := categoryPtr(model.ApprovalCategoryExpense)
		general := directorRoute()

		repo.On("FindRouteByAmount", mock.Anything, mock.Anything, int64(200_000), expense).Return(nil, nil)
		repo.On("FindRouteByAmount", mock.Anything, mock.Anything, int64(200_000), (*model.ApprovalCategory)(nil)).Return(general, nil)

		route, err := selector.SelectRoute(context.Background(), nil, 200_000, expense)

		assert.NoError(t, err)
		assert.Equal(t, general.ID, route.ID)
	})

	t.Run("reports not found with the amount when nothing matches", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)

		repo.On("FindRouteByAmount", mock.Anything, mock.Anything, int64(999), mock.Anything).Return(nil, nil)

		_, err := selector.SelectRoute(context.Background(), nil, 999, nil)

		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
		assert.Contains(t, err.Error(), "金額 999円 に適用可能な承認ルートがありません")
	})
}

func TestNeedsRouteReselection(t *testing.T) {
	repo := new(MockRepository)
	selector := NewRouteSelector(repo)
	route := managerRoute() // 0..100000

	repo.On("FindRouteByID", mock.Anything, mock.Anything, route.ID).Return(route, nil)

	t.Run("inclusive upper bound keeps the route", func(t *testing.T) {
		needs, err := selector.NeedsRouteReselection(context.Background(), nil, route.ID, 100_000, nil)
		assert.NoError(t, err)
		assert.False(t, needs)
	})

	t.Run("one over the bound forces reselection", func(t *testing.T) {
		needs, err := selector.NeedsRouteReselection(context.Background(), nil, route.ID, 100_001, nil)
		assert.NoError(t, err)
		assert.True(t, needs)
	})

	t.Run("a vanished route forces reselection", func(t *testing.T) {
		missing := uuid.New()
		repo.On("FindRouteByID", mock.Anything, mock.Anything, missing).Return(nil, nil)

		needs, err := selector.NeedsRouteReselection(context.Background(), nil, missing, 100, nil)
		assert.NoError(t, err)
		assert.True(t, needs)
	})

	t.Run("a category switch re-resolves even inside the band", func(t *testing.T) {
		contract := categoryPtr(model.ApprovalCategoryContract)
		contractRoute := &model.ApprovalRoute{
			BaseModel: model.BaseModel{ID: uuid.New()},
			Name:      "契約決裁",
			MinAmount: 0,
			MaxAmount: int64Ptr(300_000),
			Category:  contract,
			IsActive:  true,
		}
		repo.On("FindRouteByAmount", mock.Anything, mock.Anything, int64(50_000), contract).Return(contractRoute, nil)

		needs, err := selector.NeedsRouteReselection(context.Background(), nil, route.ID, 50_000, contract)
		assert.NoError(t, err)
		assert.True(t, needs)
	})
}

func TestFormatAmountRange(t *testing.T) {
	selector := NewRouteSelector(nil)

	assert.Equal(t, "100000円以下", selector.FormatAmountRange(&model.ApprovalRoute{MinAmount: 0, MaxAmount: int64Ptr(100_000)}))
	assert.Equal(t, "100001円〜500000円", selector.FormatAmountRange(&model.ApprovalRoute{MinAmount: 100_001, MaxAmount: int64Ptr(500_000)}))
	assert.Equal(t, "1000001円以上", selector.FormatAmountRange(&model.ApprovalRoute{MinAmount: 1_000_001}))
}

func TestValidatePartition(t *testing.T) {
	standardRoutes := func() []model.ApprovalRoute {
		return []model.ApprovalRoute{
			{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "課長決裁", MinAmount: 0, MaxAmount: int64Ptr(100_000), IsActive: true},
			{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "部長決裁", MinAmount: 100_001, MaxAmount: int64Ptr(500_000), IsActive: true},
			{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "役員決裁", MinAmount: 500_001, MaxAmount: int64Ptr(1_000_000), IsActive: true},
			{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "取締役会決裁", MinAmount: 1_000_001, IsActive: true},
		}
	}

	t.Run("accepts the standard gap-free bands", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		repo.On("FindActiveRoutes", mock.Anything, mock.Anything).Return(standardRoutes(), nil)

		assert.NoError(t, selector.ValidatePartition(context.Background()))
	})

	t.Run("rejects a gap between bands", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		routes := standardRoutes()
		routes[1].MinAmount = 100_002 // leaves 100001 uncovered
		repo.On("FindActiveRoutes", mock.Anything, mock.Anything).Return(routes, nil)

		assert.Error(t, selector.ValidatePartition(context.Background()))
	})

	t.Run("rejects overlapping bands", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		routes := standardRoutes()
		routes[1].MinAmount = 100_000
		repo.On("FindActiveRoutes", mock.Anything, mock.Anything).Return(routes, nil)

		assert.Error(t, selector.ValidatePartition(context.Background()))
	})

	t.Run("rejects an unbounded route that is not last", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		routes := standardRoutes()
		routes[0].MaxAmount = nil
		repo.On("FindActiveRoutes", mock.Anything, mock.Anything).Return(routes, nil)

		assert.Error(t, selector.ValidatePartition(context.Background()))
	})

	t.Run("validates categorized bands independently", func(t *testing.T) {
		repo := new(MockRepository)
		selector := NewRouteSelector(repo)
		contract := categoryPtr(model.ApprovalCategoryContract)
		routes := append(standardRoutes(),
			model.ApprovalRoute{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "契約決裁（小）", MinAmount: 0, MaxAmount: int64Ptr(300_000), Category: contract, IsActive: true},
			model.ApprovalRoute{BaseModel: model.BaseModel{ID: uuid.New()}, Name: "契約決裁（大）", MinAmount: 300_001, Category: contract, IsActive: true},
		)
		repo.On("FindActiveRoutes", mock.Anything, mock.Anything).Return(routes, nil)

		assert.NoError(t, selector.ValidatePartition(context.Background()))
	})
}
