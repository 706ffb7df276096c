package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"defaults for zero values", 0, 0, 1, 20},
		{"defaults for negative values", -3, -1, 1, 20},
		{"passes through valid values", 3, 50, 3, 50},
		{"caps the limit", 1, 500, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := NormalizePage(tt.page, tt.limit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestGetPaginationParams(t *testing.T) {
	offset, limit := GetPaginationParams(3, 25)
	assert.Equal(t, 50, offset)
	assert.Equal(t, 25, limit)

	offset, limit = GetPaginationParams(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, int64(0), TotalPages(0, 20))
	assert.Equal(t, int64(1), TotalPages(1, 20))
	assert.Equal(t, int64(1), TotalPages(20, 20))
	assert.Equal(t, int64(2), TotalPages(21, 20))
	assert.Equal(t, int64(0), TotalPages(10, 0))
}
