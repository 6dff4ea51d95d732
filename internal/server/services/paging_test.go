package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{1, 10, 1, 10},
		{0, 10, 1, 10},
		{-5, 10, 1, 10},
		{3, 0, 3, DefaultPageSize},
		{3, -1, 3, DefaultPageSize},
		{2, 500, 2, MaxPageSize},
	}
	for _, tt := range tests {
		p, l := normalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, p)
		assert.Equal(t, tt.wantLimit, l)
	}
}
