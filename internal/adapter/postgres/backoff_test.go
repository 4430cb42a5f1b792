package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffGrowsWithinJitter(t *testing.T) {
	tests := []struct {
		attempts int
		base     time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 10 * time.Minute},
		{3, 40 * time.Minute},
		{20, 24 * time.Hour},
	}
	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			d := backoff(tt.attempts)
			assert.GreaterOrEqual(t, d, time.Duration(float64(tt.base)*(1-jitterFactor)))
			assert.LessOrEqual(t, d, time.Duration(float64(tt.base)*(1+jitterFactor)))
		}
	}
}

func TestRecipeInsertSQL(t *testing.T) {
	query, args, err := psql.Insert("recipe_media").
		Columns("recipe_id", "position", "url", "role", "source").
		Values("r1", 0, "https://example.com/a.jpg", "image", "meta").
		ToSql()
	assert.NoError(t, err)
	assert.Equal(t, "INSERT INTO recipe_media (recipe_id,position,url,role,source) VALUES ($1,$2,$3,$4,$5)", query)
	assert.Len(t, args, 5)
}
