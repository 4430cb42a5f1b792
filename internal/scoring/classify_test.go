package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/recipe-service/internal/entity"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{403, entity.ErrAccessBlocked},
		{429, entity.ErrAccessBlocked},
		{404, entity.ErrNotFound},
		{503, entity.ErrTransient},
		{418, entity.ErrExtraction},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := ClassifyStatus("https://example.com", tt.code)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.NoError(t, ClassifyStatus("https://example.com", 200))
}

func TestClassifyTransportError(t *testing.T) {
	err := ClassifyTransportError("u", fmt.Errorf("get: %w", context.DeadlineExceeded))
	assert.True(t, errors.Is(err, entity.ErrTransient))

	err = ClassifyTransportError("u", errors.New("boom"))
	assert.True(t, errors.Is(err, entity.ErrExtraction))

	already := entity.NewNotFoundError("gone", nil)
	assert.Same(t, already, ClassifyTransportError("u", already))

	assert.True(t, errors.Is(ClassifyTransportError("u", context.Canceled), context.Canceled))
	assert.Nil(t, ClassifyTransportError("u", nil))
}
