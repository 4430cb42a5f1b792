package repository

import (
	"context"

	"github.com/user/recipe-service/internal/entity"
)

// PageFetcher defines the contract for retrieving a source page.
type PageFetcher interface {
	// Fetch retrieves url. Failures are classified *entity.AppError values:
	// 403 is access blocked, 404 not found, timeouts transient.
	Fetch(ctx context.Context, url string) (*entity.FetchedPage, error)
}

// TextRecognizer extracts text from an image (OCR).
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}
