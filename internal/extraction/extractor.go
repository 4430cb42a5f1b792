package extraction

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/repository"
	"github.com/user/recipe-service/internal/worker"
)

// Extractor loads sources and runs the strategy chain for their type.
type Extractor struct {
	fetcher    repository.PageFetcher
	recognizer repository.TextRecognizer
	chains     map[entity.SourceType]*Chain
	logger     *zap.Logger
}

// Options configures the default chains.
type Options struct {
	Layouts []SiteLayout
	Pool    *worker.Pool
}

// NewExtractor builds an extractor with the standard chains:
// websites use structured → site → jump → heuristic, social posts use
// structured → caption, images use ocr. recognizer may be nil, in which case
// image sources fail.
func NewExtractor(fetcher repository.PageFetcher, recognizer repository.TextRecognizer, logger *zap.Logger, opts Options) *Extractor {
	registry := NewLayoutRegistry()
	for _, l := range DefaultLayouts() {
		registry.Register(l)
	}
	for _, l := range opts.Layouts {
		registry.Register(l)
	}
	logger = logger.Named("extraction")
	structured := NewStructuredStrategy()
	return &Extractor{
		fetcher:    fetcher,
		recognizer: recognizer,
		logger:     logger,
		chains: map[entity.SourceType]*Chain{
			entity.SourceWebsite: NewChain(logger,
				structured,
				NewSiteStrategy(registry, opts.Pool),
				NewJumpStrategy(),
				NewHeuristicStrategy(),
			),
			entity.SourceSocial: NewChain(logger, structured, NewCaptionStrategy()),
			entity.SourceImage:  NewChain(logger, NewOCRStrategy()),
		},
	}
}

// WithChain replaces the chain used for a source type.
func (e *Extractor) WithChain(sourceType entity.SourceType, chain *Chain) *Extractor {
	e.chains[sourceType] = chain
	return e
}

// Load retrieves the source and prepares it for the chain. For URL sources
// it fetches the page; for images it runs text recognition.
func (e *Extractor) Load(ctx context.Context, src entity.SourceLocator) (*Document, *entity.FetchedPage, error) {
	switch src.Type {
	case entity.SourceWebsite, entity.SourceSocial:
		if e.fetcher == nil {
			return nil, nil, entity.NewExtractionError("page fetching is not configured", nil)
		}
		page, err := e.fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, nil, err
		}
		pageURL := page.FinalURL
		if pageURL == "" {
			pageURL = src.URL
		}
		doc, err := NewHTMLDocument(pageURL, page.HTML, src.Type)
		if err != nil {
			return nil, page, err
		}
		doc.URL = src.URL
		return doc, page, nil
	case entity.SourceImage:
		if e.recognizer == nil {
			return nil, nil, entity.NewExtractionError("image text recognition is not configured", nil)
		}
		if len(src.Image) == 0 {
			return nil, nil, entity.NewStructuralError("the uploaded image is empty", nil)
		}
		text, err := e.recognizer.Recognize(ctx, src.Image)
		if err != nil {
			return nil, nil, err
		}
		return NewTextDocument(text, entity.SourceImage), nil, nil
	default:
		return nil, nil, entity.NewStructuralError("unsupported source type "+string(src.Type), nil)
	}
}

// Run executes the chain for the document's source type.
func (e *Extractor) Run(ctx context.Context, doc *Document) (*Outcome, error) {
	chain, ok := e.chains[doc.SourceType]
	if !ok {
		return nil, entity.NewStructuralError("no extraction chain for source type "+string(doc.SourceType), nil)
	}
	return chain.Run(ctx, doc)
}

// Extract is Load followed by Run.
func (e *Extractor) Extract(ctx context.Context, src entity.SourceLocator) (*Outcome, *Document, error) {
	doc, _, err := e.Load(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	out, err := e.Run(ctx, doc)
	return out, doc, err
}
