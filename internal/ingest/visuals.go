package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/corona10/goimagehash"
	"go.uber.org/zap"

	"github.com/skim-ai/cli/internal/models"
	"github.com/skim-ai/cli/internal/pdfx"
)

// VisualDescriber classifies an image and extracts a textual description of
// it. Implemented by llm.Vision.
type VisualDescriber interface {
	Classify(ctx context.Context, png []byte) (models.ContentType, error)
	Describe(ctx context.Context, png []byte, visualType models.ContentType) (string, error)
}

// VisualChunker extracts embedded images, filters tiny ones, deduplicates
// near-identical ones by perceptual hash, and turns the survivors into text
// chunks via the vision model.
type VisualChunker struct {
	vision       VisualDescriber
	sink         ArtifactSink
	minImageSize int
	logger       *zap.Logger
}

// NewVisualChunker creates a visual chunker. minImageSize is the minimum
// pixel area (width*height); it defaults to 10000.
func NewVisualChunker(vision VisualDescriber, sink ArtifactSink, minImageSize int, logger *zap.Logger) *VisualChunker {
	if sink == nil {
		sink = DiscardSink{}
	}
	if minImageSize <= 0 {
		minImageSize = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisualChunker{
		vision:       vision,
		sink:         sink,
		minImageSize: minImageSize,
		logger:       logger,
	}
}

// ChunkDocument produces one chunk per unique, large-enough image. The
// duplicate map lives for exactly one call, so repeated content in other
// documents is never suppressed. Any single-image failure is logged and the
// walk continues with the next image.
func (c *VisualChunker) ChunkDocument(ctx context.Context, ex pdfx.Extractor, docID string, extra map[string]string) []*models.Chunk {
	var chunks []*models.Chunk
	seenHashes := make(map[string]int) // perceptual hash -> first page seen

	for page := 0; page < ex.NumPages(); page++ {
		images, err := ex.PageImages(page)
		if err != nil {
			c.logger.Warn("failed to extract images",
				zap.String("doc_id", docID), zap.Int("page", page+1), zap.Error(err))
			continue
		}

		for imgIdx, raw := range images {
			chunk, err := c.processImage(ctx, raw, docID, page, imgIdx, seenHashes, extra)
			if err != nil {
				c.logger.Warn("failed to process image",
					zap.String("doc_id", docID), zap.Int("page", page+1),
					zap.Int("image", imgIdx), zap.Error(err))
				continue
			}
			if chunk != nil {
				chunks = append(chunks, chunk)
			}
		}
	}

	return chunks
}

// processImage returns nil, nil when the image is filtered or a duplicate.
func (c *VisualChunker) processImage(
	ctx context.Context,
	raw []byte,
	docID string,
	page, imgIdx int,
	seenHashes map[string]int,
	extra map[string]string,
) (*models.Chunk, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width*height < c.minImageSize {
		return nil, nil
	}

	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, fmt.Errorf("failed to hash image: %w", err)
	}
	key := hash.ToString()
	if firstPage, ok := seenHashes[key]; ok {
		c.logger.Debug("duplicate image skipped",
			zap.String("doc_id", docID), zap.Int("page", page+1),
			zap.Int("first_seen_page", firstPage))
		return nil, nil
	}
	seenHashes[key] = page + 1

	pngName := fmt.Sprintf("%s_page%d_img%d.png", docID, page+1, imgIdx)
	if err := c.sink.SavePNG(pngName, img); err != nil {
		c.logger.Warn("failed to save image artifact",
			zap.String("artifact", pngName), zap.Error(err))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	visualType, err := c.vision.Classify(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}
	description, err := c.vision.Describe(ctx, buf.Bytes(), visualType)
	if err != nil {
		return nil, err
	}

	header := strings.ToUpper(strings.ReplaceAll(string(visualType), "_", " "))
	text := fmt.Sprintf("[%s]\n\n%s\n\nSource: %s, Page %d\nVisual Type: %s",
		header, description, docID, page+1, visualType)

	idx := imgIdx
	return &models.Chunk{
		Text:        text,
		ContentType: visualType,
		Meta: models.Metadata{
			SourceType:  "pdf",
			DocID:       docID,
			Page:        page + 1,
			VisualIndex: &idx,
			Dimensions:  fmt.Sprintf("%dx%d", width, height),
			Extra:       extra,
		},
	}, nil
}
