package ocr

import "context"

// PageImage is one rendered page on disk.
type PageImage struct {
	Page int
	Path string
}

// PageCounter reports how many pages a document has without rendering it.
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

// Rasterizer renders the inclusive page range [first, last] to images. The
// returned release func removes the images and must always be called.
type Rasterizer interface {
	RenderPages(ctx context.Context, path string, first, last int) ([]PageImage, func(), error)
}

// Recognizer turns one page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img PageImage) (string, error)
}
