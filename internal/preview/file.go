package preview

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/vsearch/internal/domain"
)

// ReadFile loads a query image from disk. The MIME type is sniffed, falling
// back to the extension.
func ReadFile(path string) (*domain.QueryImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mimeType := Detect(data, mime.TypeByExtension(filepath.Ext(path)))
	return domain.NewQueryImage(filepath.Base(path), mimeType, data, time.Now()), nil
}
