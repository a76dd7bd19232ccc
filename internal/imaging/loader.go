package imaging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ImageCache provides thread-safe caching of decoded intensity buffers keyed by
// file path, so repeated loads of the same calibration image skip disk I/O and
// decoding.
//
// Cached buffers are treated as immutable. Callers that need to transform a
// cached buffer receive a new Buffer from the transformation.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	buf, err := cache.Load("/path/to/target.png")
//	if err != nil {
//	    return err
//	}
//	cache.Evict("/path/to/target.png") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*Buffer
}

// NewImageCache creates an empty cache that is safe for concurrent use.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*Buffer),
	}
}

// Load returns the cached buffer for path or decodes it from disk.
//
// Decoding failures are reported as ErrNoImageLoaded joined with
// ErrDecodeFailure; a missing file is reported as ErrNoImageLoaded.
func (c *ImageCache) Load(path string) (*Buffer, error) {
	c.mu.RLock()
	if b, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()

	b, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = b
	c.mu.Unlock()

	return b, nil
}

// Len returns the number of cached buffers.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all buffers from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*Buffer)
	c.mu.Unlock()
}

// Evict removes the buffer cached under path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Open decodes an image file (PNG, JPEG, GIF, BMP or TIFF) into a
// single-channel buffer. EXIF orientation is applied before conversion.
func Open(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image: %w", ErrNoImageLoaded, err)
	}
	defer f.Close()

	b, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return b, nil
}

// Decode reads an encoded image from r and converts it to a single-channel
// buffer.
func Decode(r io.Reader) (*Buffer, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrNoImageLoaded, ErrDecodeFailure, err)
	}
	return FromImage(img)
}

// FormatFromPath names the image format by file extension: "png", "jpeg",
// "gif", "bmp", "tiff" or "unknown".
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	}
	return "unknown"
}
