package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"net/http"
	"path"
	"strings"
	"unicode"

	"inkwell/internal/config"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 5
	PostImagePrefix             = "posts/"
	PreviewPrefix               = "posts/previews/"
	PreviewMaxSize              = 640
	WebPQuality                 = 70
)

// SupportedImageFormats lists the decoded formats accepted for post images.
var SupportedImageFormats = []string{"gif", "jpeg", "png", "webp"}

var invalidImageMessage = fmt.Sprintf(
	"Upload a valid image. Supported formats: %s. The file you uploaded was either not an image or a corrupted image.",
	strings.Join(SupportedImageFormats, ", "),
)

// ImageService validates post images and writes them to the blob store.
type ImageService struct {
	store              storage.BlobStore
	maxUploadSizeBytes int64
	previews           bool
}

// NewImageService returns an ImageService writing to store. Previews are
// generated unless the image_previews flag is switched off.
func NewImageService(store storage.BlobStore, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	previews := true
	if cfg != nil {
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		previews = featureflags.NewManager(cfg.FeatureFlags).EnabledOr(featureflags.ImagePreviews, 0, true)
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		previews:           previews,
	}
}

// URL returns the public address of a stored key.
func (s *ImageService) URL(key string) string {
	if s == nil || key == "" {
		return ""
	}
	return s.store.URL(key)
}

// Store validates content and saves it under posts/. The returned key is the
// value kept on the post.
func (s *ImageService) Store(ctx context.Context, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewFieldError("image", "The submitted file is empty.")
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		return "", models.NewFieldError("image", fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)))
	}

	format, err := sniffImageFormat(content)
	if err != nil {
		return "", err
	}

	key, err := s.availableKey(ctx, PostImagePrefix+sanitizeFilename(filename, format))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if err := s.store.Save(ctx, key, content); err != nil {
		return "", models.NewInternalError(err)
	}

	if !s.previews {
		return key, nil
	}
	if err := s.savePreview(ctx, key, content); err != nil {
		middleware.Logger.WarnContext(ctx, "image preview skipped",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return key, nil
}

// Remove deletes a stored image and its preview.
func (s *ImageService) Remove(ctx context.Context, key string) error {
	if s == nil || key == "" {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	return s.store.Delete(ctx, PreviewKey(key))
}

// PreviewKey is where the webp preview of key is written.
func PreviewKey(key string) string {
	base := path.Base(key)
	return PreviewPrefix + strings.TrimSuffix(base, path.Ext(base)) + ".webp"
}

func sniffImageFormat(content []byte) (string, error) {
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return "", models.NewFieldError("image", invalidImageMessage)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", models.NewFieldError("image", invalidImageMessage)
	}
	return format, nil
}

// availableKey appends a short random suffix while key is taken.
func (s *ImageService) availableKey(ctx context.Context, key string) (string, error) {
	candidate := key
	for i := 0; i < 5; i++ {
		taken, err := s.store.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		ext := path.Ext(key)
		candidate = strings.TrimSuffix(key, ext) + "_" + uuid.NewString()[:7] + ext
	}
	return "", fmt.Errorf("no free key for %s", key)
}

func (s *ImageService) savePreview(ctx context.Context, key string, content []byte) error {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return err
	}
	encoded, err := encodeWebP(resizeToFit(decoded, PreviewMaxSize, PreviewMaxSize), WebPQuality)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, PreviewKey(key), encoded)
}

// sanitizeFilename keeps the base name's safe characters and forces an
// extension matching format.
func sanitizeFilename(name, format string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		clean = "image"
	}
	if len(clean) > 80 {
		clean = clean[:80]
	}

	ext := strings.ToLower(path.Ext(base))
	if !extensionMatches(ext, format) {
		ext = "." + format
		if format == "jpeg" {
			ext = ".jpg"
		}
	}
	return clean + ext
}

func extensionMatches(ext, format string) bool {
	switch format {
	case "jpeg":
		return ext == ".jpg" || ext == ".jpeg"
	default:
		return ext == "."+format
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		// webp.Encode wants a concrete RGBA, not a paletted GIF frame.
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
		return dst
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func isSupportedDecodedFormat(format string) bool {
	for _, f := range SupportedImageFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
