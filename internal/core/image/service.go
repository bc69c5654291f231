// Package image 處理食譜照片：格式檢查、縮圖、轉 JPEG 與 data URI
package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // 支援 WebP

	"grocery-tracker/internal/pkg/common"
)

const jpegQuality = 85

// 允許上傳的副檔名
var allowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"webp": {},
}

// Service 圖片處理服務
type Service struct {
	maxSizeBytes int64
	maxDimension uint
}

// Processed 處理後的圖片
type Processed struct {
	Data    []byte // JPEG 位元組
	DataURI string // data:image/jpeg;base64,...
	Width   int
	Height  int
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64, maxDimension uint) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		maxDimension: maxDimension,
	}
}

// MaxSizeBytes 上傳大小上限
func (s *Service) MaxSizeBytes() int64 {
	return s.maxSizeBytes
}

// CheckSize 檢查檔案大小
func (s *Service) CheckSize(size int64) error {
	if size <= 0 {
		return common.NewFieldError("image", "Image file is required.")
	}
	if s.maxSizeBytes > 0 && size > s.maxSizeBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", common.ErrInvalidImageSize, size, s.maxSizeBytes)
	}
	return nil
}

// Process 解碼圖片，長邊超過上限時等比例縮小，重新編碼為 JPEG
func (s *Service) Process(data []byte) (*Processed, error) {
	if err := s.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidImageFormat, err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidImageFormat, format)
	}

	img = s.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	bounds := img.Bounds()
	return &Processed{
		Data:    buf.Bytes(),
		DataURI: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
	}, nil
}

func (s *Service) downscale(img image.Image) image.Image {
	if s.maxDimension == 0 {
		return img
	}
	bounds := img.Bounds()
	w, h := uint(bounds.Dx()), uint(bounds.Dy())
	if w <= s.maxDimension && h <= s.maxDimension {
		return img
	}
	// 傳 0 讓 resize 依比例計算另一邊
	if w >= h {
		return resize.Resize(s.maxDimension, 0, img, resize.Lanczos3)
	}
	return resize.Resize(0, s.maxDimension, img, resize.Lanczos3)
}

func isSupportedFormat(format string) bool {
	switch format {
	case "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}

// Extension 依檔名決定儲存用副檔名，不支援的一律存成 jpg
func Extension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := allowedExtensions[ext]; ok {
		return ext
	}
	return "jpg"
}

// ContentType 依副檔名回傳 MIME 類型
func ContentType(ext string) string {
	switch ext {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// DecodeDataURI 將 data URI 拆成 MIME 子類型與原始位元組
func DecodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:image/") {
		return "", nil, fmt.Errorf("invalid image data format")
	}
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return "", nil, fmt.Errorf("invalid base64 data format")
	}
	subtype := strings.TrimPrefix(header, "data:image/")
	subtype, _, _ = strings.Cut(subtype, ";")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return subtype, data, nil
}
