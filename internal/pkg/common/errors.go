package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"error"`             // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 可以穿透
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓包裝過的預定義錯誤也能被辨識
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	Field   string
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// NewFieldError 創建帶欄位名稱的驗證錯誤
func NewFieldError(field, message string) error {
	return &ValidationError{
		Field:   field,
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StatusOf 依錯誤類型決定 HTTP 狀態碼
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if IsValidationError(err) {
		return http.StatusBadRequest
	}
	var ce *CustomError
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooLarge        = "PAYLOAD_TOO_LARGE" // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeNotImplemented     = "NOT_IMPLEMENTED"     // 501
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "Invalid request.", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "Not found.", http.StatusNotFound, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "Too many requests.", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "Internal server error.", http.StatusInternalServerError, nil)
	ErrNotImplemented     = NewError(ErrCodeNotImplemented, "Not implemented.", http.StatusNotImplemented, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Service unavailable.", http.StatusServiceUnavailable, nil)

	// 業務錯誤
	ErrRecipeNotFound     = NewError("RECIPE_NOT_FOUND", "Recipe not found.", http.StatusNotFound, nil)
	ErrGroceryNotFound    = NewError("GROCERY_ITEM_NOT_FOUND", "Grocery item not found.", http.StatusNotFound, nil)
	ErrBaselineNotFound   = NewError("BASELINE_ITEM_NOT_FOUND", "Baseline item not found.", http.StatusNotFound, nil)
	ErrImageNotFound      = NewError("IMAGE_NOT_FOUND", "Unable to download uploaded image.", http.StatusNotFound, nil)
	ErrInvalidImageFormat = NewError("INVALID_IMAGE_FORMAT", "Unsupported image format.", http.StatusBadRequest, nil)
	ErrInvalidImageSize   = NewError("INVALID_IMAGE_SIZE", "Image exceeds size limit.", http.StatusRequestEntityTooLarge, nil)
	ErrRPCUnsupported     = NewError("RPC_UNSUPPORTED", "Remote aggregate is not available.", http.StatusNotImplemented, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "Cache miss.", http.StatusNotFound, nil)
	ErrCacheDisabled      = NewError("CACHE_DISABLED", "Cache disabled.", http.StatusServiceUnavailable, nil)
	ErrAIServiceError     = NewError("AI_SERVICE_ERROR", "AI service error.", http.StatusBadGateway, nil)
	ErrAINotConfigured    = NewError("AI_NOT_CONFIGURED", "No LLM API key configured.", http.StatusServiceUnavailable, nil)
)
