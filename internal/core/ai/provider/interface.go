// Package provider 定義 LLM 供應商的共用介面
package provider

import (
	"context"
	"time"
)

// Request 表示發送到 AI 提供者的請求
type Request struct {
	System       string  // 系統提示
	Prompt       string  // 使用者提示
	ImageDataURI string  // data:image/jpeg;base64,...，空字串表示純文字
	MaxTokens    int     // 0 表示使用設定值
	Temperature  float64 // 0 表示使用供應商預設
	JSON         bool    // 要求回傳 JSON 物件

	// Validate 檢查回應內容，只有通過的回應會寫入快取；nil 表示全部接受
	Validate func(content string) error
}

// Accepts 回應內容是否可寫入快取
func (r *Request) Accepts(content string) bool {
	return r.Validate == nil || r.Validate(content) == nil
}

// HasImage 是否為視覺請求
func (r *Request) HasImage() bool {
	return r.ImageDataURI != ""
}

// Usage token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從 AI 提供者收到的響應
type Response struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Usage    Usage  `json:"usage"`
	CacheHit bool   `json:"cache_hit"`
}

// Provider 定義 AI 提供者介面
type Provider interface {
	// Generate 生成 AI 響應
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name 供應商名稱，寫入匯入紀錄
	Name() string

	// Model 依請求類型回傳模型名稱
	Model(vision bool) string

	// Timeout 單次請求逾時
	Timeout() time.Duration

	// Close 關閉提供者連接
	Close() error
}
