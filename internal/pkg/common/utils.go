package common

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// IsUUID 檢查字串是否為合法 UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}

// StringPtr 回傳字串指標，空字串回傳 nil
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Float64Ptr 回傳 float64 指標
func Float64Ptr(v float64) *float64 {
	return &v
}
