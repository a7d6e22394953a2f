package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName 去掉 [A-Za-z0-9._-] 之外的字符, 结果为空时返回 "file"
func SanitizeFileName(name string) string {
	safe := unsafeKeyChars.ReplaceAllString(name, "")
	if strings.Trim(safe, ".") == "" {
		return "file"
	}
	return safe
}

// NewStorageKey 生成 {prefix}/{owner}/{uuid}-{safeName}, 每次调用都不相同
func NewStorageKey(prefix string, ownerID uint64, name string) string {
	return fmt.Sprintf("%s/%d/%s-%s", strings.Trim(prefix, "/"), ownerID, uuid.NewString(), SanitizeFileName(name))
}

// NewLinkID 生成不可猜测的公开链接ID
func NewLinkID() string {
	return uuid.NewString()
}
