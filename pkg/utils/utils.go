package utils

// Unique 切片去重，保持首次出现的顺序
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// Truncate 按字符数截断，用于写入有长度限制的列
func Truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return string(runes[:length])
}

// Ptr 返回值的指针
func Ptr[T any](v T) *T {
	return &v
}
