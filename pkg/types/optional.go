package types

import "strings"

// TrimmedString trims v and maps blank input to nil.
func TrimmedString(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// StringValue returns "" for nil.
func StringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
