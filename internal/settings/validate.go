package settings

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/sonaskin/storefront-backend/pkg/enums"
)

const maxValueLength = 10000

// ValidateValue checks value against the rules of typ.
func ValidateValue(typ enums.SettingType, value string) error {
	if len(value) > maxValueLength {
		return fmt.Errorf("value must be at most %d characters", maxValueLength)
	}
	switch typ {
	case enums.SettingTypeString:
		return nil
	case enums.SettingTypeNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("value must be a number")
		}
		return nil
	case enums.SettingTypeBoolean:
		switch value {
		case "true", "false":
			return nil
		}
		return fmt.Errorf("value must be true or false")
	case enums.SettingTypeImage:
		return validateImage(value)
	default:
		return fmt.Errorf("unknown setting type %q", typ)
	}
}

// validateImage accepts an empty value, a site-relative path or an absolute http(s) URL.
func validateImage(value string) error {
	v := strings.TrimSpace(value)
	if v == "" || (strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//")) {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("value must be an image path or http(s) URL")
	}
	return nil
}
