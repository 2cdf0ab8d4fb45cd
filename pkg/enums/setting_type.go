package enums

import "fmt"

// SettingType constrains how a setting value is validated and rendered.
type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeNumber  SettingType = "number"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeImage   SettingType = "image"
)

var validSettingTypes = []SettingType{
	SettingTypeString,
	SettingTypeNumber,
	SettingTypeBoolean,
	SettingTypeImage,
}

func (s SettingType) String() string {
	return string(s)
}

func (s SettingType) IsValid() bool {
	for _, candidate := range validSettingTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseSettingType(value string) (SettingType, error) {
	for _, candidate := range validSettingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid setting type %q", value)
}
