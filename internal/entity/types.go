package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// UintArray 以 JSON 格式存储标签ID切片。
// 列内容无法解析时按空列表处理，不向上层报错。
type UintArray []uint

// Value 实现 driver.Valuer 接口。
func (a UintArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]uint(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口。
func (a *UintArray) Scan(value interface{}) error {
	if value == nil {
		*a = UintArray{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for UintArray: %T", value)
	}

	if len(raw) == 0 {
		*a = UintArray{}
		return nil
	}
	var parsed []uint
	if err := json.Unmarshal(raw, &parsed); err != nil {
		*a = UintArray{}
		return nil
	}
	*a = parsed
	return nil
}

// ToSlice 返回底层切片的副本。
func (a UintArray) ToSlice() []uint {
	if len(a) == 0 {
		return []uint{}
	}
	out := make([]uint, len(a))
	copy(out, a)
	return out
}

// Contains 检查数组是否包含给定的ID。
func (a UintArray) Contains(id uint) bool {
	for _, v := range a {
		if v == id {
			return true
		}
	}
	return false
}

// StringArray 以 JSON 格式存储字符串切片，解析失败时同样按空列表处理。
type StringArray []string

// Value 实现 driver.Valuer 接口。
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口。
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}

	if len(raw) == 0 {
		*a = StringArray{}
		return nil
	}
	var parsed []string
	if err := json.Unmarshal(raw, &parsed); err != nil {
		*a = StringArray{}
		return nil
	}
	*a = parsed
	return nil
}

// ToSlice 返回底层切片的副本。
func (a StringArray) ToSlice() []string {
	if len(a) == 0 {
		return []string{}
	}
	out := make([]string, len(a))
	copy(out, a)
	return out
}
