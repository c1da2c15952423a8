package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout 是对外统一的日期表示。
const DateLayout = "2006-01-02"

// Date 是只保留年月日的日期列，JSON 中以 YYYY-MM-DD 表示。
type Date struct {
	time.Time
}

// NewDate 截断到 UTC 零点。
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 接受 YYYY-MM-DD 或 RFC 3339；空字符串返回 nil。
func ParseDate(raw string) (*Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateLayout, raw); err == nil {
		d := NewDate(t)
		return &d, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", raw)
	}
	d := NewDate(t)
	return &d, nil
}

// NormalizeDate 把 nil 与零值统一为 nil，入库前调用。
func NormalizeDate(d *Date) *Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

// String 返回 YYYY-MM-DD。
func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// GormDataType 声明列类型。
func (Date) GormDataType() string {
	return "date"
}

// Value 实现 driver.Valuer；零值写入 NULL。
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

// Scan 实现 sql.Scanner，兼容 PostgreSQL 的 time.Time 与 SQLite 的文本。
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		d.Time = time.Time{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", value)
	}
}

func (d *Date) scanText(s string) error {
	s = strings.TrimSpace(s)
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			*d = NewDate(t)
			return nil
		}
	}
	return fmt.Errorf("scan date: invalid value %q", s)
}

// MarshalJSON 输出 "YYYY-MM-DD"，零值输出 null。
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON 接受 ParseDate 支持的任意格式。
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	if parsed == nil {
		d.Time = time.Time{}
		return nil
	}
	*d = *parsed
	return nil
}
