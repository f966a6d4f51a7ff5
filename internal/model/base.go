package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ReadFlag is the integer 0/1 read marker used on the wire and in storage.
type ReadFlag int

const (
	Unread ReadFlag = 0
	Read   ReadFlag = 1
)

func (f ReadFlag) IsRead() bool {
	return f == Read
}

// UnmarshalJSON accepts 0/1 as well as true/false.
func (f *ReadFlag) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if n != 0 && n != 1 {
			return fmt.Errorf("readed must be 0 or 1, got %d", n)
		}
		*f = ReadFlag(n)
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("readed must be 0 or 1: %w", err)
	}
	if v {
		*f = Read
	} else {
		*f = Unread
	}
	return nil
}

func (f ReadFlag) Value() (driver.Value, error) {
	return int64(f), nil
}

func (f *ReadFlag) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*f = ReadFlag(v)
	case bool:
		if v {
			*f = Read
		} else {
			*f = Unread
		}
	case nil:
		*f = Unread
	default:
		return fmt.Errorf("cannot scan %T into ReadFlag", src)
	}
	return nil
}
