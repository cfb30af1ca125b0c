package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// List is a slice stored as a JSON array in a single column.
type List[T any] []T

func (l List[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *List[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into list column", src)
	}
	return json.Unmarshal(data, (*[]T)(l))
}

// Contains reports whether v is an element of l.
func Contains[T comparable](l List[T], v T) bool {
	for _, item := range l {
		if item == v {
			return true
		}
	}
	return false
}
