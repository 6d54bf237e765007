package core

import "strconv"

// Firmware code formats numbers through strconv; fmt pulls in reflection
// and roughly doubles the flash image.

func itoa(n int) string {
	return strconv.Itoa(n)
}

func utoa(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}

// valueToString renders a dictionary constant
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	default:
		return ""
	}
}
