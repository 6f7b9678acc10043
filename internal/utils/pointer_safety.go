package utils

import "strings"

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// ValueOr dereferences v, returning def for nil.
func ValueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty returns a pointer to s, or nil when s is blank.
func NonEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
