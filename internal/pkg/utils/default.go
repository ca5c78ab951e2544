package utils

// DefaultV returns d if v is a zero value
func DefaultV[T comparable](v, d T) T {
	var e T
	if v == e {
		return d
	}
	return v
}
