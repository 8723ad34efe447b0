package ownership

// Destroyer is optionally implemented by owned objects that need cleanup when
// their last owner is dropped. Destroy is called exactly once.
type Destroyer interface {
	Destroy()
}

// Destroy runs the Destroyer hook of v, if any, and reports whether one ran.
func Destroy(v any) bool {
	if d, ok := v.(Destroyer); ok {
		d.Destroy()
		return true
	}
	return false
}
