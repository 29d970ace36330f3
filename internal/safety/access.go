package safety

// WriteAccess is the capability that gates every mutating tool. The zero
// value denies writes.
type WriteAccess struct {
	allowed bool
}

// NewWriteAccess returns a WriteAccess granting writes when allowed is true.
func NewWriteAccess(allowed bool) WriteAccess {
	return WriteAccess{allowed: allowed}
}

// ReadOnly is the capability of a server started without write access.
var ReadOnly = WriteAccess{}

// Allowed reports whether mutating operations may run.
func (w WriteAccess) Allowed() bool {
	return w.allowed
}
