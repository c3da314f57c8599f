//go:build darwin

package tracker

// NewPlatformEnumerator returns the darwin Core Graphics enumerator.
func NewPlatformEnumerator() Enumerator { return NewCGEnumerator() }
