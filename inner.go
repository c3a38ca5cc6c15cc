package webpio

import "github.com/Skryldev/webpio/core"

// Inner exposes the underlying core.Bridge for advanced use (e.g., direct
// registry access in tests).  Prefer the high-level API for normal usage.
func (b *Bridge) Inner() *core.Bridge { return b.inner }
