//go:build !eventqueue_debug

package eventqueue

// debugAssertions enables misuse checks, see the eventqueue_debug build tag.
const debugAssertions = false
