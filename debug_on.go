//go:build eventqueue_debug

package eventqueue

const debugAssertions = true
