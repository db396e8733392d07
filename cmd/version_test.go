package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteVersion(t *testing.T) {
	var buf bytes.Buffer
	writeVersion(&buf, "v1.2.3")

	out := buf.String()
	assert.Contains(t, out, "Version:        v1.2.3")
	assert.Contains(t, out, "Cache format:   v1")
	assert.Contains(t, out, "History schema: v2")
	assert.Contains(t, out, "Thresholds:     5 members per group, 5 active")
}

func TestResolveVersionPrefersLinkedVersion(t *testing.T) {
	saved := version
	t.Cleanup(func() { version = saved })

	version = "v0.9.0"
	assert.Equal(t, "v0.9.0", resolveVersion())
}
