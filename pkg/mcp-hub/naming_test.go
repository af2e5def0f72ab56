package mcphub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifyToolName(t *testing.T) {
	assert.Equal(t, "files.read", QualifyToolName("files", "read"))
	assert.Equal(t, "files.fs.read", QualifyToolName("files", "fs.read"))
}

func TestSplitToolName(t *testing.T) {
	tests := []struct {
		name      string
		tool      string
		alias     string
		qualified bool
	}{
		{"files.read", "read", "files", true},
		{"read", "read", "", false},
		{"files.fs.read", "fs.read", "files", true},
		{"", "", "", false},
		{".read", "read", "", true},
	}
	for _, tc := range tests {
		tool, alias, qualified := SplitToolName(tc.name)
		assert.Equal(t, tc.tool, tool, "tool for %q", tc.name)
		assert.Equal(t, tc.alias, alias, "alias for %q", tc.name)
		assert.Equal(t, tc.qualified, qualified, "qualified for %q", tc.name)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	qualified := QualifyToolName("files", "fs.read")
	tool, alias, ok := SplitToolName(qualified)
	assert.True(t, ok)
	assert.Equal(t, "files", alias)
	assert.Equal(t, "fs.read", tool)
}

func TestIsQualifiedToolName(t *testing.T) {
	assert.True(t, IsQualifiedToolName("files.read"))
	assert.False(t, IsQualifiedToolName("read"))
}
