package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotExist(t *testing.T) {
	_, err := os.Stat(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	assert.True(t, IsNotExist(err))
	assert.True(t, IsNotExist(fmt.Errorf("billy: stat: %w", err)))
	assert.False(t, IsNotExist(fmt.Errorf("permission denied")))
	assert.False(t, IsNotExist(nil))
}
