package mmap

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabflow/pkg/testutil"
)

func TestOpen(t *testing.T) {
	content := strings.Repeat("0123456789abcdef", 1024)
	path := testutil.WriteFile(t, "data.csv", content)

	m, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, len(content), m.Len())
	assert.Equal(t, content, string(m.Bytes()))

	got, err := io.ReadAll(m.Reader())
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	require.NoError(t, m.Close())
}

func TestOpenEmpty(t *testing.T) {
	m, err := Open(testutil.WriteFile(t, "empty", ""))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.NoError(t, m.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
