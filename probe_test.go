package subtile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeFormat(t *testing.T) {
	for _, c := range []struct {
		data   []byte
		format Format
	}{
		{data: []byte(testIdx), format: FormatVobSubIdx},
		{data: psPacket(0x20, 0, []byte{0, 2}), format: FormatVobSubSub},
		{data: displaySet(0, 0), format: FormatPGS},
		{data: []byte("PG"), format: FormatPGS},
		{data: []byte("1\n00:00:01,000 --> 00:00:02,000\n"), format: FormatUnknown},
		{data: nil, format: FormatUnknown},
	} {
		t.Run(c.format.String(), func(t *testing.T) {
			f, err := ProbeFormat(bytes.NewReader(c.data))
			require.NoError(t, err)
			assert.Equal(t, c.format, f)
		})
	}

	assert.True(t, IsIdxFile([]byte(strings.Split(testIdx, "\n")[0])))
	assert.False(t, IsSupFile([]byte("P")))
	assert.True(t, IsSubFile(testPackHeader))
}

func TestProbeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.sup")
	require.NoError(t, os.WriteFile(path, displaySet(0, 0), 0o644))
	f, err := ProbeFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatPGS, f)

	_, err = ProbeFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
