package main

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/seijikun/subtile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, subtile.DefaultOCROptions(), cfg.OCR.options())

	cfg, err = loadConfig(writeFile(t, "subtile.toml", []byte(`
[dump]
dir = "out"
mode = "ocr"

[ocr]
background = 0
text = 255
border = 2
scale = 3
luma_threshold = 100
`)))
	require.NoError(t, err)
	assert.Equal(t, dumpConfig{Dir: "out", Mode: dumpModeOCR}, cfg.Dump)
	o := cfg.OCR.options()
	assert.Equal(t, color.Gray{Y: 0}, o.Background)
	assert.Equal(t, color.Gray{Y: 0xff}, o.Text)
	assert.Equal(t, 2, o.Border)
	assert.Equal(t, 3, o.Scale)
	assert.Equal(t, uint8(100), o.LumaThreshold)
	assert.Equal(t, uint8(0x80), o.AlphaThreshold)

	_, err = loadConfig(writeFile(t, "subtile.toml", []byte("[dump]\nmode = \"jpeg\"\n")))
	assert.Error(t, err)
	_, err = loadConfig(writeFile(t, "subtile.toml", []byte("[dump]\nformat = \"png\"\n")))
	assert.Error(t, err)
	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
