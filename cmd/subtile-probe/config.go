package main

import (
	"fmt"
	"image/color"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/seijikun/subtile"
)

const (
	dumpModeOCR  = "ocr"
	dumpModeRGBA = "rgba"
)

type config struct {
	Dump dumpConfig `toml:"dump"`
	OCR  ocrConfig  `toml:"ocr"`
}

type dumpConfig struct {
	Dir  string `toml:"dir"`
	Mode string `toml:"mode"`
}

type ocrConfig struct {
	subtile.OCROptions
	Background uint8 `toml:"background"`
	Text       uint8 `toml:"text"`
}

func defaultConfig() config {
	o := subtile.DefaultOCROptions()
	return config{
		Dump: dumpConfig{Mode: dumpModeRGBA},
		OCR: ocrConfig{
			OCROptions: o,
			Background: o.Background.Y,
			Text:       o.Text.Y,
		},
	}
}

// loadConfig decodes the TOML file at path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (cfg config, err error) {
	cfg = defaultConfig()
	if path == "" {
		return
	}

	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = fmt.Errorf("open config: %w", err)
		return
	}
	defer f.Close()

	if err = toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		err = fmt.Errorf("parse config: %w", err)
		return
	}

	switch cfg.Dump.Mode {
	case dumpModeOCR, dumpModeRGBA:
	default:
		err = fmt.Errorf("invalid dump mode %q", cfg.Dump.Mode)
		return
	}
	return
}

func (c ocrConfig) options() subtile.OCROptions {
	o := c.OCROptions
	o.Background = color.Gray{Y: c.Background}
	o.Text = color.Gray{Y: c.Text}
	return o
}
