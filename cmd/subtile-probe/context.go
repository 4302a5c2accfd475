package main

import (
	"fmt"
	"os"

	"github.com/pkg/profile"
	"github.com/seijikun/subtile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type globalFlags struct {
	config     string
	dumpDir    string
	ocr        bool
	profile    string
	timingOnly bool
	verbose    bool
}

// commandContext carries what every subcommand needs once flags are parsed
type commandContext struct {
	cfg     config
	flags   *globalFlags
	logger  *zap.Logger
	profile interface{ Stop() }
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) setup() (err error) {
	// Config
	if c.cfg, err = loadConfig(c.flags.config); err != nil {
		return
	}
	if c.flags.dumpDir != "" {
		c.cfg.Dump.Dir = c.flags.dumpDir
	}
	if c.flags.ocr {
		c.cfg.Dump.Mode = dumpModeOCR
	}

	// Logger
	lc := zap.NewDevelopmentConfig()
	lc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if c.flags.verbose {
		lc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	lc.DisableStacktrace = true
	if c.logger, err = lc.Build(); err != nil {
		err = fmt.Errorf("building logger failed: %w", err)
		return
	}

	// Profiling
	switch c.flags.profile {
	case "":
	case "cpu":
		c.profile = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet)
	case "mem":
		c.profile = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet)
	default:
		err = fmt.Errorf("unknown profile %q", c.flags.profile)
		return
	}

	// Dump directory
	if c.cfg.Dump.Dir != "" {
		if err = os.MkdirAll(c.cfg.Dump.Dir, 0o755); err != nil {
			err = fmt.Errorf("creating dump directory failed: %w", err)
			return
		}
	}
	return
}

func (c *commandContext) teardown() {
	if c.profile != nil {
		c.profile.Stop()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *commandContext) policy() subtile.DecodePolicy {
	if c.flags.timingOnly {
		return subtile.DecodeTimingOnly
	}
	return subtile.DecodeFull
}
