package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"captionsync/internal/artifact"
	"captionsync/internal/config"
	"captionsync/internal/deps"
	"captionsync/internal/logging"
	"captionsync/internal/media/ffprobe"
	"captionsync/internal/render"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// newRenderer wires ffprobe durations and the artifact loader into a renderer.
func (c *commandContext) newRenderer(fps int) (*render.Renderer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	if fps <= 0 {
		fps = cfg.Render.FPS
	}
	durations := ffprobe.NewResolver(deps.ResolveFFprobePath(cfg.FFprobeBinary(), cfg.FFmpegBinary()))
	loader := render.NewLoader(artifact.NewStore(cfg.LockDir()))
	return render.New(durations, loader, logger, render.Options{
		FPS:               fps,
		MaxCaptionSeconds: cfg.Render.MaxCaptionSeconds,
		Debounce:          time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
	}), nil
}

// resolveRef turns a CLI argument into an audio reference. URLs pass through;
// paths are expanded and made absolute.
func resolveRef(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("audio reference is required")
	}
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return arg, nil
	}
	return config.ExpandPath(arg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
