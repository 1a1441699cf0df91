package config

import (
	"errors"
	"fmt"
	"strings"

	"captionsync/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.AssetsDir) == "" {
		return errors.New("paths.assets_dir must be set")
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		return errors.New("paths.temp_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method must be silero or pyannote, got %q", c.Transcription.VADMethod)
	}
	if c.Transcription.VADMethod == "pyannote" && c.Transcription.HFToken == "" {
		return errors.New("transcription.hf_token must be set when transcription.vad_method is pyannote (or set HF_TOKEN)")
	}
	if c.Transcription.MergeThresholdMS <= 0 {
		return errors.New("transcription.merge_threshold_ms must be positive")
	}
	if _, err := language.Resolve(c.Transcription.Language); err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FPS <= 0 {
		return errors.New("render.fps must be positive")
	}
	if c.Render.MaxCaptionSeconds <= 0 {
		return errors.New("render.max_caption_seconds must be positive")
	}
	return nil
}
