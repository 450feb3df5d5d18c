package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/dudk/livesynth"
	"github.com/dudk/livesynth/bounce"
	"github.com/dudk/livesynth/signal"
)

type bounceCommand struct {
	config   string
	patch    string
	out      string
	format   string
	seconds  float64
	bitDepth int
	bitRate  int
	quality  int
}

func (cmd *bounceCommand) Name() string {
	return "bounce"
}

func (cmd *bounceCommand) Help() string {
	return "Render the patch into wav or mp3 file"
}

func (cmd *bounceCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "yaml config file")
	fs.StringVar(&cmd.patch, "patch", "", "patch file, overrides config")
	fs.StringVar(&cmd.out, "out", "", "output file (required)")
	fs.StringVar(&cmd.format, "format", "", "wav or mp3, detected by output extension if empty")
	fs.Float64Var(&cmd.seconds, "seconds", 10, "duration to render")
	fs.IntVar(&cmd.bitDepth, "bitdepth", 16, "wav bit depth")
	fs.IntVar(&cmd.bitRate, "bitrate", 192, "mp3 bit rate")
	fs.IntVar(&cmd.quality, "quality", 2, "mp3 quality")
}

func (cmd *bounceCommand) Run() error {
	if cmd.out == "" {
		return errors.New("missing -out required flag")
	}
	format := cmd.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(cmd.out), ".")
	}
	if format != "wav" && format != "mp3" {
		return fmt.Errorf("unsupported format %q", format)
	}

	cfg, logger, err := loadConfig(cmd.config, cmd.patch)
	if err != nil {
		return err
	}
	s, err := livesynth.New(cfg, livesynth.WithLogger(logger))
	if err != nil {
		return err
	}
	text, err := ioutil.ReadFile(cfg.Patch)
	if err != nil {
		return err
	}
	if err := s.Load(string(text)); err != nil {
		return fmt.Errorf("%s: %w", cfg.Patch, err)
	}

	f, err := os.Create(cmd.out)
	if err != nil {
		return err
	}
	frames := int(cmd.seconds * float64(cfg.SampleRate))
	switch format {
	case "wav":
		err = bounce.Wav(f, s.Stream, frames, signal.BitDepth(cmd.bitDepth))
	case "mp3":
		err = bounce.Mp3(f, s.Stream, frames, cmd.bitRate, cmd.quality)
	}
	if err != nil {
		f.Close()
		return err
	}
	logger.Infof("%s rendered to %s", cfg.Patch, cmd.out)
	return f.Close()
}
