package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dudk/livesynth"
	"github.com/dudk/livesynth/backend"
	"github.com/dudk/livesynth/backend/oto"
	"github.com/dudk/livesynth/backend/portaudio"
	"github.com/dudk/livesynth/config"
	"github.com/dudk/livesynth/log"
	"github.com/dudk/livesynth/metric"
	"github.com/dudk/livesynth/watch"
)

type playCommand struct {
	config string
	patch  string
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play the patch and reload it when the file changes"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.config, "config", "", "yaml config file")
	fs.StringVar(&cmd.patch, "patch", "", "patch file, overrides config")
}

func (cmd *playCommand) Run() error {
	cfg, logger, err := loadConfig(cmd.config, cmd.patch)
	if err != nil {
		return err
	}
	s, err := livesynth.New(cfg, livesynth.WithLogger(logger))
	if err != nil {
		return err
	}
	w := watch.New(cfg.Patch, s,
		watch.WithInterval(cfg.WatchInterval()),
		watch.WithLogger(logger),
	)
	text, err := w.Load()
	if err != nil {
		return err
	}
	if err := s.Load(text); err != nil {
		return fmt.Errorf("%s: %w", cfg.Patch, err)
	}

	player, err := newPlayer(cfg, s, logger)
	if err != nil {
		return err
	}
	defer player.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	logger.Infof("playing %s with %s backend, edit the file to reload", cfg.Patch, cfg.Backend)
	err = player.Play(ctx)
	stop()
	wg.Wait()
	logger.WithFields(logrus.Fields{
		"metrics": metric.GetAll(),
	}).Debug("session finished")
	return err
}

func newPlayer(cfg config.Config, s *livesynth.Session, logger *logrus.Logger) (backend.Player, error) {
	switch cfg.Backend {
	case config.BackendPortaudio:
		return portaudio.New(s.Stream, cfg.Channels, cfg.BufferFrames(), portaudio.WithLogger(logger))
	default:
		return oto.New(s.Stream, cfg.Channels, cfg.BufferDuration(), oto.WithLogger(logger))
	}
}

// loadConfig loads config file and creates logger of configured level.
func loadConfig(path, patch string) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	if patch != "" {
		cfg.Patch = patch
	}
	logger, err := log.WithLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
