package main

import (
	"Extensible-Homework-Helper/internal/auth"
	"Extensible-Homework-Helper/internal/client"
	"Extensible-Homework-Helper/internal/config"
	"Extensible-Homework-Helper/internal/model"
	"Extensible-Homework-Helper/internal/repository"
	"Extensible-Homework-Helper/internal/service"
	"Extensible-Homework-Helper/internal/transcribe"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app is the wiring shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	svc       *service.HomeworkService
	artifacts *repository.ArtifactRepository
	sess      *service.Session
}

func newLogger(level, format string) (*zap.Logger, error) {
	var zc zap.Config
	switch strings.ToLower(format) {
	case "json":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// viperForCmd binds the command's flags on top of the config file and the
// EHH_* environment.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	configFile, _ := cmd.Flags().GetString("config")
	v := config.NewViper(configFile)
	_ = v.BindPFlag("log-level", cmd.Flags().Lookup("log-level"))
	_ = v.BindPFlag("log-format", cmd.Flags().Lookup("log-format"))
	_ = v.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	return v
}

func newApp(cmd *cobra.Command) (*app, error) {
	v := viperForCmd(cmd)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(v.GetString("log-level"), v.GetString("log-format"))
	if err != nil {
		return nil, err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config file", zap.String("path", used))
	}

	artifacts, err := repository.NewArtifactRepository(cfg.CacheDir, logger)
	if err != nil {
		return nil, err
	}
	api := client.NewJeeduApiClient(cfg.Upstream.BaseURL, cfg.Upstream.TimeoutSeconds, logger)

	var ai service.Completer
	if c, ok := cfg.SelectedAIClient(); ok {
		aiService, err := service.NewAIService(c.Kind, c.APIURL, c.APIKey, c.Models, c.Model, logger)
		if err != nil {
			logger.Warn("AI client disabled", zap.Error(err))
		} else {
			logger.Debug("AI client selected", zap.String("client", aiService.Describe()))
			ai = aiService
		}
	}
	tc := cfg.Transcription
	tr := transcribe.NewCommandTranscriber(tc.Command, tc.Args, tc.Model, tc.Language, logger)

	svc := service.NewHomeworkService(api, auth.NewAuthService(api, logger), ai, tr, artifacts,
		repository.NewAnswerSetRepository(artifacts.Dir()), logger)

	return &app{cfg: cfg, logger: logger, svc: svc, artifacts: artifacts, sess: service.NewSession()}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// online logs in with the selected credentials and refreshes the listing,
// which is also kept on disk for offline commands.
func (a *app) online(ctx context.Context) error {
	cred, ok := a.cfg.SelectedCredentials()
	if !ok {
		return errors.New("no credentials configured at credential.selected")
	}
	if err := a.svc.Login(ctx, a.sess, *cred); err != nil {
		return err
	}
	records, err := a.svc.List(ctx, a.sess)
	if err != nil {
		return err
	}
	if err := a.artifacts.WriteListing(records); err != nil {
		a.logger.Warn("listing not cached", zap.Error(err))
	}
	return nil
}

// offline resolves indices against the listing saved by the last online
// command.
func (a *app) offline() error {
	records, err := a.artifacts.ReadListing()
	if err != nil {
		return err
	}
	a.sess.Homework = records
	return nil
}

func (a *app) record(arg string) (*model.HomeworkRecord, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("homework index must be an integer, got %q", arg)
	}
	return a.sess.Record(index)
}

// run builds the app, establishes the session and hands the record named by
// args[0] to fn.
func run(cmd *cobra.Command, args []string, offline bool, fn func(ctx context.Context, a *app, record *model.HomeworkRecord) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if offline {
		err = a.offline()
	} else {
		err = a.online(ctx)
	}
	if err != nil {
		return err
	}
	record, err := a.record(args[0])
	if err != nil {
		return err
	}
	return fn(ctx, a, record)
}
