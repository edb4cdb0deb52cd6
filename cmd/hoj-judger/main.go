// Command hoj-judger compiles a submission, runs it against every test case
// of a problem inside the sandbox and writes result.yml.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/hydrogen-oj/judger/client"
	"github.com/hydrogen-oj/judger/client/console"
	"github.com/hydrogen-oj/judger/client/natsclient"
	"github.com/hydrogen-oj/judger/client/resultfile"
	"github.com/hydrogen-oj/judger/cmd/hoj-judger/config"
	"github.com/hydrogen-oj/judger/cmd/hoj-judger/version"
	"github.com/hydrogen-oj/judger/env"
	"github.com/hydrogen-oj/judger/envexec"
	"github.com/hydrogen-oj/judger/judger"
	"github.com/hydrogen-oj/judger/language"
	"github.com/hydrogen-oj/judger/problem"
	"github.com/hydrogen-oj/judger/types"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// exit codes
const (
	exitOK = iota
	exitError
	exitConfigError
)

var logger *zap.Logger

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println("load .env failed:", err)
	}
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return exitOK
	}
	if err := conf.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.DebugLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := judge(ctx, conf)
	switch {
	case err == nil:
		return exitOK
	case judger.IsConfigError(err):
		logger.Error("Configuration error", zap.Error(err))
		return exitConfigError
	default:
		logger.Error("Judge failed", zap.Error(err))
		return exitError
	}
}

func judge(ctx context.Context, conf *config.Config) error {
	langConf, err := language.LoadConfig(conf.Config)
	if err != nil {
		return &judger.ConfigError{Field: "config", Err: err}
	}
	policy, err := judger.ParseUnknownVerdictPolicy(langConf.UnknownVerdict)
	if err != nil {
		return err
	}

	output, err := filepath.Abs(conf.Output)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	source, err := filepath.Abs(conf.Source)
	if err != nil {
		return err
	}
	problemDir, err := filepath.Abs(conf.Problem)
	if err != nil {
		return err
	}
	logger.Info("Judge",
		zap.String("configPath", conf.Config),
		zap.String("problemDirectory", problemDir),
		zap.String("language", conf.Language),
		zap.String("output", output))

	e, param, err := env.NewEnvironment(env.Config{
		MountConf:   conf.MountConf,
		SeccompConf: conf.SeccompConf,
		NetShare:    conf.NetShare,
		TmpRoot:     conf.TmpRoot,
		ProcRLimit:  conf.ProcRLimit,
		Logger:      logger.Sugar(),

		CgroupPrefix:   conf.CgroupPrefix,
		NoPidNamespace: conf.NoPidNamespace,
	})
	if err != nil {
		return fmt.Errorf("create environment: %w", err)
	}
	if ce := logger.Check(zap.DebugLevel, "Environment created"); ce != nil {
		ce.Write(zap.Any("param", param))
	}
	var executor envexec.Executor = &envexec.Single{
		Environment:    e,
		SampleInterval: conf.SampleInterval,
	}

	// result file is opened before anything runs
	rf, err := resultfile.Create(filepath.Join(output, resultfile.FileName))
	if err != nil {
		return err
	}
	defer rf.Close()

	id := uuid.NewString()
	reporters := client.Multi{rf}
	if !conf.Silent {
		reporters = append(reporters, console.New(os.Stdout, conf.NoColor))
	}
	if conf.MetricsFile != "" {
		m := newMetrics(conf.MetricsFile)
		executor = &metricsExecutor{Executor: executor, m: m}
		reporters = append(reporters, m)
	}
	if conf.NatsURL != "" {
		nc, err := natsclient.Connect(conf.NatsURL, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
		reporters = append(reporters, natsclient.New(nc, conf.NatsSubject, id, logger))
	}

	task := client.NewLocalTask(&types.JudgeTask{
		ID:       id,
		Source:   source,
		Language: conf.Language,
		Problem:  problemDir,
	}, reporters)

	j := &judger.Judger{
		Client:   client.NewLocal(task),
		Builder:  problem.DirBuilder{},
		Language: langConf,
		Executor: executor,
		Logger:   logger,
		Options: judger.Options{
			OutputDir:      output,
			CheckerPath:    conf.Checker,
			Compile:        langConf.Compile,
			Checker:        langConf.Checker,
			Run:            langConf.Run,
			Confine:        conf.Confine,
			StrictMemory:   conf.StrictMemory,
			Parallelism:    conf.Parallelism,
			UnknownVerdict: policy,
		},
	}
	j.Loop(ctx)

	rt, err := task.Wait(ctx)
	if err != nil {
		return err
	}
	logger.Info("Judge finished",
		zap.String("id", id),
		zap.Stringer("status", rt.Status),
		zap.Int64("score", rt.Score),
		zap.Int64("time", rt.Time),
		zap.Int64("space", rt.Space))
	return nil
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(exitOK)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.Debug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}
