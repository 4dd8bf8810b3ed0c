package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/onoffautomations/ha-cloudflare-ddns/config"
	"github.com/onoffautomations/ha-cloudflare-ddns/log"
	"github.com/onoffautomations/ha-cloudflare-ddns/reconcile"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	configPath = flag.StringP("config", "c", "config.toml", "path to config file")
	debug      = flag.Bool("debug", false, "enable debug output")
	oneshot    = flag.Bool("oneshot", false, "run a single cycle per domain and exit")
	help       = flag.BoolP("help", "h", false, "Print help message")
)

var buildDate string

var conf config.Config

func init() {
	flag.Parse()
	if *help {
		fmt.Println(flag.CommandLine.FlagUsages())
		os.Exit(0)
	}
}

func getInitLogger() context.Context {
	var err error
	var logger *zap.Logger

	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		fmt.Printf("Failed creating logger: %v\n", err)
		os.Exit(1)
	}

	return log.WithLogger(context.Background(), logger)
}

func getLogger(ctx context.Context) context.Context {
	var logOption zap.Config
	if *debug {
		logOption = zap.NewDevelopmentConfig()
	} else {
		logOption = zap.NewProductionConfig()
	}

	if conf.Log.Level != nil {
		logOption.Level.SetLevel(*conf.Log.Level)
	}

	if conf.Log.Encoding != nil {
		logOption.Encoding = *conf.Log.Encoding
	}

	if conf.Log.InfoPath != nil {
		logOption.OutputPaths = *conf.Log.InfoPath
	}

	if conf.Log.ErrorPath != nil {
		logOption.ErrorOutputPaths = *conf.Log.ErrorPath
	}

	logOption.InitialFields = map[string]interface{}{
		"node": conf.Service.Name,
	}

	logger, err := logOption.Build()
	if err != nil {
		log.S(ctx).Fatalw("cannot build real logger", zap.Error(err))
	}

	return log.WithLogger(context.Background(), logger)
}

func main() {
	ctx := getInitLogger()

	if buildDate != "" {
		log.S(ctx).Infow("cfddnsd starting", "variant", "release", "build_date", buildDate)
	} else {
		log.S(ctx).Infow("cfddnsd starting", "variant", "debug")
	}

	f, err := os.Open(*configPath)
	if err != nil {
		log.S(ctx).Fatalw("failed loading config", zap.Error(err))
	}

	switch {
	case strings.HasSuffix(*configPath, ".toml"):
		err = toml.NewDecoder(f).Decode(&conf)
	case strings.HasSuffix(*configPath, ".yaml") || strings.HasSuffix(*configPath, ".yml"):
		err = yaml.NewDecoder(f).Decode(&conf)
	case strings.HasSuffix(*configPath, ".json"):
		err = json.NewDecoder(f).Decode(&conf)
	default:
		err = fmt.Errorf("unknown config format: %s", *configPath)
	}
	_ = f.Close()

	if err != nil {
		log.S(ctx).Fatalw("failed loading config", zap.Error(err))
	}

	// Invalid configuration is reported once here; no reconciler starts.
	if err := conf.Validate(); err != nil {
		log.S(ctx).Fatalw("invalid config", zap.Error(err))
	}

	ctx = getLogger(ctx)

	var reconcilers []*reconcile.Reconciler
	for _, d := range conf.Domains {
		r, err := reconcile.New(ctx, d)
		if err != nil {
			log.S(ctx).Fatalw("cannot init domain", log.Domain(d.Domain), zap.Error(err))
		}

		reconcilers = append(reconcilers, r)
	}

	if *oneshot {
		failed := false
		for _, r := range reconcilers {
			if err := r.RunOnce(ctx); err != nil {
				failed = true
			}
		}

		if failed {
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, r := range reconcilers {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}

	wg.Wait()

	for _, r := range reconcilers {
		state := r.State()
		log.S(ctx).Infow("final state",
			log.Domain(state.Domain),
			"synced", state.Synced,
			"current_ip", state.CurrentIP,
			"dns_record_ip", state.DNSRecordIP,
			"last_error", state.LastError)
	}
}
