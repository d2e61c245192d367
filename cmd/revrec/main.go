// revrec 从评论语料（可为 .gz）构建基于用户的协同过滤推荐器，输出统计与指定用户的推荐结果。
//
//	revrec -data movies.txt.gz -config revrec.yaml -user A141HP4LYPWMSR -user A328S9RN3U5M68
//
// -metrics-dump 在运行结束时把 revrec_ 指标以 Prometheus 文本格式写到 stderr；
// -metrics-addr 在该地址提供 /metrics，输出结果后保持运行直到收到中断信号。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rushteam/revrec/config"
	_ "github.com/rushteam/revrec/config/builders"
	"github.com/rushteam/revrec/core"
	"github.com/rushteam/revrec/ingest"
	"github.com/rushteam/revrec/pkg/logging"
	"github.com/rushteam/revrec/pkg/metrics"
	"github.com/rushteam/revrec/recommender"
)

type userList []string

func (u *userList) String() string { return strings.Join(*u, ",") }

func (u *userList) Set(v string) error {
	*u = append(*u, v)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "revrec:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", os.Getenv("REVREC_CONFIG"), "path to YAML config file")
		dataPath    = flag.String("data", "", "path to review corpus (plain text or gzip)")
		topN        = flag.Int("n", 0, "number of recommendations per user (0 = engine.top_n)")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus /metrics on this address and keep running until interrupted")
		metricsDump = flag.Bool("metrics-dump", false, "write revrec metrics to stderr when the run finishes")
		users       userList
	)
	flag.Var(&users, "user", "user id to recommend for (repeatable)")
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		return fmt.Errorf("-data is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(cfg.Logging)
	log := logging.Component("cmd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsErr chan error
	if *metricsAddr != "" {
		metricsErr = make(chan error, 1)
		go func() { metricsErr <- metrics.Serve(ctx, *metricsAddr) }()
		log.Info().Str("addr", *metricsAddr).Msg("serving /metrics")
	}

	f, err := os.Open(*dataPath)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := ingest.NewReviewReader(f)
	if err != nil {
		return err
	}
	defer reader.Close()

	opts, err := cfg.RecommenderOptions(ctx)
	if err != nil {
		return err
	}
	rec, err := recommender.Build(ctx, reader, opts...)
	if err != nil {
		return err
	}
	defer rec.Close()

	log.Info().
		Str("data", *dataPath).
		Int("skipped", reader.Skipped()).
		Msg("corpus loaded")

	fmt.Printf("reviews: %d\nusers: %d\nitems: %d\n", rec.TotalReviews(), rec.TotalUsers(), rec.TotalItems())

	for _, u := range users {
		ids, err := rec.Recommend(ctx, u, *topN)
		switch {
		case core.IsNotFound(err):
			fmt.Printf("%s: unknown user\n", u)
		case err != nil:
			return err
		default:
			fmt.Printf("%s: %s\n", u, strings.Join(ids, " "))
		}
	}

	if *metricsDump {
		if err := metrics.WriteText(os.Stderr, nil); err != nil {
			return err
		}
	}
	if metricsErr != nil {
		// 等待中断信号或 /metrics 服务出错
		return <-metricsErr
	}
	return nil
}
