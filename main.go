package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

// 退出码
const (
	exitOK       = 0
	exitFailure  = 1 // 运行失败
	exitUsage    = 2 // 参数或配置错误
	exitCanceled = 130
)

// cliOptions 命令行参数
type cliOptions struct {
	headers    *[]string
	requests   *string
	interval   *string
	url        *string
	timeout    *time.Duration
	configPath *string
	verbose    *bool
	outputDir  *string
	json       *bool
	html       *bool
	logFile    *bool
	extra      *[]string
}

func newApp() (*kingpin.Application, *cliOptions) {
	app := kingpin.New("http-timing-probe",
		"Probe one HTTP endpoint over a reused connection and print per-phase median timings.")
	opts := &cliOptions{
		headers:    app.Flag("header", "Custom request header, e.g. \"Accept: */*\" (repeatable).").Short('H').Strings(),
		requests:   app.Flag("requests", "Number of requests (0 means default 10, max 100).").Short('n').String(),
		interval:   app.Flag("interval", "Interval between requests in milliseconds (max 60000).").Short('i').String(),
		url:        app.Flag("url", "Target URL.").Short('u').String(),
		timeout:    app.Flag("timeout", "Per-request timeout.").Short('t').Duration(),
		configPath: app.Flag("config", "YAML config file.").Short('c').String(),
		verbose:    app.Flag("verbose", "Debug logging and detail tables on stderr.").Short('v').Bool(),
		outputDir:  app.Flag("output-dir", "Directory for logs and reports.").Short('o').String(),
		json:       app.Flag("json", "Export a JSON report.").Bool(),
		html:       app.Flag("html", "Export an HTML report.").Bool(),
		logFile:    app.Flag("log-file", "Also write logs to <output-dir>/logs.").Bool(),
		extra:      app.Arg("args", "Extra arguments (ignored with a warning).").Strings(),
	}
	return app, opts
}

// parseIntOption 解析整数参数，非法、溢出或负数均视为错误
func parseIntOption(flag, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, invalidInputf("parse option", "option -%s: %q out-of-range value", flag, value)
		}
		return 0, invalidInputf("parse option", "option -%s: %q invalid value", flag, value)
	}
	if n < 0 {
		return 0, invalidInputf("parse option", "option -%s: %q negative value", flag, value)
	}
	return n, nil
}

// clamp 超出策略上限时截断并告警
func clamp(logger log.Interface, flag string, n, limit int) int {
	if n > limit {
		logger.Warnf("option -%s: %d exceeds max %d, using %d", flag, n, limit, limit)
		return limit
	}
	return n
}

// buildConfig 合并配置文件与命令行参数，命令行优先
func buildConfig(opts *cliOptions, logger log.Interface) (*Config, error) {
	warn := func(err error) {
		logger.WithError(err).Warn("配置项无效，保留原值")
	}

	cfg := DefaultConfig()
	if *opts.configPath != "" {
		loaded, err := LoadConfig(*opts.configPath, warn)
		if err != nil {
			return nil, newError(KindInvalidInput, "load config", err)
		}
		cfg = loaded
	}
	pc := cfg.Probe

	if *opts.url != "" {
		if err := pc.SetTarget(*opts.url); err != nil {
			return nil, err
		}
	}
	if *opts.requests != "" {
		n, err := parseIntOption("n", *opts.requests)
		if err != nil {
			return nil, err
		}
		if err := pc.SetNumRequests(clamp(logger, "n", n, MaxNumRequests)); err != nil {
			warn(err)
		}
		logger.Infof("number of requests set to %d", pc.NumRequests())
	}
	if *opts.interval != "" {
		ms, err := parseIntOption("i", *opts.interval)
		if err != nil {
			return nil, err
		}
		if err := pc.SetIntervalMs(clamp(logger, "i", ms, MaxIntervalMs)); err != nil {
			warn(err)
		}
		logger.Infof("interval between requests set to %d ms", pc.IntervalMs())
	}
	if *opts.timeout != 0 {
		if err := pc.SetTimeout(*opts.timeout); err != nil {
			warn(err)
		}
	}
	for _, h := range *opts.headers {
		if err := pc.AddHeader(h); err != nil {
			logger.WithError(err).Warnf("header %q will be skipped", h)
		}
	}

	if *opts.outputDir != "" {
		cfg.OutputDir = *opts.outputDir
	}
	cfg.EnableJSON = cfg.EnableJSON || *opts.json
	cfg.EnableHTML = cfg.EnableHTML || *opts.html
	cfg.EnableLog = cfg.EnableLog || *opts.logFile
	cfg.Verbose = *opts.verbose

	return cfg, nil
}

// run 解析参数并执行一次运行，返回退出码
// 结果行只在成功时写入 stdout，其余输出都走 stderr。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app, opts := newApp()
	app.ErrorWriter(stderr)
	app.UsageWriter(stderr)
	terminated := false
	app.Terminate(func(int) { terminated = true })

	if _, err := app.Parse(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if terminated {
		// --help / --version
		return exitOK
	}

	boot := &log.Logger{Handler: cli.New(stderr), Level: log.InfoLevel}
	for _, arg := range *opts.extra {
		boot.Warnf("extra argument %q ignored", arg)
	}
	cfg, err := buildConfig(opts, boot)
	if err != nil {
		boot.WithError(err).Error("加载配置失败")
		return exitUsage
	}

	// 初始化日志记录器
	logger, err := NewLogger(stderr, cfg.OutputDir, cfg.EnableLog, cfg.Verbose)
	if err != nil {
		boot.WithError(err).Error("初始化日志失败")
		return exitUsage
	}
	defer logger.Close()

	logger.LogConfig(cfg)
	report := NewRunReport(logger.GetStartTime(), cfg.Probe)

	agg, err := RunHTTP(ctx, cfg.Probe, logger, func(index, total int, s TimingSample) {
		report.AddSample(s)
		logger.LogSample(index, total, s)
	})
	if err != nil {
		logger.WithError(err).WithField("kind", KindOf(err)).Error("运行失败")
		if KindOf(err) == KindCanceled {
			return exitCanceled
		}
		return exitFailure
	}

	summaries, err := calculateSummaries(report.Samples)
	if err != nil {
		logger.WithError(err).Warn("统计计算失败")
	}
	report.Finalize(agg, summaries)

	if cfg.Verbose {
		logger.Section("测量结果")
		printDetailTable(logger.Writer(), report.Samples)
		printSummaryTable(logger.Writer(), agg, summaries)
	}

	fmt.Fprintln(stdout, agg.SKTestLine())

	if cfg.EnableJSON {
		jsonPath, err := ExportJSON(report, cfg.OutputDir)
		if err != nil {
			logger.WithError(err).Error("导出 JSON 报告失败")
		} else {
			logger.Infof("📄 JSON 报告: %s", jsonPath)
		}
	}

	if cfg.EnableHTML {
		htmlPath, err := ExportHTML(report, cfg.OutputDir)
		if err != nil {
			logger.WithError(err).Error("导出 HTML 报告失败")
		} else {
			logger.Infof("🌐 HTML 报告: %s", htmlPath)
		}
	}

	if logger.GetLogPath() != "" {
		logger.Infof("📝 日志文件: %s", logger.GetLogPath())
	}

	return exitOK
}

// ===============================
// 主函数
// ===============================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
