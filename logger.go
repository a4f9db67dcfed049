package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/multi"
	"github.com/apex/log/handlers/text"
	"github.com/fatih/color"
)

// ===============================
// 日志模块
// ===============================

// Logger 日志记录器，控制台输出到 stderr，可选同时写入文件
// 结果行走 stdout，不经过这里。
type Logger struct {
	*log.Logger
	file      *os.File
	multiOut  io.Writer
	startTime time.Time
	logPath   string
}

// NewLogger 创建新的日志记录器
// enabled 时在 outputDir/logs 下创建日志文件。
func NewLogger(console io.Writer, outputDir string, enabled, verbose bool) (*Logger, error) {
	logger := &Logger{
		Logger:    &log.Logger{Handler: cli.New(console), Level: log.InfoLevel},
		multiOut:  console,
		startTime: time.Now(),
	}
	if verbose {
		logger.Level = log.DebugLevel
	}

	if !enabled {
		return logger, nil
	}

	// 创建日志目录
	logDir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	// 生成日志文件名（基于时间戳）
	timestamp := logger.startTime.Format("2006-01-02_15-04-05")
	logger.logPath = filepath.Join(logDir, fmt.Sprintf("%s.log", timestamp))

	file, err := os.Create(logger.logPath)
	if err != nil {
		return nil, fmt.Errorf("创建日志文件失败: %w", err)
	}
	logger.file = file

	logger.Handler = multi.New(cli.New(console), text.New(file))
	logger.multiOut = io.MultiWriter(console, file)

	return logger, nil
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// GetLogPath 获取日志文件路径
func (l *Logger) GetLogPath() string {
	return l.logPath
}

// GetStartTime 获取开始时间
func (l *Logger) GetStartTime() time.Time {
	return l.startTime
}

// Writer 返回控制台（及日志文件）输出，用于表格
func (l *Logger) Writer() io.Writer {
	return l.multiOut
}

// Printf 格式化输出（同时写入控制台和日志文件）
func (l *Logger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.multiOut, format, args...)
}

// Section 输出分隔区域
func (l *Logger) Section(title string) {
	l.Printf("\n==================== %s ====================\n", title)
}

// LogConfig 记录配置信息
func (l *Logger) LogConfig(cfg *Config) {
	pc := cfg.Probe
	l.WithFields(log.Fields{
		"target":   pc.Target(),
		"requests": pc.NumRequests(),
		"interval": pc.Interval(),
		"timeout":  pc.Timeout(),
		"headers":  pc.Headers().Len(),
	}).Debug("probe config")
	for _, h := range pc.Headers().Values() {
		l.WithField("header", h).Debug("custom header")
	}
}

// LogSample 记录单次请求结果
func (l *Logger) LogSample(index, total int, s TimingSample) {
	reusedStr := "新连接"
	if s.Reused {
		reusedStr = "复用"
	}
	l.WithFields(log.Fields{
		"ip":            s.RemoteIP,
		"status":        s.StatusCode,
		"namelookup":    fmt.Sprintf("%.6f", s.NameLookup.Seconds()),
		"connect":       fmt.Sprintf("%.6f", s.Connect.Seconds()),
		"starttransfer": fmt.Sprintf("%.6f", s.StartTransfer.Seconds()),
		"total":         fmt.Sprintf("%.6f", s.Total.Seconds()),
		"conn":          reusedStr,
	}).Debugf("%s [%d/%d]", color.GreenString("✓"), index, total)
}
