package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ===============================
// 探测配置
// ===============================

const (
	DefaultNumRequests = 10
	MaxNumRequests     = 100
	DefaultIntervalMs  = 0
	MaxIntervalMs      = 60000 // =1min
	DefaultTarget      = "http://google.com/"
	DefaultTimeout     = 30 * time.Second
)

// ProbeConfig 一次运行的探测参数
// 只能通过 Set* 方法修改；校验失败时保留原值。
// 运行期间不得修改。
type ProbeConfig struct {
	numRequests int
	intervalMs  int
	target      string
	timeout     time.Duration
	headers     *HeaderSet
}

// NewProbeConfig 返回默认配置
func NewProbeConfig() *ProbeConfig {
	return &ProbeConfig{
		numRequests: DefaultNumRequests,
		intervalMs:  DefaultIntervalMs,
		target:      DefaultTarget,
		timeout:     DefaultTimeout,
		headers:     NewHeaderSet(),
	}
}

func (c *ProbeConfig) NumRequests() int        { return c.numRequests }
func (c *ProbeConfig) IntervalMs() int         { return c.intervalMs }
func (c *ProbeConfig) Interval() time.Duration { return time.Duration(c.intervalMs) * time.Millisecond }
func (c *ProbeConfig) Target() string          { return c.target }
func (c *ProbeConfig) Timeout() time.Duration  { return c.timeout }
func (c *ProbeConfig) Headers() *HeaderSet     { return c.headers }

// SetNumRequests 设置请求次数，0 表示使用默认值
func (c *ProbeConfig) SetNumRequests(n int) error {
	if n < 0 {
		return invalidInputf("set requests", "negative value %d", n)
	}
	if n > MaxNumRequests {
		return invalidInputf("set requests", "%d exceeds max %d", n, MaxNumRequests)
	}
	if n == 0 {
		n = DefaultNumRequests
	}
	c.numRequests = n
	return nil
}

// SetIntervalMs 设置请求间隔（毫秒）
func (c *ProbeConfig) SetIntervalMs(ms int) error {
	if ms < 0 {
		return invalidInputf("set interval", "negative value %d", ms)
	}
	if ms > MaxIntervalMs {
		return invalidInputf("set interval", "%d exceeds max %d", ms, MaxIntervalMs)
	}
	c.intervalMs = ms
	return nil
}

// SetTarget 设置探测目标
func (c *ProbeConfig) SetTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return newError(KindInvalidInput, "set target", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidInputf("set target", "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return invalidInputf("set target", "missing host in %q", raw)
	}
	c.target = u.String()
	return nil
}

// SetTimeout 设置单次请求超时
func (c *ProbeConfig) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return invalidInputf("set timeout", "non-positive timeout %s", d)
	}
	c.timeout = d
	return nil
}

// AddHeader 追加自定义请求头
func (c *ProbeConfig) AddHeader(raw string) error {
	return c.headers.Add(raw)
}

// ===============================
// 配置加载模块
// ===============================

// Config 运行时配置
type Config struct {
	Probe *ProbeConfig

	// 输出配置
	OutputDir  string // 输出目录
	EnableLog  bool   // 是否启用日志文件
	EnableJSON bool   // 是否生成 JSON 报告
	EnableHTML bool   // 是否生成 HTML 报告
	Verbose    bool   // 调试日志 + 明细表格
}

// DefaultConfig 返回默认运行时配置
func DefaultConfig() *Config {
	return &Config{
		Probe:     NewProbeConfig(),
		OutputDir: "./output",
	}
}

// ===============================
// YAML 配置结构
// ===============================

type yamlConfig struct {
	Target   string   `yaml:"target"`
	Requests *int     `yaml:"requests"`
	Interval string   `yaml:"interval"`
	Timeout  string   `yaml:"timeout"`
	Headers  []string `yaml:"headers"`
	Output   struct {
		Dir        string `yaml:"dir"`
		EnableLog  bool   `yaml:"enable_log"`
		EnableJSON bool   `yaml:"enable_json"`
		EnableHTML bool   `yaml:"enable_html"`
	} `yaml:"output"`
}

// LoadConfig 从 YAML 文件加载配置
// 文件缺失或无法解析时返回错误；单个字段非法时通过 warn 报告并保留默认值。
func LoadConfig(path string, warn func(error)) (*Config, error) {
	if warn == nil {
		warn = func(error) {}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg := DefaultConfig()
	pc := cfg.Probe

	if yc.Target != "" {
		if err := pc.SetTarget(yc.Target); err != nil {
			warn(err)
		}
	}
	if yc.Requests != nil {
		if err := pc.SetNumRequests(*yc.Requests); err != nil {
			warn(err)
		}
	}

	// 解析请求间隔
	if yc.Interval != "" {
		interval, err := time.ParseDuration(yc.Interval)
		if err != nil {
			warn(newError(KindInvalidInput, "set interval", err))
		} else if err := pc.SetIntervalMs(int(interval / time.Millisecond)); err != nil {
			warn(err)
		}
	}

	// 解析超时时间
	if yc.Timeout != "" {
		timeout, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			warn(newError(KindInvalidInput, "set timeout", err))
		} else if err := pc.SetTimeout(timeout); err != nil {
			warn(err)
		}
	}

	for _, h := range yc.Headers {
		if err := pc.AddHeader(h); err != nil {
			warn(err)
		}
	}

	if yc.Output.Dir != "" {
		cfg.OutputDir = yc.Output.Dir
	}
	cfg.EnableLog = yc.Output.EnableLog
	cfg.EnableJSON = yc.Output.EnableJSON
	cfg.EnableHTML = yc.Output.EnableHTML

	return cfg, nil
}
