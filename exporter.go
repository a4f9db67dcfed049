package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

// ===============================
// 报告导出模块
// ===============================

// RunReport 完整运行报告
type RunReport struct {
	StartTime time.Time          `json:"start_time"` // 开始时间
	EndTime   time.Time          `json:"end_time"`   // 结束时间
	Duration  time.Duration      `json:"duration"`   // 总耗时
	Config    ReportConfig       `json:"config"`     // 配置快照
	Samples   []TimingSample     `json:"samples"`    // 每次请求的测量
	Aggregate *AggregateTiming   `json:"aggregate"`  // 中位数汇总
	Summaries []DimensionSummary `json:"summaries"`  // 各维度统计
	Line      string             `json:"line"`       // 结果行
}

// ReportConfig 配置快照（用于报告）
type ReportConfig struct {
	Target     string   `json:"target"`
	Requests   int      `json:"requests"`
	IntervalMs int      `json:"interval_ms"`
	Timeout    string   `json:"timeout"`
	Headers    []string `json:"headers"`
}

// NewRunReport 创建新的运行报告
func NewRunReport(startTime time.Time, cfg *ProbeConfig) *RunReport {
	return &RunReport{
		StartTime: startTime,
		Config: ReportConfig{
			Target:     cfg.Target(),
			Requests:   cfg.NumRequests(),
			IntervalMs: cfg.IntervalMs(),
			Timeout:    cfg.Timeout().String(),
			Headers:    cfg.Headers().Values(),
		},
	}
}

// AddSample 添加一次请求的测量
func (r *RunReport) AddSample(s TimingSample) {
	r.Samples = append(r.Samples, s)
}

// Finalize 完成报告
func (r *RunReport) Finalize(agg *AggregateTiming, summaries []DimensionSummary) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Aggregate = agg
	r.Summaries = summaries
	if agg != nil {
		r.Line = agg.SKTestLine()
	}
}

// reportPath 创建报告目录并返回文件路径
func reportPath(report *RunReport, outputDir, ext string) (string, error) {
	reportDir := filepath.Join(outputDir, "reports")
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}
	timestamp := report.StartTime.Format("2006-01-02_15-04-05")
	return filepath.Join(reportDir, fmt.Sprintf("%s.%s", timestamp, ext)), nil
}

// ExportJSON 导出 JSON 格式报告
func ExportJSON(report *RunReport, outputDir string) (string, error) {
	filePath, err := reportPath(report, outputDir, "json")
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("JSON 序列化失败: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("写入 JSON 文件失败: %w", err)
	}

	return filePath, nil
}

// ExportHTML 导出 HTML 格式报告
func ExportHTML(report *RunReport, outputDir string) (string, error) {
	filePath, err := reportPath(report, outputDir, "html")
	if err != nil {
		return "", err
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"seconds": func(d time.Duration) string {
			return fmt.Sprintf("%.6f", d.Seconds())
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("解析 HTML 模板失败: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("创建 HTML 文件失败: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, report); err != nil {
		return "", fmt.Errorf("渲染 HTML 模板失败: %w", err)
	}

	return filePath, nil
}

// HTML 模板
const htmlTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <title>HTTP 计时报告 - {{formatTime .StartTime}}</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #16213e; color: #e8e8e8; padding: 20px; }
        h1, h2 { color: #00d4ff; }
        table { border-collapse: collapse; margin-bottom: 24px; }
        th, td { padding: 6px 12px; border-bottom: 1px solid rgba(255,255,255,0.1); text-align: right; }
        th { color: #888; }
        code { color: #7bff9e; }
        .reused { color: #7bff9e; }
    </style>
</head>
<body>
    <h1>HTTP 计时报告</h1>
    <p>{{formatTime .StartTime}} · 耗时 {{formatDuration .Duration}}</p>

    <h2>配置</h2>
    <table>
        <tr><th>目标</th><td>{{.Config.Target}}</td></tr>
        <tr><th>请求次数</th><td>{{.Config.Requests}}</td></tr>
        <tr><th>请求间隔 (ms)</th><td>{{.Config.IntervalMs}}</td></tr>
        <tr><th>超时</th><td>{{.Config.Timeout}}</td></tr>
        {{range .Config.Headers}}<tr><th>请求头</th><td>{{.}}</td></tr>{{end}}
    </table>

    {{if .Aggregate}}
    <h2>结果</h2>
    <p><code>{{.Line}}</code></p>
    <table>
        <thead><tr><th>维度</th><th>中位数</th><th>均值</th><th>P90</th><th>最小</th><th>最大</th></tr></thead>
        <tbody>
        {{range .Summaries}}
            <tr>
                <td>{{.Dimension}}</td>
                <td>{{printf "%.6f" .Median}}</td>
                <td>{{printf "%.6f" .Mean}}</td>
                <td>{{printf "%.6f" .P90}}</td>
                <td>{{printf "%.6f" .Min}}</td>
                <td>{{printf "%.6f" .Max}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>
    {{end}}

    <h2>详细结果 (s)</h2>
    <table>
        <thead>
            <tr>
                <th>序号</th><th>IP</th><th>状态码</th><th>连接</th>
                <th>namelookup</th><th>connect</th><th>appconnect</th><th>pretransfer</th>
                <th>starttransfer</th><th>total</th><th>redirect</th>
            </tr>
        </thead>
        <tbody>
        {{range .Samples}}
            <tr>
                <td>{{.Index}}</td>
                <td>{{.RemoteIP}}</td>
                <td>{{.StatusCode}}</td>
                <td>{{if .Reused}}<span class="reused">复用</span>{{else}}新建{{end}}</td>
                <td>{{seconds .NameLookup}}</td>
                <td>{{seconds .Connect}}</td>
                <td>{{seconds .AppConnect}}</td>
                <td>{{seconds .PreTransfer}}</td>
                <td>{{seconds .StartTransfer}}</td>
                <td>{{seconds .Total}}</td>
                <td>{{seconds .Redirect}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>`
