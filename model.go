package main

import (
	"fmt"
	"time"
)

// Dimension 计时维度
type Dimension int

const (
	NameLookup    Dimension = iota // DNS 解析完成
	Connect                        // TCP 连接完成
	AppConnect                     // TLS 握手完成（明文 HTTP 时等于 Connect）
	PreTransfer                    // 即将发送请求
	StartTransfer                  // 收到首字节
	Total                          // 响应体读取完毕
	Redirect                       // 最终请求之前所有重定向耗时

	numDimensions = 7
)

// allDimensions 按固定顺序列出所有维度
var allDimensions = [numDimensions]Dimension{
	NameLookup, Connect, AppConnect, PreTransfer, StartTransfer, Total, Redirect,
}

func (d Dimension) String() string {
	switch d {
	case NameLookup:
		return "namelookup"
	case Connect:
		return "connect"
	case AppConnect:
		return "appconnect"
	case PreTransfer:
		return "pretransfer"
	case StartTransfer:
		return "starttransfer"
	case Total:
		return "total"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// 单次请求的测量结果
// 所有时间均从本次探测开始累计（Redirect 除外）。
type TimingSample struct {
	Index         int           `json:"index"`       // 请求序号（从 1 开始）
	RemoteIP      string        `json:"remote_ip"`   // 对端 IP（已拷贝，不引用连接内部缓冲）
	StatusCode    int           `json:"status_code"` // HTTP状态码
	NameLookup    time.Duration `json:"namelookup"`
	Connect       time.Duration `json:"connect"`
	AppConnect    time.Duration `json:"appconnect"`
	PreTransfer   time.Duration `json:"pretransfer"`
	StartTransfer time.Duration `json:"starttransfer"`
	Total         time.Duration `json:"total"`
	Redirect      time.Duration `json:"redirect"`
	Redirects     int           `json:"redirects"` // 跟随的重定向次数
	Reused        bool          `json:"reused"`    // 最终请求是否复用连接
}

// Duration 返回指定维度的时长
func (s TimingSample) Duration(d Dimension) time.Duration {
	switch d {
	case NameLookup:
		return s.NameLookup
	case Connect:
		return s.Connect
	case AppConnect:
		return s.AppConnect
	case PreTransfer:
		return s.PreTransfer
	case StartTransfer:
		return s.StartTransfer
	case Total:
		return s.Total
	case Redirect:
		return s.Redirect
	default:
		return 0
	}
}

// Value 返回指定维度的时长（秒）
func (s TimingSample) Value(d Dimension) float64 {
	return s.Duration(d).Seconds()
}

// AggregateTiming 一次运行的汇总结果：每个维度取中位数（秒）
// RemoteIP/StatusCode 取自第一个成功的样本。
type AggregateTiming struct {
	RemoteIP      string  `json:"remote_ip"`
	StatusCode    int     `json:"status_code"`
	Samples       int     `json:"samples"`
	NameLookup    float64 `json:"namelookup"`
	Connect       float64 `json:"connect"`
	AppConnect    float64 `json:"appconnect"`
	PreTransfer   float64 `json:"pretransfer"`
	StartTransfer float64 `json:"starttransfer"`
	Total         float64 `json:"total"`
	Redirect      float64 `json:"redirect"`
}

// Value 返回指定维度的中位数（秒）
func (a *AggregateTiming) Value(d Dimension) float64 {
	switch d {
	case NameLookup:
		return a.NameLookup
	case Connect:
		return a.Connect
	case AppConnect:
		return a.AppConnect
	case PreTransfer:
		return a.PreTransfer
	case StartTransfer:
		return a.StartTransfer
	case Total:
		return a.Total
	case Redirect:
		return a.Redirect
	default:
		return 0
	}
}

// setValue 写入指定维度的中位数
func (a *AggregateTiming) setValue(d Dimension, v float64) {
	switch d {
	case NameLookup:
		a.NameLookup = v
	case Connect:
		a.Connect = v
	case AppConnect:
		a.AppConnect = v
	case PreTransfer:
		a.PreTransfer = v
	case StartTransfer:
		a.StartTransfer = v
	case Total:
		a.Total = v
	case Redirect:
		a.Redirect = v
	}
}

// SKTestLine 输出结果行
// 只包含 namelookup/connect/starttransfer/total 四个维度，其余维度见报告。
func (a *AggregateTiming) SKTestLine() string {
	return fmt.Sprintf("SKTEST;%s;%d;%.6f;%.6f;%.6f;%.6f",
		a.RemoteIP, a.StatusCode, a.NameLookup, a.Connect, a.StartTransfer, a.Total)
}

// 单个维度的汇总统计（秒）
type DimensionSummary struct {
	Dimension string  `json:"dimension"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	P90       float64 `json:"p90"`
}
