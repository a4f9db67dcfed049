package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sync"
	"time"

	"github.com/tcnksm/go-httpstat"
)

// ===============================
// HTTP 客户端
// ===============================

// 最多跟随的重定向次数（与 net/http 默认一致）
const maxRedirects = 10

// 连接池上限，一次运行只会用到一个连接
const maxIdleConns = 100

// Prober 执行一次计时请求
type Prober interface {
	Probe(ctx context.Context) (TimingSample, error)
}

// HTTPProbe 持有一个可复用的 HTTP 客户端，对固定目标发起 GET
// 一次运行内的所有请求共用同一个连接。
type HTTPProbe struct {
	target    string
	headers   *HeaderSet
	client    *http.Client
	transport *http.Transport
}

// 创建保持长连接的 HTTP/1.1 客户端
// 重定向由 Probe 自己处理，以便每一跳单独计时。
func createHTTPClient(timeout time.Duration) (*http.Client, *http.Transport) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: timeout,
		// 只测 HTTP/1.1 长连接
		ForceAttemptHTTP2:   false,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client, transport
}

// NewHTTPProbe 根据配置创建探测器
func NewHTTPProbe(cfg *ProbeConfig) *HTTPProbe {
	client, transport := createHTTPClient(cfg.Timeout())
	return &HTTPProbe{
		target:    cfg.Target(),
		headers:   cfg.Headers(),
		client:    client,
		transport: transport,
	}
}

// Close 释放空闲连接
func (p *HTTPProbe) Close() error {
	p.transport.CloseIdleConnections()
	return nil
}

// hopResult 单跳请求的原始测量
type hopResult struct {
	statusCode int
	remoteIP   string
	reused     bool
	location   *url.URL // 非空表示需要继续跳转
	start      time.Time
	gotConn    time.Time
	end        time.Time
	stat       httpstat.Result

	mu sync.Mutex
	// httpstat 各阶段的起点：首个 DNSStart/ConnectStart，复用连接时为写完请求的时刻
	baseline time.Time
}

// markBaseline 记录第一次出现的阶段起点
func (hr *hopResult) markBaseline() {
	hr.mu.Lock()
	if hr.baseline.IsZero() {
		hr.baseline = time.Now()
	}
	hr.mu.Unlock()
}

// lead 返回从发起本跳到 httpstat 起点之间的耗时
func (hr *hopResult) lead() time.Duration {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	if hr.baseline.IsZero() || hr.baseline.Before(hr.start) {
		return 0
	}
	return hr.baseline.Sub(hr.start)
}

// ===============================
// 测试逻辑
// ===============================

// Probe 执行一次完整请求（含重定向）并提取计时
func (p *HTTPProbe) Probe(ctx context.Context) (TimingSample, error) {
	target := p.target
	var first time.Time

	for hop := 0; ; hop++ {
		hr, err := p.roundTrip(ctx, target)
		if err != nil {
			return TimingSample{}, err
		}
		if hop == 0 {
			first = hr.start
		}
		if hr.location == nil {
			// 没有重定向时 redirect 为 0
			sample, err := hr.sample(hr.start.Sub(first))
			if err != nil {
				return TimingSample{}, err
			}
			sample.Redirects = hop
			return sample, nil
		}
		if hop+1 > maxRedirects {
			return TimingSample{}, newError(KindTransportFailure, "probe",
				fmt.Errorf("stopped after %d redirects", maxRedirects))
		}
		target = hr.location.String()
	}
}

// roundTrip 发起单跳 GET，丢弃响应体
func (p *HTTPProbe) roundTrip(ctx context.Context, target string) (*hopResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, newError(KindTransportFailure, "probe", fmt.Errorf("创建请求失败: %w", err))
	}
	p.headers.Apply(req)

	hr := &hopResult{}
	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			hr.markBaseline()
		},
		ConnectStart: func(string, string) {
			hr.markBaseline()
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			hr.markBaseline()
		},
		GotConn: func(info httptrace.GotConnInfo) {
			hr.gotConn = time.Now()
			hr.reused = info.Reused
			if addr := info.Conn.RemoteAddr(); addr != nil {
				if host, _, err := net.SplitHostPort(addr.String()); err == nil {
					hr.remoteIP = host
				}
			}
		},
	}
	traceCtx := httptrace.WithClientTrace(req.Context(), trace)
	req = req.WithContext(httpstat.WithHTTPStat(traceCtx, &hr.stat))

	hr.start = time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}

	// 读完响应体才能复用连接，内容直接丢弃
	_, err = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	hr.end = time.Now()
	if err != nil {
		return nil, transportError(ctx, fmt.Errorf("读取响应失败: %w", err))
	}

	hr.statusCode = resp.StatusCode
	if isRedirect(resp.StatusCode) {
		loc, err := resp.Location()
		switch {
		case err == nil:
			hr.location = loc
		case errors.Is(err, http.ErrNoLocation):
			// 没有 Location 时按最终响应处理
		default:
			return nil, newError(KindTransportFailure, "probe", fmt.Errorf("无效的重定向地址: %w", err))
		}
	}
	return hr, nil
}

// sample 把最终一跳的测量换算成从探测开始累计的时间
func (hr *hopResult) sample(redirect time.Duration) (TimingSample, error) {
	if hr.remoteIP == "" {
		return TimingSample{}, newError(KindExtractionFailure, "probe", errors.New("no peer IP recorded"))
	}
	if hr.statusCode == 0 {
		return TimingSample{}, newError(KindExtractionFailure, "probe", errors.New("no status code recorded"))
	}
	if hr.stat.StartTransfer <= 0 {
		return TimingSample{}, newError(KindExtractionFailure, "probe", errors.New("no start-transfer time recorded"))
	}

	// httpstat 以 DNS 开始（或复用时的写请求时刻）为基准，这里补上之前的等待
	base := redirect + hr.lead()

	s := TimingSample{
		RemoteIP:      hr.remoteIP,
		StatusCode:    hr.statusCode,
		NameLookup:    base + hr.stat.NameLookup,
		Connect:       base + hr.stat.Connect,
		AppConnect:    base + hr.stat.Pretransfer,
		StartTransfer: base + hr.stat.StartTransfer,
		Total:         redirect + hr.end.Sub(hr.start),
		Redirect:      redirect,
		Reused:        hr.reused,
	}
	s.PreTransfer = s.AppConnect
	if !hr.gotConn.IsZero() {
		if t := redirect + hr.gotConn.Sub(hr.start); t > s.PreTransfer {
			s.PreTransfer = t
		}
	}
	return s, nil
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// transportError 区分取消与普通传输失败
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return newError(KindCanceled, "probe", ctx.Err())
	}
	return newError(KindTransportFailure, "probe", err)
}
