package main

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// ===============================
// 自定义请求头
// ===============================

const (
	MaxHeaders   = 50  // 头部数量上限
	MaxHeaderLen = 255 // 单个头部最大长度（字节）
)

// header 解析后的单个请求头
type header struct {
	raw   string
	name  string
	value string
}

// HeaderSet 有序、只追加的请求头集合
// 格式与 curl -H 一致："Name: value"，或 "Name;" 表示显式空值。
type HeaderSet struct {
	items []header
}

// NewHeaderSet 创建空的请求头集合
func NewHeaderSet() *HeaderSet {
	return &HeaderSet{}
}

// parseHeader 解析并校验原始头部字符串
func parseHeader(raw string) (header, error) {
	if len(raw) > MaxHeaderLen {
		return header{}, invalidInputf("add header", "header %q is too long (>%d)", raw, MaxHeaderLen)
	}

	// "Name:" 与 "Name;" 都发送空值的头部
	// curl 用 "Name:" 删除内置头部，这里不区分两者；
	// 对 User-Agent 而言空值会让 net/http 不再发送默认值。
	var name, value string
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		name = raw[:i]
		value = strings.TrimSpace(raw[i+1:])
	} else if strings.HasSuffix(raw, ";") {
		name = strings.TrimSuffix(raw, ";")
	} else {
		return header{}, invalidInputf("add header", "header %q is missing ':'", raw)
	}

	name = strings.TrimSpace(name)
	if !httpguts.ValidHeaderFieldName(name) {
		return header{}, invalidInputf("add header", "invalid header name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return header{}, invalidInputf("add header", "invalid value for header %q", name)
	}

	return header{raw: raw, name: name, value: value}, nil
}

// Add 追加一个请求头，失败时集合保持不变
// 重复的头部名称不去重。
func (s *HeaderSet) Add(raw string) error {
	h, err := parseHeader(raw)
	if err != nil {
		return err
	}
	if len(s.items) >= MaxHeaders {
		return newError(KindAllocationFailure, "add header",
			fmt.Errorf("too many headers (>%d), %q will not be applied", MaxHeaders, raw))
	}
	s.items = append(s.items, h)
	return nil
}

// Len 返回头部数量
func (s *HeaderSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Values 返回原始头部字符串的副本
func (s *HeaderSet) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	for i, h := range s.items {
		out[i] = h.raw
	}
	return out
}

// Apply 按插入顺序把所有头部写入请求
// 集合为空时不做任何修改，沿用传输层默认值。
// Host 头需要写到 req.Host，否则 net/http 会忽略它。
func (s *HeaderSet) Apply(req *http.Request) {
	if s.Len() == 0 {
		return
	}
	for _, h := range s.items {
		if http.CanonicalHeaderKey(h.name) == "Host" {
			req.Host = h.value
			continue
		}
		req.Header.Add(h.name, h.value)
	}
}

func (s *HeaderSet) String() string {
	return strings.Join(s.Values(), ", ")
}
