package main

import (
	"context"
	"errors"
	"fmt"
)

// ===============================
// 错误分类
// ===============================

// Kind 错误类别
type Kind int

const (
	KindUnknown           Kind = iota
	KindInvalidInput           // 配置值非法或越界
	KindTransportFailure       // HTTP 请求本身失败
	KindExtractionFailure      // 请求成功但缺少计时字段
	KindAllocationFailure      // 头部列表或样本缓冲已满
	KindCanceled               // 运行被取消
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindTransportFailure:
		return "TransportFailure"
	case KindExtractionFailure:
		return "ExtractionFailure"
	case KindAllocationFailure:
		return "AllocationFailure"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// 每个类别的哨兵错误，便于 errors.Is 判断
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTransportFailure  = errors.New("transport failure")
	ErrExtractionFailure = errors.New("extraction failure")
	ErrAllocationFailure = errors.New("allocation failure")
	ErrCanceled          = errors.New("run canceled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindTransportFailure:
		return ErrTransportFailure
	case KindExtractionFailure:
		return ErrExtractionFailure
	case KindAllocationFailure:
		return ErrAllocationFailure
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

// Error 带类别标签的错误
type Error struct {
	Kind Kind
	Op   string // 出错的操作，如 "probe"、"set requests"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrTransportFailure) 这类判断按类别匹配
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// newError 构造带类别的错误
func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// invalidInputf 构造 InvalidInput 错误
func invalidInputf(op, format string, args ...interface{}) *Error {
	return newError(KindInvalidInput, op, fmt.Errorf(format, args...))
}

// KindOf 返回错误链上第一个 *Error 的类别
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}
