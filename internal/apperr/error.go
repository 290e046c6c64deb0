// Package apperr はハンドラー層まで伝播させるアプリケーションエラーを定義します。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類です。HTTP ステータスはこの分類から決まります。
type Kind string

const (
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindDuplicateUser   Kind = "DUPLICATE_USER"
	KindNotFound        Kind = "NOT_FOUND"
	KindTooManyAttempts Kind = "TOO_MANY_ATTEMPTS"
	KindInternal        Kind = "INTERNAL_ERROR"
)

var kindStatus = map[Kind]int{
	KindInvalidInput:    http.StatusBadRequest,
	KindUnauthorized:    http.StatusUnauthorized,
	KindDuplicateUser:   http.StatusConflict,
	KindNotFound:        http.StatusNotFound,
	KindTooManyAttempts: http.StatusTooManyRequests,
	KindInternal:        http.StatusInternalServerError,
}

// Error はクライアントへ返すコードとメッセージを持つエラーです。
// Err は内部向けの原因で、レスポンスには含めません。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status は Kind に対応する HTTP ステータスコードを返します。
func (e *Error) Status() int {
	if status, ok := kindStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New はエラーを作成します。code が空の場合は Kind をそのまま使います。
func New(kind Kind, code, message string) *Error {
	if code == "" {
		code = string(kind)
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap は原因付きのエラーを作成します。
func Wrap(kind Kind, code, message string, err error) *Error {
	e := New(kind, code, message)
	e.Err = err
	return e
}

// InvalidInput は入力不正のエラーを作成します。
func InvalidInput(code, message string) *Error {
	return New(KindInvalidInput, code, message)
}

// Unauthorized は認証失敗のエラーを作成します。
func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

// NotFound は対象が存在しないことを表すエラーを作成します。
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Internal は内部エラーを作成します。メッセージは常に汎用の文言です。
func Internal(err error) *Error {
	return Wrap(KindInternal, "", "サーバー内部でエラーが発生しました。", err)
}

// KindOf は err に含まれる *Error の Kind を返します。該当しなければ KindInternal です。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is は err が指定した Kind の *Error かどうかを返します。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
