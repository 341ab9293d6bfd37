// Package apperror はドメインエラーの分類を提供する
//
// 各ドメインパッケージのセンチネルエラーは Kind を持つ *Error として定義し、
// API 層は Kind から HTTP ステータスを決定する。
package apperror

import "errors"

// Kind はエラーの分類を表す
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "state_conflict"
	KindCapacity   Kind = "capacity_exhausted"
	KindForbidden  Kind = "authorization"
	KindAuth       Kind = "authentication"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error は分類付きのドメインエラー
type Error struct {
	Kind    Kind
	Message string
}

// New は新しい分類付きエラーを作成する
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf はエラーチェーンから分類を取り出す。分類がなければ KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is は err が指定した分類かを返す
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
