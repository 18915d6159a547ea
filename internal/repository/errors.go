package repository

import "errors"

// 見つからないことを表す共通エラー。Handlerが404に変換する。
var ErrNotFound = errors.New("not found")

// 一意制約違反（email重複など）。Usecaseが409に変換する。
var ErrDuplicate = errors.New("duplicate")
