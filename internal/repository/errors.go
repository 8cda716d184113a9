package repository

import "errors"

// 対象が存在しない（gormのErrRecordNotFoundはinfraで変換する）
var ErrNotFound = errors.New("not found")

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")
