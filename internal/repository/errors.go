package repository

import "errors"

// ErrNotFound 目标记录不存在（与 I/O 失败区分，调用方据此走零值路径）
var ErrNotFound = errors.New("record not found")
