package repository

import "errors"

var ErrNotFound = errors.New("not found")

// unique制約違反（slug重複・email重複など）
var ErrConflict = errors.New("conflict")
