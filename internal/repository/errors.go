package repository

import (
	"errors"
	"fmt"
)

// 仓储层错误基类：调用方使用 errors.Is 区分类别，
// 包装后的错误保留触发原因与主键上下文。
var (
	ErrNotFound       = errors.New("entity not found")
	ErrCouldNotSave   = errors.New("could not save entity")
	ErrCouldNotDelete = errors.New("could not delete entity")
)

// notFoundError 构建带主键上下文的未找到错误
func notFoundError(entity string, key interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, key)
}

// saveError 构建保存失败错误，id 为 0 时标记为新实体
func saveError(entity string, id uint, cause error) error {
	if id == 0 {
		return fmt.Errorf("%w: %s (new): %w", ErrCouldNotSave, entity, cause)
	}
	return fmt.Errorf("%w: %s %d: %w", ErrCouldNotSave, entity, id, cause)
}

// deleteError 构建删除失败错误
func deleteError(entity string, id uint, cause error) error {
	return fmt.Errorf("%w: %s %d: %w", ErrCouldNotDelete, entity, id, cause)
}
