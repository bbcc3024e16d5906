package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// dayExpr 构建按自然日分桶的表达式，兼容 sqlite 与 postgres。
func dayExpr(db *gorm.DB, column string) string {
	return dayExprByDialect(dbDialectName(db), column)
}

func dayExprByDialect(dialect, column string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", column)
	default:
		return fmt.Sprintf("CAST(date(%s) AS TEXT)", column)
	}
}

// monthExpr 构建按自然月分桶的表达式，兼容 sqlite 与 postgres。
func monthExpr(db *gorm.DB, column string) string {
	return monthExprByDialect(dbDialectName(db), column)
}

func monthExprByDialect(dialect, column string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("to_char(%s, 'YYYY-MM')", column)
	default:
		return fmt.Sprintf("strftime('%%Y-%%m', %s)", column)
	}
}

// absExpr 构建绝对值表达式（各方言均支持 ABS，保留入口便于扩展）。
func absExpr(column string) string {
	return fmt.Sprintf("ABS(%s)", column)
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// likeOperator 获取当前连接对应的不区分大小写匹配操作符。
func likeOperator(db *gorm.DB) string {
	return likeOperatorByDialect(dbDialectName(db))
}
