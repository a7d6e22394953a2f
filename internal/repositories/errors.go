package repositories

import (
	"errors"
	"strings"

	"github.com/3Eeeecho/go-clouddrive/internal/pkg/xerr"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrDuplicateKey 唯一约束冲突, 属于 Conflict 分类, 调用方可以重试
var ErrDuplicateKey = xerr.New(xerr.ConflictCode, xerr.ErrConflict, "资源冲突，请重试")

// translateError 把驱动层的唯一约束错误统一成 ErrDuplicateKey
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicateKey(err) {
		return ErrDuplicateKey
	}
	return err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike 转义 LIKE 通配符, 配合 ESCAPE '!' 使用
func escapeLike(term string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
}

func containsPattern(term string) string {
	return "%" + escapeLike(strings.ToLower(term)) + "%"
}

func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}
