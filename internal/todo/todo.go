package todo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MaxValueLength 是 value 的字节上限。
const MaxValueLength = 140

// ErrValueTooLong 表示 value 超过 MaxValueLength 字节。
var ErrValueTooLong = errors.New("value too long")

// Todo 是一条待办事项。
type Todo struct {
	ID    uuid.UUID `json:"id"`
	Value string    `json:"value"`
}

// Repository 是待办事项的持久化接口，实现需并发安全。
type Repository interface {
	List(ctx context.Context) ([]Todo, error)
	Create(ctx context.Context, value string) (Todo, error)
	Close() error
}

// Validate 检查 value 是否可以入库。
func Validate(value string) error {
	if len(value) > MaxValueLength {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLong, len(value))
	}
	return nil
}
