package workflow

import (
	"errors"
	"fmt"

	"github.com/designmaster/backend/internal/repository"
)

var (
	ErrMissingParameter = errors.New("missing required parameter")
	ErrInvalidCaller    = errors.New("invalid caller identity")
	ErrAccessDenied     = errors.New("access denied")
	ErrNotFound         = errors.New("not found")
	ErrIncompleteSteps  = errors.New("not all steps are completed")
)

// IncompleteStepsError 生成前仍有未完成步骤，Remaining 为剩余数量
type IncompleteStepsError struct {
	Remaining int64
}

func (e *IncompleteStepsError) Error() string {
	return fmt.Sprintf("%s: %d remaining", ErrIncompleteSteps.Error(), e.Remaining)
}

func (e *IncompleteStepsError) Is(target error) bool {
	return target == ErrIncompleteSteps
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, kind, id)
}

// IdentityError 凭证无法识别时归为 ErrInvalidCaller，存储故障等其他错误原样返回
func IdentityError(err error) error {
	if errors.Is(err, ErrInvalidCaller) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrInvalidCaller, err)
	}
	return err
}
