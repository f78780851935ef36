package workflow

import (
	"context"

	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/repository"
)

// PromptSequence 模板的有序步骤，完成状态的存放位置由实现决定
type PromptSequence interface {
	// NextIncomplete 返回 order 最小的未完成步骤，全部完成时返回 nil, nil
	NextIncomplete(ctx context.Context, templateID uint) (*model.Prompt, error)
	MarkComplete(ctx context.Context, promptID uint) error
	Remaining(ctx context.Context, templateID uint) (int64, error)
}

// AllComplete 未完成步骤数为零
func AllComplete(ctx context.Context, seq PromptSequence, templateID uint) (bool, error) {
	remaining, err := seq.Remaining(ctx, templateID)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// templateSequence 完成状态记录在 Prompt.Completed 上，所有调用方共享
type templateSequence struct {
	prompts repository.PromptRepository
}

func NewTemplateSequence(prompts repository.PromptRepository) PromptSequence {
	return &templateSequence{prompts: prompts}
}

func (s *templateSequence) NextIncomplete(ctx context.Context, templateID uint) (*model.Prompt, error) {
	return s.prompts.NextIncomplete(ctx, templateID)
}

func (s *templateSequence) MarkComplete(ctx context.Context, promptID uint) error {
	return s.prompts.MarkComplete(ctx, promptID)
}

func (s *templateSequence) Remaining(ctx context.Context, templateID uint) (int64, error) {
	return s.prompts.CountIncomplete(ctx, templateID)
}

// sessionSequence 完成状态记录在会话自己的 SessionStep 上
type sessionSequence struct {
	sessionID string
	sessions  repository.SessionRepository
}

func NewSessionSequence(sessionID string, sessions repository.SessionRepository) PromptSequence {
	return &sessionSequence{sessionID: sessionID, sessions: sessions}
}

func (s *sessionSequence) NextIncomplete(ctx context.Context, templateID uint) (*model.Prompt, error) {
	return s.sessions.NextIncomplete(ctx, s.sessionID, templateID)
}

func (s *sessionSequence) MarkComplete(ctx context.Context, promptID uint) error {
	return s.sessions.MarkStepComplete(ctx, s.sessionID, promptID)
}

func (s *sessionSequence) Remaining(ctx context.Context, templateID uint) (int64, error) {
	return s.sessions.CountIncomplete(ctx, s.sessionID, templateID)
}
