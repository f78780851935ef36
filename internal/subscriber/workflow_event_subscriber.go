package subscriber

import (
	"context"
	"fmt"

	"github.com/designmaster/backend/internal/eventbus"
	"k8s.io/klog/v2"
)

// WorkflowEventSubscriber 记录工作流事件
type WorkflowEventSubscriber struct{}

func NewWorkflowEventSubscriber() *WorkflowEventSubscriber {
	return &WorkflowEventSubscriber{}
}

func (s *WorkflowEventSubscriber) Register(bus *eventbus.WorkflowEventBus) {
	if bus == nil {
		return
	}
	bus.Subscribe(eventbus.WorkflowEventSessionStarted, s.handleProgress)
	bus.Subscribe(eventbus.WorkflowEventContentSubmitted, s.handleProgress)
	bus.Subscribe(eventbus.WorkflowEventStepCompleted, s.handleProgress)
	bus.Subscribe(eventbus.WorkflowEventDocumentGenerated, s.handleGenerated)
}

func (s *WorkflowEventSubscriber) handleProgress(ctx context.Context, event eventbus.WorkflowEvent) error {
	if event.TemplateID == 0 {
		return fmt.Errorf("模板ID为空")
	}
	klog.V(6).Infof("工作流事件: type=%s, templateID=%d, sessionID=%s, userID=%d, remaining=%d",
		event.Type, event.TemplateID, event.SessionID, event.UserID, event.Remaining)
	return nil
}

func (s *WorkflowEventSubscriber) handleGenerated(ctx context.Context, event eventbus.WorkflowEvent) error {
	if event.TemplateID == 0 {
		return fmt.Errorf("模板ID为空")
	}
	if event.DocumentID == 0 {
		return fmt.Errorf("文档ID为空")
	}
	klog.Infof("文档已生成: templateID=%d, sessionID=%s, documentID=%d, userID=%d",
		event.TemplateID, event.SessionID, event.DocumentID, event.UserID)
	return nil
}
