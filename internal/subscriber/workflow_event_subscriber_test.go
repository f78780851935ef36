package subscriber

import (
	"context"
	"testing"

	"github.com/designmaster/backend/internal/eventbus"
)

func TestWorkflowEventSubscriberGenerated(t *testing.T) {
	bus := eventbus.NewWorkflowEventBus()
	NewWorkflowEventSubscriber().Register(bus)

	err := bus.Publish(context.Background(), eventbus.WorkflowEvent{
		Type:       eventbus.WorkflowEventDocumentGenerated,
		TemplateID: 3,
		DocumentID: 9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = bus.Publish(context.Background(), eventbus.WorkflowEvent{
		Type:       eventbus.WorkflowEventDocumentGenerated,
		TemplateID: 3,
	})
	if err == nil {
		t.Fatalf("expected error for empty document id")
	}
}

func TestWorkflowEventSubscriberRejectsEmptyTemplate(t *testing.T) {
	bus := eventbus.NewWorkflowEventBus()
	NewWorkflowEventSubscriber().Register(bus)

	if err := bus.Publish(context.Background(), eventbus.WorkflowEvent{Type: eventbus.WorkflowEventStepCompleted}); err == nil {
		t.Fatalf("expected error for empty template id")
	}
	if err := bus.Publish(context.Background(), eventbus.WorkflowEvent{Type: eventbus.WorkflowEventSessionStarted, TemplateID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
