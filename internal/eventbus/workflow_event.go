package eventbus

type WorkflowEventType string

const (
	WorkflowEventSessionStarted    WorkflowEventType = "SessionStarted"
	WorkflowEventContentSubmitted  WorkflowEventType = "ContentSubmitted"
	WorkflowEventStepCompleted     WorkflowEventType = "StepCompleted"
	WorkflowEventDocumentGenerated WorkflowEventType = "DocumentGenerated"
)

type WorkflowEvent struct {
	Type          WorkflowEventType
	UserID        uint
	TemplateID    uint
	SessionID     string // 为空表示模板级进度
	PromptID      uint
	PlaceholderID uint
	DocumentID    uint
	Remaining     int64
}

func (e WorkflowEvent) EventType() WorkflowEventType {
	return e.Type
}

type WorkflowEventHandler = Handler[WorkflowEvent]
type WorkflowEventBus = Bus[WorkflowEventType, WorkflowEvent]

func NewWorkflowEventBus() *WorkflowEventBus {
	return NewBus[WorkflowEventType, WorkflowEvent]()
}
