package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/designmaster/backend/internal/eventbus"
	"github.com/designmaster/backend/internal/model"
	"github.com/designmaster/backend/internal/repository"
	"github.com/designmaster/backend/internal/service/renderer"
	"github.com/designmaster/backend/internal/service/statemachine"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

const defaultHistoryLimit = 20

// IdentityResolver 将不透明凭证解析为用户
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*model.User, error)
}

// Repositories 引擎依赖的存储
type Repositories struct {
	Templates    repository.TemplateRepository
	Placeholders repository.PlaceholderRepository
	Prompts      repository.PromptRepository
	Sessions     repository.SessionRepository
	Documents    repository.GeneratedDocumentRepository
}

// Engine 文档生成工作流。
// 不带 sessionID 的调用读写模板上的全局进度；带 sessionID 的调用只读写该会话自己的进度。
type Engine struct {
	identity     IdentityResolver
	repos        Repositories
	bus          *eventbus.WorkflowEventBus
	stateMachine *statemachine.SessionStateMachine
	historyLimit int
}

func NewEngine(identity IdentityResolver, repos Repositories, bus *eventbus.WorkflowEventBus) *Engine {
	return &Engine{
		identity:     identity,
		repos:        repos,
		bus:          bus,
		stateMachine: statemachine.NewSessionStateMachine(),
		historyLimit: defaultHistoryLimit,
	}
}

// SetHistoryLimit 设置生成历史列表的条数上限
func (e *Engine) SetHistoryLimit(limit int) {
	if limit > 0 {
		e.historyLimit = limit
	}
}

type StartRequest struct {
	Credential      string
	TemplateID      uint
	ProjectRootPath string
}

type StartResult struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	TemplateID      uint   `json:"template_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	State           string `json:"state,omitempty"`
	ProjectRootPath string `json:"project_root_path,omitempty"`
}

// StepRequest 以模板或会话定位进度
type StepRequest struct {
	Credential string
	TemplateID uint
	SessionID  string
}

type NextStep struct {
	Done      bool
	Prompt    *model.Prompt
	Remaining int64
	SessionID string
}

type SubmitRequest struct {
	Credential    string
	PlaceholderID uint
	Content       *string
	SessionID     string
}

type SubmitResult struct {
	Status        string `json:"status"`
	PlaceholderID uint   `json:"placeholder_id"`
	SessionID     string `json:"session_id,omitempty"`
}

type CompleteRequest struct {
	Credential string
	PromptID   uint
	SessionID  string
}

type Progress struct {
	TemplateID     uint   `json:"template_id"`
	SessionID      string `json:"session_id,omitempty"`
	State          string `json:"state"`
	TotalSteps     int64  `json:"total_steps"`
	RemainingSteps int64  `json:"remaining_steps"`
}

type CompleteResult struct {
	Status   string   `json:"status"`
	PromptID uint     `json:"prompt_id"`
	Progress Progress `json:"progress"`
}

type GenerateResult struct {
	Status     string `json:"status"`
	Document   string `json:"document"`
	DocumentID uint   `json:"document_id"`
	TemplateID uint   `json:"template_id"`
	SessionID  string `json:"session_id,omitempty"`
}

// scope 一次调用解析出的模板、会话以及对应的进度存储
type scope struct {
	caller   *model.User
	template *model.Template
	session  *model.Session
	sequence PromptSequence
	catalog  PlaceholderCatalog
}

func (s *scope) sessionID() string {
	if s.session == nil {
		return ""
	}
	return s.session.ID
}

// allowed 会话所有者在自己的会话内可写；模板级进度只有模板所有者可写
func (s *scope) allowed(write bool) bool {
	if !CanRead(s.template, s.caller.ID) {
		return false
	}
	if write && s.session == nil {
		return CanWrite(s.template, s.caller.ID)
	}
	return true
}

// Start 校验调用方。指定模板时创建会话，只给出项目路径时仅作确认，不重置任何进度。
func (e *Engine) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	caller, err := e.caller(ctx, "Start", req.Credential)
	if err != nil {
		return nil, err
	}
	if req.TemplateID == 0 {
		if strings.TrimSpace(req.ProjectRootPath) == "" {
			return nil, missing("template_id or project_root_path")
		}
		klog.V(6).Infof("Start: acknowledged, userID=%d, projectRootPath=%s", caller.ID, req.ProjectRootPath)
		return &StartResult{
			Status:          "success",
			Message:         "Document generation started",
			ProjectRootPath: req.ProjectRootPath,
		}, nil
	}

	template, err := e.repos.Templates.Get(ctx, req.TemplateID)
	if err != nil {
		return nil, mapNotFound(err, "template", req.TemplateID)
	}
	if !CanRead(template, caller.ID) {
		klog.Warningf("Start: access denied, templateID=%d, userID=%d", template.ID, caller.ID)
		return nil, ErrAccessDenied
	}

	session := &model.Session{
		ID:              uuid.NewString(),
		TemplateID:      template.ID,
		OwnerID:         caller.ID,
		State:           string(statemachine.SessionStateNotStarted),
		ProjectRootPath: req.ProjectRootPath,
	}
	total, err := e.repos.Prompts.Count(ctx, template.ID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		session.State = string(statemachine.SessionStateReady)
	}
	if err := e.repos.Sessions.Create(ctx, session); err != nil {
		klog.Errorf("Start: create session failed, templateID=%d, error=%v", template.ID, err)
		return nil, err
	}

	klog.V(6).Infof("Start: session created, sessionID=%s, templateID=%d, userID=%d", session.ID, template.ID, caller.ID)
	e.publish(ctx, eventbus.WorkflowEvent{
		Type:       eventbus.WorkflowEventSessionStarted,
		UserID:     caller.ID,
		TemplateID: template.ID,
		SessionID:  session.ID,
		Remaining:  total,
	})

	return &StartResult{
		Status:          "success",
		Message:         "Document generation started",
		TemplateID:      template.ID,
		SessionID:       session.ID,
		State:           session.State,
		ProjectRootPath: req.ProjectRootPath,
	}, nil
}

// NextStep 返回 order 最小的未完成步骤，全部完成时 Done 为 true
func (e *Engine) NextStep(ctx context.Context, req StepRequest) (*NextStep, error) {
	sc, err := e.readScope(ctx, "NextStep", req)
	if err != nil {
		return nil, err
	}

	prompt, err := sc.sequence.NextIncomplete(ctx, sc.template.ID)
	if err != nil {
		klog.Errorf("NextStep: query failed, templateID=%d, error=%v", sc.template.ID, err)
		return nil, err
	}
	remaining, err := sc.sequence.Remaining(ctx, sc.template.ID)
	if err != nil {
		return nil, err
	}

	klog.V(6).Infof("NextStep: templateID=%d, sessionID=%s, remaining=%d", sc.template.ID, sc.sessionID(), remaining)
	return &NextStep{
		Done:      prompt == nil,
		Prompt:    prompt,
		Remaining: remaining,
		SessionID: sc.sessionID(),
	}, nil
}

// Submit 写入占位符内容，不影响步骤完成状态
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	caller, err := e.caller(ctx, "Submit", req.Credential)
	if err != nil {
		return nil, err
	}
	if req.PlaceholderID == 0 {
		return nil, missing("placeholder_id")
	}
	if req.Content == nil {
		return nil, missing("content")
	}

	placeholder, err := e.repos.Placeholders.Get(ctx, req.PlaceholderID)
	if err != nil {
		return nil, mapNotFound(err, "placeholder", req.PlaceholderID)
	}
	sc, err := e.resolveScope(ctx, caller, placeholder.TemplateID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sc.allowed(true) {
		klog.Warningf("Submit: access denied, placeholderID=%d, templateID=%d, userID=%d", placeholder.ID, sc.template.ID, caller.ID)
		return nil, ErrAccessDenied
	}

	if err := sc.catalog.SubmitContent(ctx, placeholder.ID, *req.Content); err != nil {
		klog.Errorf("Submit: save content failed, placeholderID=%d, error=%v", placeholder.ID, err)
		return nil, mapNotFound(err, "placeholder", placeholder.ID)
	}

	klog.V(6).Infof("Submit: placeholderID=%d, sessionID=%s, userID=%d", placeholder.ID, sc.sessionID(), caller.ID)
	e.publish(ctx, eventbus.WorkflowEvent{
		Type:          eventbus.WorkflowEventContentSubmitted,
		UserID:        caller.ID,
		TemplateID:    sc.template.ID,
		SessionID:     sc.sessionID(),
		PlaceholderID: placeholder.ID,
	})

	return &SubmitResult{
		Status:        "success",
		PlaceholderID: placeholder.ID,
		SessionID:     sc.sessionID(),
	}, nil
}

// CompleteStep 标记步骤完成，与提交内容相互独立
func (e *Engine) CompleteStep(ctx context.Context, req CompleteRequest) (*CompleteResult, error) {
	caller, err := e.caller(ctx, "CompleteStep", req.Credential)
	if err != nil {
		return nil, err
	}
	if req.PromptID == 0 {
		return nil, missing("prompt_id")
	}

	prompt, err := e.repos.Prompts.Get(ctx, req.PromptID)
	if err != nil {
		return nil, mapNotFound(err, "prompt", req.PromptID)
	}
	sc, err := e.resolveScope(ctx, caller, prompt.TemplateID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sc.allowed(true) {
		klog.Warningf("CompleteStep: access denied, promptID=%d, templateID=%d, userID=%d", prompt.ID, sc.template.ID, caller.ID)
		return nil, ErrAccessDenied
	}

	if err := sc.sequence.MarkComplete(ctx, prompt.ID); err != nil {
		klog.Errorf("CompleteStep: mark failed, promptID=%d, error=%v", prompt.ID, err)
		return nil, mapNotFound(err, "prompt", prompt.ID)
	}
	remaining, err := sc.sequence.Remaining(ctx, sc.template.ID)
	if err != nil {
		return nil, err
	}
	if sc.session != nil {
		target := statemachine.StateAfterStep(statemachine.SessionState(sc.session.State), remaining)
		if err := e.moveSession(ctx, sc.session, target); err != nil {
			return nil, err
		}
	}
	progress, err := e.progress(ctx, sc)
	if err != nil {
		return nil, err
	}

	klog.V(6).Infof("CompleteStep: promptID=%d, sessionID=%s, remaining=%d", prompt.ID, sc.sessionID(), remaining)
	e.publish(ctx, eventbus.WorkflowEvent{
		Type:       eventbus.WorkflowEventStepCompleted,
		UserID:     caller.ID,
		TemplateID: sc.template.ID,
		SessionID:  sc.sessionID(),
		PromptID:   prompt.ID,
		Remaining:  remaining,
	})

	return &CompleteResult{Status: "success", PromptID: prompt.ID, Progress: *progress}, nil
}

// Generate 全部步骤完成后渲染文档，可重复生成
func (e *Engine) Generate(ctx context.Context, req StepRequest) (*GenerateResult, error) {
	sc, err := e.readScope(ctx, "Generate", req)
	if err != nil {
		return nil, err
	}

	remaining, err := sc.sequence.Remaining(ctx, sc.template.ID)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		klog.V(6).Infof("Generate: incomplete steps, templateID=%d, sessionID=%s, remaining=%d", sc.template.ID, sc.sessionID(), remaining)
		return nil, &IncompleteStepsError{Remaining: remaining}
	}

	placeholders, err := sc.catalog.Get(ctx, sc.template.ID)
	if err != nil {
		return nil, err
	}
	text := renderer.Render(sc.template.Content, Values(placeholders))

	// 先校验状态迁移，文档保存成功后再写会话状态
	if sc.session != nil {
		if err := e.validateGenerate(sc.session); err != nil {
			return nil, err
		}
	}
	doc := &model.GeneratedDocument{
		TemplateID: sc.template.ID,
		SessionID:  sc.sessionID(),
		UserID:     sc.caller.ID,
		Content:    text,
	}
	if err := e.repos.Documents.Create(ctx, doc); err != nil {
		klog.Errorf("Generate: save document failed, templateID=%d, error=%v", sc.template.ID, err)
		return nil, err
	}
	if sc.session != nil {
		if err := e.markGenerated(ctx, sc.session); err != nil {
			return nil, err
		}
	}

	klog.V(6).Infof("Generate: templateID=%d, sessionID=%s, documentID=%d", sc.template.ID, sc.sessionID(), doc.ID)
	e.publish(ctx, eventbus.WorkflowEvent{
		Type:       eventbus.WorkflowEventDocumentGenerated,
		UserID:     sc.caller.ID,
		TemplateID: sc.template.ID,
		SessionID:  sc.sessionID(),
		DocumentID: doc.ID,
	})

	return &GenerateResult{
		Status:     "success",
		Document:   text,
		DocumentID: doc.ID,
		TemplateID: sc.template.ID,
		SessionID:  sc.sessionID(),
	}, nil
}

// Progress 返回当前状态与剩余步骤数
func (e *Engine) Progress(ctx context.Context, req StepRequest) (*Progress, error) {
	sc, err := e.readScope(ctx, "Progress", req)
	if err != nil {
		return nil, err
	}
	return e.progress(ctx, sc)
}

// ListPlaceholders 返回模板占位符及当前范围内的内容
func (e *Engine) ListPlaceholders(ctx context.Context, req StepRequest) ([]model.Placeholder, error) {
	sc, err := e.readScope(ctx, "ListPlaceholders", req)
	if err != nil {
		return nil, err
	}
	return sc.catalog.Get(ctx, sc.template.ID)
}

// ListSessions 返回调用方自己的会话
func (e *Engine) ListSessions(ctx context.Context, credential string) ([]model.Session, error) {
	caller, err := e.caller(ctx, "ListSessions", credential)
	if err != nil {
		return nil, err
	}
	return e.repos.Sessions.ListByOwner(ctx, caller.ID)
}

// GetDocument 只有生成者本人可读取生成历史
func (e *Engine) GetDocument(ctx context.Context, credential string, id uint) (*model.GeneratedDocument, error) {
	caller, err := e.caller(ctx, "GetDocument", credential)
	if err != nil {
		return nil, err
	}
	doc, err := e.repos.Documents.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "document", id)
	}
	if doc.UserID != caller.ID {
		klog.Warningf("GetDocument: access denied, documentID=%d, userID=%d", id, caller.ID)
		return nil, ErrAccessDenied
	}
	return doc, nil
}

// ListDocuments 返回调用方最近的生成历史
func (e *Engine) ListDocuments(ctx context.Context, credential string) ([]model.GeneratedDocument, error) {
	caller, err := e.caller(ctx, "ListDocuments", credential)
	if err != nil {
		return nil, err
	}
	return e.repos.Documents.ListByUser(ctx, caller.ID, e.historyLimit)
}

func (e *Engine) caller(ctx context.Context, op, credential string) (*model.User, error) {
	if strings.TrimSpace(credential) == "" {
		klog.Warningf("%s: missing caller credential", op)
		return nil, ErrInvalidCaller
	}
	user, err := e.identity.Resolve(ctx, credential)
	if err != nil {
		if err = IdentityError(err); errors.Is(err, ErrInvalidCaller) {
			klog.Warningf("%s: resolve caller failed: %v", op, err)
		} else {
			klog.Errorf("%s: resolve caller failed: %v", op, err)
		}
		return nil, err
	}
	if user == nil {
		klog.Warningf("%s: resolve caller returned no user", op)
		return nil, ErrInvalidCaller
	}
	return user, nil
}

func (e *Engine) readScope(ctx context.Context, op string, req StepRequest) (*scope, error) {
	caller, err := e.caller(ctx, op, req.Credential)
	if err != nil {
		return nil, err
	}
	sc, err := e.resolveScope(ctx, caller, req.TemplateID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !sc.allowed(false) {
		klog.Warningf("%s: access denied, templateID=%d, userID=%d", op, sc.template.ID, caller.ID)
		return nil, ErrAccessDenied
	}
	return sc, nil
}

func (e *Engine) resolveScope(ctx context.Context, caller *model.User, templateID uint, sessionID string) (*scope, error) {
	sc := &scope{caller: caller}

	if sessionID != "" {
		session, err := e.repos.Sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, mapNotFound(err, "session", sessionID)
		}
		if session.OwnerID != caller.ID {
			klog.Warningf("resolveScope: session %s is not owned by userID=%d", sessionID, caller.ID)
			return nil, ErrAccessDenied
		}
		if templateID != 0 && templateID != session.TemplateID {
			return nil, fmt.Errorf("%w: session %s does not belong to template %d", ErrNotFound, sessionID, templateID)
		}
		templateID = session.TemplateID
		sc.session = session
		sc.sequence = NewSessionSequence(session.ID, e.repos.Sessions)
		sc.catalog = NewSessionCatalog(session.ID, e.repos.Placeholders, e.repos.Sessions)
	} else {
		if templateID == 0 {
			return nil, missing("template_id")
		}
		sc.sequence = NewTemplateSequence(e.repos.Prompts)
		sc.catalog = NewTemplateCatalog(e.repos.Placeholders)
	}

	template, err := e.repos.Templates.Get(ctx, templateID)
	if err != nil {
		return nil, mapNotFound(err, "template", templateID)
	}
	sc.template = template
	return sc, nil
}

func (e *Engine) progress(ctx context.Context, sc *scope) (*Progress, error) {
	total, err := e.repos.Prompts.Count(ctx, sc.template.ID)
	if err != nil {
		return nil, err
	}
	remaining, err := sc.sequence.Remaining(ctx, sc.template.ID)
	if err != nil {
		return nil, err
	}
	state := statemachine.DeriveState(total, remaining)
	if sc.session != nil {
		state = statemachine.SessionState(sc.session.State)
	}
	return &Progress{
		TemplateID:     sc.template.ID,
		SessionID:      sc.sessionID(),
		State:          string(state),
		TotalSteps:     total,
		RemainingSteps: remaining,
	}, nil
}

// moveSession 目标状态与当前相同时不做任何事
func (e *Engine) moveSession(ctx context.Context, session *model.Session, to statemachine.SessionState) error {
	from := statemachine.SessionState(session.State)
	if from == to {
		return nil
	}
	if err := e.stateMachine.Transition(from, to, session.ID); err != nil {
		return err
	}
	if err := e.repos.Sessions.UpdateState(ctx, session.ID, string(to), nil); err != nil {
		klog.Errorf("moveSession: update state failed, sessionID=%s, error=%v", session.ID, err)
		return err
	}
	session.State = string(to)
	return nil
}

// validateGenerate 检查会话能否经 ready 进入 generated，不写库
func (e *Engine) validateGenerate(session *model.Session) error {
	from := statemachine.SessionState(session.State)
	if from == statemachine.SessionStateGenerated {
		return nil
	}
	if from != statemachine.SessionStateReady {
		if err := e.stateMachine.ValidateTransition(from, statemachine.SessionStateReady); err != nil {
			return err
		}
	}
	return e.stateMachine.ValidateTransition(statemachine.SessionStateReady, statemachine.SessionStateGenerated)
}

// markGenerated 已生成的会话再次生成只刷新生成时间
func (e *Engine) markGenerated(ctx context.Context, session *model.Session) error {
	if err := e.moveSession(ctx, session, statemachine.StateAfterStep(statemachine.SessionState(session.State), 0)); err != nil {
		return err
	}
	if statemachine.SessionState(session.State) == statemachine.SessionStateReady {
		if err := e.stateMachine.Transition(statemachine.SessionStateReady, statemachine.SessionStateGenerated, session.ID); err != nil {
			return err
		}
	}
	now := time.Now()
	if err := e.repos.Sessions.UpdateState(ctx, session.ID, string(statemachine.SessionStateGenerated), &now); err != nil {
		klog.Errorf("markGenerated: update state failed, sessionID=%s, error=%v", session.ID, err)
		return err
	}
	session.State = string(statemachine.SessionStateGenerated)
	session.GeneratedAt = &now
	return nil
}

func (e *Engine) publish(ctx context.Context, event eventbus.WorkflowEvent) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, event); err != nil {
		klog.Warningf("publish workflow event failed: type=%s, templateID=%d, error=%v", event.Type, event.TemplateID, err)
	}
}

func mapNotFound(err error, kind string, id any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(kind, id)
	}
	return err
}
