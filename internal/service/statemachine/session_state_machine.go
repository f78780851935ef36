package statemachine

import (
	"fmt"

	"k8s.io/klog/v2"
)

// SessionState 定义生成会话的所有可能状态
type SessionState string

const (
	SessionStateNotStarted SessionState = "not_started" // 已创建，尚未完成任何步骤
	SessionStateInProgress SessionState = "in_progress" // 至少完成一个步骤
	SessionStateReady      SessionState = "ready"       // 所有步骤已完成，可生成
	SessionStateGenerated  SessionState = "generated"   // 已生成过文档
)

// SessionTransition 定义会话状态迁移
type SessionTransition struct {
	From SessionState
	To   SessionState
}

// SessionStateMachine 会话状态机
type SessionStateMachine struct {
	allowedTransitions map[SessionTransition]bool
}

// NewSessionStateMachine 创建新的会话状态机
func NewSessionStateMachine() *SessionStateMachine {
	sm := &SessionStateMachine{
		allowedTransitions: make(map[SessionTransition]bool),
	}

	// not_started -> in_progress -> ready -> generated
	// not_started -> ready（模板没有步骤）
	// ready/generated -> in_progress（模板新增了步骤）
	transitions := []SessionTransition{
		{SessionStateNotStarted, SessionStateInProgress},
		{SessionStateNotStarted, SessionStateReady},
		{SessionStateInProgress, SessionStateReady},
		{SessionStateReady, SessionStateGenerated},

		{SessionStateReady, SessionStateInProgress},
		{SessionStateGenerated, SessionStateInProgress},
	}

	for _, t := range transitions {
		sm.allowedTransitions[t] = true
	}

	return sm
}

// CanTransition 检查状态迁移是否合法
func (sm *SessionStateMachine) CanTransition(from, to SessionState) bool {
	if from == to {
		return false
	}
	return sm.allowedTransitions[SessionTransition{From: from, To: to}]
}

// ValidateTransition 验证状态迁移并返回错误
func (sm *SessionStateMachine) ValidateTransition(from, to SessionState) error {
	if !sm.CanTransition(from, to) {
		return &InvalidStateTransitionError{
			From: string(from),
			To:   string(to),
		}
	}
	return nil
}

// Transition 执行状态迁移（带日志）
func (sm *SessionStateMachine) Transition(from, to SessionState, sessionID string) error {
	if err := sm.ValidateTransition(from, to); err != nil {
		klog.V(6).Infof("会话状态迁移被拒绝: sessionID=%s, %s -> %s, error=%v",
			sessionID, from, to, err)
		return err
	}

	klog.V(6).Infof("会话状态迁移成功: sessionID=%s, %s -> %s", sessionID, from, to)
	return nil
}

// InvalidStateTransitionError 无效的状态迁移错误
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid session state transition: %s -> %s", e.From, e.To)
}

// DeriveState 模板级进度没有持久化状态，根据步骤数推导
func DeriveState(total, remaining int64) SessionState {
	switch {
	case remaining == 0:
		return SessionStateReady
	case remaining == total:
		return SessionStateNotStarted
	default:
		return SessionStateInProgress
	}
}

// StateAfterStep 完成一个步骤后会话应处的状态
func StateAfterStep(current SessionState, remaining int64) SessionState {
	if remaining > 0 {
		return SessionStateInProgress
	}
	if current == SessionStateGenerated {
		return SessionStateGenerated
	}
	return SessionStateReady
}
