package simplecms

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Hooks let callers extend the version lifecycle without touching the core.
// Before hooks may veto an operation by returning an error; after hooks run
// once the write is stored and their errors are only logged.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	// Version lifecycle hooks
	BeforeVersionCreate []BeforeVersionCreateHook
	AfterVersionCreate  []AfterVersionCreateHook

	// Status hooks
	BeforeTransition []BeforeTransitionHook
	OnStatusChange   []StatusChangeHook

	// Content hooks
	AfterContentWrite []AfterContentWriteHook

	// Fault and error hooks
	OnIntegrityFault []IntegrityFaultHook
	OnError          []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{}
	StopChain bool // set to true to skip the remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforeVersionCreateHook is called with the fully built instance before it is stored
type BeforeVersionCreateHook func(hctx *HookContext, inst *Instance) error

// AfterVersionCreateHook is called after a version row is stored
type AfterVersionCreateHook func(hctx *HookContext, inst *Instance) error

// BeforeTransitionHook is called after the edge check and before the status is written
type BeforeTransitionHook func(hctx *HookContext, inst *Instance, to Status) error

// StatusChangeHook is called after a status transition is stored
type StatusChangeHook func(hctx *HookContext, inst *Instance, from, to Status) error

// AfterContentWriteHook is called after a content row is created, updated or deleted
type AfterContentWriteHook func(hctx *HookContext, contentID uuid.UUID, op string) error

// IntegrityFaultHook is called when tree rendering omits a node
type IntegrityFaultHook func(hctx *HookContext, fault *IntegrityFault)

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// Hook execution helpers

func (h *Hooks) executeBeforeVersionCreate(ctx context.Context, inst *Instance) error {
	if h == nil || len(h.BeforeVersionCreate) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeVersionCreate {
		if err := hook(hctx, inst); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterVersionCreate(ctx context.Context, inst *Instance) error {
	if h == nil || len(h.AfterVersionCreate) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterVersionCreate {
		if err := hook(hctx, inst); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeBeforeTransition(ctx context.Context, inst *Instance, to Status) error {
	if h == nil || len(h.BeforeTransition) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.BeforeTransition {
		if err := hook(hctx, inst, to); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeOnStatusChange(ctx context.Context, inst *Instance, from, to Status) error {
	if h == nil || len(h.OnStatusChange) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnStatusChange {
		if err := hook(hctx, inst, from, to); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeAfterContentWrite(ctx context.Context, contentID uuid.UUID, op string) error {
	if h == nil || len(h.AfterContentWrite) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterContentWrite {
		if err := hook(hctx, contentID, op); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeOnIntegrityFault(ctx context.Context, fault *IntegrityFault) {
	if h == nil {
		return
	}
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnIntegrityFault {
		hook(hctx, fault)
		if hctx.StopChain {
			break
		}
	}
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if h == nil {
		return
	}
	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// Common hook implementations

// LoggingHooks logs lifecycle events through the given logger
func LoggingHooks(logger *slog.Logger) *Hooks {
	return &Hooks{
		AfterVersionCreate: []AfterVersionCreateHook{
			func(hctx *HookContext, inst *Instance) error {
				logger.Debug("Version created", "kind", inst.Kind, "logical_id", inst.LogicalID, "version", inst.Version)
				return nil
			},
		},
		OnStatusChange: []StatusChangeHook{
			func(hctx *HookContext, inst *Instance, from, to Status) error {
				logger.Debug("Status changed", "instance_id", inst.ID, "from", from, "to", to)
				return nil
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				logger.Error("Operation failed", "op", operation, "err", err)
			},
		},
	}
}

// ValidationHook adds custom validation before a version is stored
func ValidationHook(validator func(*Instance) error) BeforeVersionCreateHook {
	return func(hctx *HookContext, inst *Instance) error {
		return validator(inst)
	}
}

// PublishGuard vetoes publishing for instances the predicate rejects
func PublishGuard(allow func(*Instance) error) BeforeTransitionHook {
	return func(hctx *HookContext, inst *Instance, to Status) error {
		if to != StatusPublished {
			return nil
		}
		return allow(inst)
	}
}
