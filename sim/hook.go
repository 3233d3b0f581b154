package sim

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
}

// Hookable defines an object that accepts Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// DetachHook removes a previously registered hook. It is a no-op if the
	// hook is not registered.
	DetachHook(hook Hook)
}

// HookPosSignalCommit triggers once per signal change applied by a commit.
// The item is a SignalChange.
var HookPosSignalCommit = &HookPos{Name: "SignalCommit"}

// HookPosInstantSettled triggers when a simulated instant reaches its fixed
// point. The item is the settled VTime.
var HookPosInstantSettled = &HookPos{Name: "InstantSettled"}

// HookPosTimeAdvance triggers when simulated time moves to the next scheduled
// instant. The item is the new VTime.
var HookPosTimeAdvance = &HookPos{Name: "TimeAdvance"}

// HookPosReset triggers when the engine is reset.
var HookPosReset = &HookPos{Name: "Reset"}

// A SignalChange describes one committed value change.
type SignalChange struct {
	Signal *Signal
	Time   VTime
	Old    uint64
	New    uint64
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if the hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility functions for types that implement the
// Hookable interface.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hooks = make([]Hook, 0)
	return h
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// DetachHook removes a hook.
func (h *HookableBase) DetachHook(hook Hook) {
	for i, registered := range h.hooks {
		if registered == hook {
			h.hooks = append(h.hooks[:i], h.hooks[i+1:]...)
			return
		}
	}
}

// NumHooks returns the number of registered hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook triggers the registered hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
