// Package scripting runs sandboxed GopherLua layout scripts against an
// editing session. Scripts see a single dungeon table and nothing that can
// reach the filesystem or the process.
package scripting

import (
	"context"
	"errors"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// script run when the configuration leaves it at zero.
const DefaultInstructionLimit = 100_000

// ErrInstructionLimit is reported when a script runs out of opcodes.
var ErrInstructionLimit = errors.New("scripting: instruction limit exceeded")

// opcodeBudget is a context that cancels itself after Done() has been called
// limit times. GopherLua's mainLoopWithContext calls Done() once per opcode.
type opcodeBudget struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
	exhausted atomic.Bool
}

func (b *opcodeBudget) Done() <-chan struct{} {
	if b.remaining.Add(-1) <= 0 && !b.exhausted.Swap(true) {
		b.cancel()
	}
	return b.Context.Done()
}

// Err reports ErrInstructionLimit instead of context.Canceled when the
// budget, rather than the parent, ended the run.
func (b *opcodeBudget) Err() error {
	if b.exhausted.Load() {
		return ErrInstructionLimit
	}
	return b.Context.Err()
}

func newOpcodeBudget(parent context.Context, limit int) (*opcodeBudget, context.CancelFunc) {
	base, cancel := context.WithCancel(parent)
	b := &opcodeBudget{Context: base, cancel: cancel}
	b.remaining.Store(int64(limit))
	return b, cancel
}

// NewSandboxedState creates a GopherLua LState with:
//   - Only safe stdlib loaded: base, table, string, math
//   - Dangerous globals removed: dofile, loadfile, load, loadstring, collectgarbage, require
//   - Execution limited to at most instLimit Lua opcodes, and stopped when ctx is done
//
// Precondition: ctx must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: Returns a non-nil LState ready for RegisterModules, and the
// cancel function of its budget. The caller must call cancel and L.Close().
func NewSandboxedState(ctx context.Context, instLimit int) (*lua.LState, context.CancelFunc) {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// OpenBase leaves loaders and the collector reachable.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	budget, cancel := newOpcodeBudget(ctx, limit)
	L.SetContext(budget)
	return L, cancel
}
