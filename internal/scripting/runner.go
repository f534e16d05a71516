package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/editor"
)

// Runner executes layout scripts against one editing session. Each run gets a
// fresh sandbox, so no Lua state survives between scripts.
//
// Runner is not safe for concurrent use; the session it drives is single-owner.
type Runner struct {
	session   *editor.Session
	logger    *zap.Logger
	instLimit int
}

// NewRunner creates a Runner.
//
// Precondition: session and logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
func NewRunner(session *editor.Session, logger *zap.Logger, instLimit int) *Runner {
	return &Runner{session: session, logger: logger, instLimit: instLimit}
}

// RunString executes src. name labels the chunk in error messages and logs.
//
// Postcondition: Returns a non-nil error on syntax errors, runtime errors,
// when the instruction limit is exceeded, or when ctx is done. Edits made before the failure remain.
func (r *Runner) RunString(ctx context.Context, name, src string) error {
	start := time.Now()
	L, cancel := NewSandboxedState(ctx, r.instLimit)
	defer cancel()
	defer L.Close()
	RegisterModules(L, r.session, r.logger)

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		r.logger.Warn("scripting: Lua runtime error", zap.String("script", name), zap.Error(err))
		return fmt.Errorf("scripting: running %q: %w", name, err)
	}
	r.logger.Debug("script finished", zap.String("script", name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// RunFile executes the Lua file at path.
//
// Precondition: path must name a readable file.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return r.RunString(ctx, filepath.Base(path), string(data))
}

// RunDir executes every *.lua file in dir in lexicographic order, stopping at
// the first failure.
//
// Precondition: dir must be a readable directory.
func (r *Runner) RunDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := r.RunFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}
