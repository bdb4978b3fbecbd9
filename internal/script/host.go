// Package script runs Lua scripts against a System. Every call surface
// function is a Lua global of the same name.
package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/austinkregel/local-media/bgmd/internal/bgm"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// Host is a Lua state bound to one System
type Host struct {
	L      *lua.LState
	sys    *bgm.System
	out    io.Writer
	logger zerolog.Logger
}

// NewHost creates a Lua state with the call surface installed. print
// writes to out.
func NewHost(sys *bgm.System, out io.Writer, logger zerolog.Logger) *Host {
	h := &Host{
		L:      lua.NewState(),
		sys:    sys,
		out:    out,
		logger: logger.With().Str("component", "script").Logger(),
	}

	for _, fn := range bgm.Funcs() {
		h.L.SetGlobal(fn.Name, h.L.NewFunction(h.bind(fn)))
	}
	h.L.SetGlobal("Sleep", h.L.NewFunction(h.sleep))
	h.L.SetGlobal("AttributeNames", h.L.NewFunction(h.attributeNames))
	h.L.SetGlobal("print", h.L.NewFunction(h.print))
	return h
}

// Close releases the Lua state
func (h *Host) Close() {
	h.L.Close()
}

// RunFile executes a script file. Cancelling ctx stops the script.
func (h *Host) RunFile(ctx context.Context, path string) error {
	h.L.SetContext(ctx)
	h.logger.Debug().Str("script", path).Msg("Running script")
	if err := h.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to run %s: %w", path, err)
	}
	return nil
}

// RunString executes a chunk of Lua source
func (h *Host) RunString(ctx context.Context, src string) error {
	h.L.SetContext(ctx)
	if err := h.L.DoString(src); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	return nil
}

func (h *Host) bind(fn bgm.Func) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		values := make([]any, top)
		for i := 1; i <= top; i++ {
			switch v := L.Get(i).(type) {
			case lua.LNumber:
				values[i-1] = float64(v)
			case lua.LString:
				values[i-1] = string(v)
			case lua.LBool:
				values[i-1] = bool(v)
			default:
				L.ArgError(i, "expected number or string, got "+v.Type().String())
				return 0
			}
		}

		result, err := fn.Call(h.sys, values)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		L.Push(toLua(result))
		return 1
	}
}

func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case bool:
		return lua.LBool(x)
	case float64:
		return lua.LNumber(x)
	case int:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	}
	return lua.LNil
}

// sleep blocks for the given milliseconds or until the script is cancelled
func (h *Host) sleep(L *lua.LState) int {
	d := time.Duration(float64(L.CheckNumber(1)) * float64(time.Millisecond))
	ctx := L.Context()
	if ctx == nil {
		time.Sleep(d)
		return 0
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		L.RaiseError("interrupted")
	}
	return 0
}

func (h *Host) attributeNames(L *lua.LState) int {
	names := L.NewTable()
	for _, name := range bgm.AttributeNames() {
		names.Append(lua.LString(name))
	}
	L.Push(names)
	return 1
}

func (h *Host) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(h.out, strings.Join(parts, "\t"))
	return 0
}
