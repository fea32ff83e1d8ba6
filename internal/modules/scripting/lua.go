package scripting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Shopify/go-lua"
)

// argsGlobal is the global table macros read their arguments from.
const argsGlobal = "args"

var sandboxLibraries = []lua.RegistryFunction{
	{Name: "_G", Function: lua.BaseOpen},
	{Name: "table", Function: lua.TableOpen},
	{Name: "string", Function: lua.StringOpen},
	{Name: "math", Function: lua.MathOpen},
}

// hookInterval is how many VM instructions run between budget checks.
const hookInterval = 1000

// stepLimit caps the instructions one macro run may execute.
var stepLimit = 50_000_000

var (
	errRunCancelled = errors.New("macro run cancelled")
	errStepLimit    = errors.New("macro exceeded its step limit")
)

// blockedGlobals are base library functions that reach the filesystem.
var blockedGlobals = []string{"dofile", "loadfile"}

func newSandbox() *lua.State {
	state := lua.NewState()
	for _, lib := range sandboxLibraries {
		lua.Require(state, lib.Name, lib.Function, true)
		state.Pop(1)
	}
	for _, name := range blockedGlobals {
		state.PushNil()
		state.SetGlobal(name)
	}
	return state
}

// compile reports whether source parses as a Lua chunk.
func compile(source string) error {
	state := newSandbox()
	if err := lua.LoadString(state, source); err != nil {
		return luaError(state, err)
	}
	state.Pop(1)
	return nil
}

// run executes source with args bound to the args global and returns the
// chunk's first return value converted to Go. The run stops with
// errRunCancelled once ctx is done and with errStepLimit after stepLimit
// instructions.
func run(ctx context.Context, source string, args map[string]any) (any, error) {
	state := newSandbox()
	pushValue(state, args)
	state.SetGlobal(argsGlobal)

	if err := lua.LoadString(state, source); err != nil {
		return nil, luaError(state, err)
	}

	var aborted error
	steps := 0
	lua.SetDebugHook(state, func(l *lua.State, _ lua.Debug) {
		steps += hookInterval
		switch {
		case ctx.Err() != nil:
			aborted = fmt.Errorf("%w: %w", errRunCancelled, ctx.Err())
		case steps >= stepLimit:
			aborted = errStepLimit
		default:
			return
		}
		l.PushString(aborted.Error())
		l.Error()
	}, lua.MaskCount, hookInterval)

	if err := state.ProtectedCall(0, 1, 0); err != nil {
		if aborted != nil {
			return nil, aborted
		}
		return nil, luaError(state, err)
	}
	value := luaToGo(state, -1)
	state.Pop(1)
	return value, nil
}

func luaError(state *lua.State, err error) error {
	if msg, ok := state.ToString(-1); ok && msg != "" {
		state.Pop(1)
		return fmt.Errorf("%s", msg)
	}
	return err
}

func pushValue(state *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		state.PushNil()
	case string:
		state.PushString(v)
	case bool:
		state.PushBoolean(v)
	case int:
		state.PushInteger(v)
	case int64:
		state.PushNumber(float64(v))
	case float64:
		state.PushNumber(v)
	case []any:
		state.CreateTable(len(v), 0)
		for i, item := range v {
			pushValue(state, item)
			state.RawSetInt(-2, i+1)
		}
	case map[string]any:
		state.CreateTable(0, len(v))
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			pushValue(state, v[key])
			state.SetField(-2, key)
		}
	default:
		state.PushString(fmt.Sprint(v))
	}
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	output := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
