package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// luaTimeout bounds the run time of a configuration script.
const luaTimeout = 2 * time.Second

// LuaLoader loads configuration from a Lua script. The script runs in a
// sandbox with only the base, table, string and math libraries and must
// return a table, or assign one to the global "config".
//
//	return {
//	  timing = { base_term = "200ms", keys = { { key = "r1c3", tapping_term = "170ms" } } },
//	}
type LuaLoader struct {
	fs   FileSystem
	path string
}

// NewLuaLoader creates a new Lua loader for the given path.
func NewLuaLoader(path string) *LuaLoader {
	return NewLuaLoaderWithFS(DefaultFS(), path)
}

// NewLuaLoaderWithFS creates a Lua loader with a custom file system.
func NewLuaLoaderWithFS(fs FileSystem, path string) *LuaLoader {
	return &LuaLoader{fs: fs, path: path}
}

// Load runs the script at the configured path.
func (l *LuaLoader) Load() (map[string]any, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}
	return runLua(l.path, string(data))
}

// LoadFromReader runs a script read from r.
func (l *LuaLoader) LoadFromReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return runLua("<reader>", string(data))
}

func runLua(source, code string) (result map[string]any, err error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibraries(L)

	ctx, cancel := context.WithTimeout(context.Background(), luaTimeout)
	defer cancel()
	L.SetContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = &ParseError{Path: source, Message: fmt.Sprintf("lua panic: %v", r)}
		}
	}()

	fn, err := L.LoadString(code)
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}

	ret := L.Get(-1)
	L.Pop(1)
	if ret == lua.LNil {
		ret = L.GetGlobal("config")
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, &ParseError{Path: source, Message: fmt.Sprintf("script must return a table, got %s", ret.Type())}
	}

	m, ok := fromLua(tbl, 0).(map[string]any)
	if !ok {
		return nil, &ParseError{Path: source, Message: "top-level table must have string keys"}
	}
	return m, nil
}

func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// maxDepth bounds table nesting, which also breaks reference cycles.
const maxDepth = 16

// fromLua converts a Lua value. Sequences become []any, other tables
// map[string]any; integral numbers become int64.
func fromLua(v lua.LValue, depth int) any {
	switch lv := v.(type) {
	case lua.LBool:
		return bool(lv)
	case lua.LNumber:
		f := float64(lv)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(lv)
	case *lua.LTable:
		if depth >= maxDepth {
			return nil
		}
		if n := lv.Len(); n > 0 {
			count := 0
			lv.ForEach(func(_, _ lua.LValue) { count++ })
			if count == n {
				arr := make([]any, n)
				for i := 1; i <= n; i++ {
					arr[i-1] = fromLua(lv.RawGetInt(i), depth+1)
				}
				return arr
			}
		}
		m := make(map[string]any)
		lv.ForEach(func(k, val lua.LValue) {
			m[k.String()] = fromLua(val, depth+1)
		})
		return m
	default:
		return nil
	}
}
