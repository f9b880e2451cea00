package modules

import (
	"context"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// SourceLua attributes ledger entries to scripts.
const SourceLua = "lua"

// Commander runs named bed commands.
type Commander interface {
	InvokeWithSource(ctx context.Context, name string, args map[string]any, idempotencyKey, source string) error
	HasCommand(name string) bool
}

// BedModule provides bed.command, bed.latest and bed.has_command to Lua.
type BedModule struct {
	commander Commander
	latest    func() *sleepiq.Bed
}

// NewBedModule creates a bed module. latest may be nil.
func NewBedModule(commander Commander, latest func() *sleepiq.Bed) *BedModule {
	return &BedModule{commander: commander, latest: latest}
}

// Loader is the module loader for Lua
func (m *BedModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "command", L.NewFunction(m.command))
	L.SetField(mod, "latest", L.NewFunction(m.latestBed))
	L.SetField(mod, "has_command", L.NewFunction(m.hasCommand))

	L.Push(mod)
	return 1
}

// command(name, args, key) returns true, or nil and an error message.
func (m *BedModule) command(L *lua.LState) int {
	name := L.CheckString(1)
	args := LuaTableToMap(L.OptTable(2, L.NewTable()))
	key := L.OptString(3, "")

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log.Debug().Str("command", name).Msg("Running bed command from Lua")

	if err := m.commander.InvokeWithSource(ctx, name, args, key, SourceLua); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// latest() returns the last snapshot as a table, or nil.
func (m *BedModule) latestBed(L *lua.LState) int {
	if m.latest == nil {
		L.Push(lua.LNil)
		return 1
	}
	bed := m.latest()
	if bed == nil {
		L.Push(lua.LNil)
		return 1
	}

	tbl, err := StructToLuaTable(L, bed)
	if err != nil {
		L.RaiseError("bed.latest: %s", err.Error())
		return 0
	}
	L.Push(tbl)
	return 1
}

func (m *BedModule) hasCommand(L *lua.LState) int {
	L.Push(lua.LBool(m.commander.HasCommand(L.CheckString(1))))
	return 1
}
