package actions

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// ArgBedID selects the target bed in any command.
const ArgBedID = "bed_id"

// Handler runs a command against one bed.
type Handler func(ctx *Context, bedID string, args map[string]any) error

// Command is a named bed command and the arguments it accepts besides bed_id.
type Command struct {
	Name string
	Args []string
	Run  Handler
}

// Execute resolves the target bed and runs the command.
func (c *Command) Execute(ctx *Context, args map[string]any) error {
	for name := range args {
		if name != ArgBedID && !slices.Contains(c.Args, name) {
			return fmt.Errorf("%w: %s does not take %q (accepts %s)",
				sleepiq.ErrInvalidArgument, c.Name, name, strings.Join(c.Args, ", "))
		}
	}

	bedID, err := ctx.BedID(args)
	if err != nil {
		return err
	}
	return c.Run(ctx, bedID, args)
}

// Registry holds the known commands by name.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
	}
}

// Register adds a command. Names must be unique.
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Run == nil {
		return errors.New("command needs a name and a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[cmd.Name]; exists {
		return fmt.Errorf("command %q already registered", cmd.Name)
	}
	r.commands[cmd.Name] = &cmd
	return nil
}

// Get retrieves a command by name
func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// Names returns all registered command names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.commands))
}
