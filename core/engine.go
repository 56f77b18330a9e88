package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModule is returned when a module name resolves to nothing registered.
var ErrUnknownModule = errors.New("module is not valid or not implemented")

// Module is the interface that all reconnaissance modules must implement.
type Module interface {
	Name() string
	Description() string
	Run(ctx context.Context, rc *Context) (*Result, error)
}

// KeyedModule is implemented by modules that read API keys from the configuration.
type KeyedModule interface {
	Services() []string
}

// Finding is one typed unit of discovered information.
type Finding struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Result is the envelope produced by a single module run.
type Result struct {
	Target   string    `json:"target"`
	Module   string    `json:"module"`
	Findings []Finding `json:"findings"`
}

// Engine is the static name to module registry.
type Engine struct {
	modules map[string]Module
	aliases map[string]string
	order   []string
}

// NewEngine initializes an Engine instance.
func NewEngine() *Engine {
	return &Engine{
		modules: make(map[string]Module),
		aliases: make(map[string]string),
	}
}

// RegisterModule adds a module to the engine. A module named "x_recon" is also
// reachable through the short alias "x".
func (e *Engine) RegisterModule(m Module) {
	name := m.Name()
	if _, exists := e.modules[name]; !exists {
		e.order = append(e.order, name)
	}
	e.modules[name] = m
	if alias := Alias(name); alias != name {
		e.aliases[alias] = name
	}
}

// Alias returns the short name of a module ("domain_recon" -> "domain").
func Alias(name string) string {
	return strings.TrimSuffix(name, "_recon")
}

// Resolve maps a canonical name or alias to the registered module.
func (e *Engine) Resolve(name string) (Module, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if mod, ok := e.modules[key]; ok {
		return mod, nil
	}
	if canonical, ok := e.aliases[key]; ok {
		return e.modules[canonical], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
}

// Names returns the canonical module names in registration order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Modules returns the registered modules in registration order.
func (e *Engine) Modules() []Module {
	mods := make([]Module, 0, len(e.order))
	for _, name := range e.order {
		mods = append(mods, e.modules[name])
	}
	return mods
}

// RunModule executes a module by name. The returned result is never nil once the
// module is resolved, so callers can persist whatever was found before a failure.
func (e *Engine) RunModule(ctx context.Context, name string, rc *Context) (res *Result, err error) {
	mod, err := e.Resolve(name)
	if err != nil {
		return nil, err
	}
	rc.result.Module = mod.Name()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module %s panicked: %v", mod.Name(), r)
		}
		if res == nil {
			res = rc.Result()
		}
	}()

	res, err = mod.Run(ctx, rc)
	if err != nil {
		return res, fmt.Errorf("module %s: %w", mod.Name(), err)
	}
	return res, nil
}
