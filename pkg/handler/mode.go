package handler

import (
	"context"

	"github.com/getmockd/mockhandler/pkg/plugin"
)

// RunOptions are the options the test harness passes to Before and After.
// They are forwarded verbatim to manual start/stop functions and are
// otherwise unused.
type RunOptions map[string]any

// LifecycleFunc is a caller-supplied start or stop function.
type LifecycleFunc func(ctx context.Context, opts RunOptions) error

// MockServer is the full descriptor accepted as Options.MockServer. Setting
// Start or Stop hands the lifecycle to the caller and Plugin is ignored;
// otherwise Plugin is served by listeners the Handler owns. Init is
// accepted for compatibility and not used.
type MockServer struct {
	Plugin plugin.Plugin
	Init   any
	Start  LifecycleFunc
	Stop   LifecycleFunc
}

// Mode is the operating mode resolved at construction. It is one of
// ManualMode, PluginMode or InactiveMode.
type Mode interface {
	String() string
	isMode()
}

// ManualMode delegates Before and After to caller functions. Either may be nil.
type ManualMode struct {
	Start LifecycleFunc
	Stop  LifecycleFunc
}

// PluginMode runs listeners owned by the Handler, serving Plugin.
type PluginMode struct {
	Plugin plugin.Plugin
}

// InactiveMode means no mock server integration was requested.
type InactiveMode struct{}

func (ManualMode) String() string   { return "manual" }
func (PluginMode) String() string   { return "plugin" }
func (InactiveMode) String() string { return "inactive" }

func (ManualMode) isMode()   {}
func (PluginMode) isMode()   {}
func (InactiveMode) isMode() {}
