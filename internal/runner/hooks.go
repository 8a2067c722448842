package runner

// Hooks receives lifecycle notifications from the runner loop: model-call
// start, tool-call start/end, and chain start/end. Hooks are purely an
// observer surface; the trace event log is emitted independently and does
// not rely on hooks being installed.
type Hooks interface {
	OnChainStart(prompt string)
	OnModelStart(model string, messages int)
	OnToolStart(name string, input string)
	OnToolEnd(name string, output string, err error)
	OnChainEnd(result string)
}

// NopHooks is the default no-op observer.
type NopHooks struct{}

func (NopHooks) OnChainStart(string)             {}
func (NopHooks) OnModelStart(string, int)        {}
func (NopHooks) OnToolStart(string, string)      {}
func (NopHooks) OnToolEnd(string, string, error) {}
func (NopHooks) OnChainEnd(string)               {}
