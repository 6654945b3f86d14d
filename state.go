package osrevk

import "fmt"

// State tracks how far backend bring-up has progressed. States only move
// forward during creation; a failure tears everything down and returns to
// Uninitialized. Resize re-enters at SwapchainReady.
type State int

const (
	Uninitialized State = iota
	LibraryLoaded
	InstanceCreated
	DeviceSelected
	DeviceCreated
	SwapchainReady
	PipelineReady
	Recording
)

var stateNames = [...]string{
	Uninitialized:   "uninitialized",
	LibraryLoaded:   "library-loaded",
	InstanceCreated: "instance-created",
	DeviceSelected:  "device-selected",
	DeviceCreated:   "device-created",
	SwapchainReady:  "swapchain-ready",
	PipelineReady:   "pipeline-ready",
	Recording:       "recording",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Initialized reports whether the backend can accept frame calls.
func (s State) Initialized() bool {
	return s == Recording
}
