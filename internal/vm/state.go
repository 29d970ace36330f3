package vm

import (
	"fmt"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/samber/lo"
)

// State is an OpenNebula VM state code.
type State int

// VM states as reported in the STATE element.
const (
	StateInit           State = 0
	StatePending        State = 1
	StateHold           State = 2
	StateActive         State = 3
	StateStopped        State = 4
	StateSuspended      State = 5
	StateDone           State = 6
	StateFailed         State = 7
	StatePoweroff       State = 8
	StateUndeployed     State = 9
	StateCloning        State = 10
	StateCloningFailure State = 11
)

var stateNames = map[State]string{
	StateInit:           "INIT",
	StatePending:        "PENDING",
	StateHold:           "HOLD",
	StateActive:         "ACTIVE",
	StateStopped:        "STOPPED",
	StateSuspended:      "SUSPENDED",
	StateDone:           "DONE",
	StateFailed:         "FAILED",
	StatePoweroff:       "POWEROFF",
	StateUndeployed:     "UNDEPLOYED",
	StateCloning:        "CLONING",
	StateCloningFailure: "CLONING_FAILURE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN_STATE"
}

// LCMState is the lifecycle sub-state of an ACTIVE VM.
type LCMState int

// Lifecycle sub-states referenced by the transition table.
const (
	LCMRunning LCMState = 3
	LCMUnknown LCMState = 16
)

var lcmNames = []string{
	"LCM_INIT", "PROLOG", "BOOT", "RUNNING", "MIGRATE", "SAVE_STOP",
	"SAVE_SUSPEND", "SAVE_MIGRATE", "PROLOG_MIGRATE", "PROLOG_RESUME",
	"EPILOG_STOP", "EPILOG", "SHUTDOWN", "CANCEL", "FAILURE",
	"CLEANUP_RESUBMIT", "UNKNOWN", "HOTPLUG", "SHUTDOWN_POWEROFF",
	"BOOT_UNKNOWN", "BOOT_POWEROFF", "BOOT_SUSPENDED", "BOOT_STOPPED",
	"CLEANUP_DELETE", "HOTPLUG_SNAPSHOT", "HOTPLUG_NIC", "HOTPLUG_SAVEAS",
	"HOTPLUG_SAVEAS_POWEROFF", "HOTPLUG_SAVEAS_SUSPENDED", "SHUTDOWN_UNDEPLOY",
	"EPILOG_UNDEPLOY", "PROLOG_UNDEPLOY", "BOOT_UNDEPLOY",
}

func (s LCMState) String() string {
	if s >= 0 && int(s) < len(lcmNames) {
		return lcmNames[s]
	}
	return "UNKNOWN_LCM_STATE"
}

// Operation is one of the lifecycle operations manage_vm accepts.
type Operation string

const (
	OpStart     Operation = "start"
	OpStop      Operation = "stop"
	OpReboot    Operation = "reboot"
	OpTerminate Operation = "terminate"
)

// Operations lists the valid operations in their canonical order.
var Operations = []Operation{OpStart, OpStop, OpReboot, OpTerminate}

// ParseOperation normalises s (trim, lower-case) and reports whether it names
// a known operation. The normalised form is returned either way.
func ParseOperation(s string) (Operation, bool) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	return op, lo.Contains(Operations, op)
}

// Transition describes when an operation is legal and how it is issued.
type Transition struct {
	states       []State
	lcmStates    []LCMState
	message      string
	verb         string
	supportsHard bool
}

// transitions is never mutated after initialisation.
var transitions = map[Operation]Transition{
	OpStart: {
		states:    []State{StateStopped, StateSuspended, StatePoweroff, StateUndeployed},
		lcmStates: []LCMState{LCMUnknown},
		message:   "VM must be in STOPPED, SUSPENDED, UNDEPLOYED or POWEROFF state to start",
		verb:      "resume",
	},
	OpStop: {
		states:       []State{StateActive},
		lcmStates:    []LCMState{LCMRunning},
		message:      "VM must be in RUNNING state to stop",
		verb:         "poweroff",
		supportsHard: true,
	},
	OpReboot: {
		states:       []State{StateActive},
		lcmStates:    []LCMState{LCMRunning},
		message:      "VM must be in RUNNING state to reboot",
		verb:         "reboot",
		supportsHard: true,
	},
	OpTerminate: {
		states: []State{
			StatePending, StateHold, StateActive, StateStopped, StateSuspended,
			StatePoweroff, StateUndeployed, StateCloning, StateCloningFailure,
		},
		message:      "Cannot terminate VM state. Check its state with the get_vm_status tool.",
		verb:         "terminate",
		supportsHard: true,
	},
}

// TransitionFor returns the transition rule for op.
func TransitionFor(op Operation) (Transition, bool) {
	t, ok := transitions[op]
	return t, ok
}

// Verb is the onevm sub-command that performs the operation.
func (t Transition) Verb() string { return t.verb }

// SupportsHard reports whether the operation accepts --hard.
func (t Transition) SupportsHard() bool { return t.supportsHard }

// Message is the explanation reported when the transition is refused.
func (t Transition) Message() string { return t.message }

// Observed is the state of a VM as read from its descriptor.
type Observed struct {
	State  State
	LCM    LCMState
	HasLCM bool
}

// Check returns an IllegalStateTransition error when the observed state does
// not permit the transition. The sub-state is consulted only for ACTIVE VMs.
func (t Transition) Check(o Observed) *xmlresult.Error {
	if !lo.Contains(t.states, o.State) {
		return xmlresult.Errorf(xmlresult.IllegalStateTransition,
			"%s (current state: %d %s)", t.message, int(o.State), o.State)
	}
	if o.State != StateActive || len(t.lcmStates) == 0 {
		return nil
	}
	if !o.HasLCM {
		return xmlresult.Errorf(xmlresult.IllegalStateTransition,
			"%s (current LCM state: not reported)", t.message)
	}
	if !lo.Contains(t.lcmStates, o.LCM) {
		return xmlresult.Errorf(xmlresult.IllegalStateTransition,
			"%s (current LCM state: %d %s)", t.message, int(o.LCM), o.LCM)
	}
	return nil
}

// validOperations renders the accepted operation names for error messages.
func validOperations() string {
	return strings.Join(lo.Map(Operations, func(op Operation, _ int) string {
		return string(op)
	}), ", ")
}

func (o Observed) String() string {
	if !o.HasLCM {
		return fmt.Sprintf("STATE=%d", int(o.State))
	}
	return fmt.Sprintf("STATE=%d LCM_STATE=%d", int(o.State), int(o.LCM))
}
