package app

import (
	"github.com/aurafin/aura/internal/intent"
	"github.com/aurafin/aura/pkg/types"
)

// event is anything the reducer can apply: user commands and collaborator
// completions alike. Events are immutable once posted.
type event interface{ isEvent() }

// User commands.
type cmdStartRecording struct{}
type cmdStopRecording struct{}
type cmdSaveRule struct{ text string }
type cmdConfirmTransfer struct{}
type cmdDeclineTransfer struct{}
type cmdSubmitOTP struct{ code string }
type cmdCancelOTP struct{}
type cmdSimulateRule struct{ payload map[string]string }
type cmdRefreshBalance struct{}
type cmdTriggerTransaction struct{}

// Collaborator completions. Each carries the error from its operation so the
// reducer is the single place failures turn into status text.
type evInterim struct {
	session string
	seq     int
	text    string
}

type evFinal struct {
	session    string
	transcript string
	err        error
}

type evResolved struct {
	session string
	res     intent.Resolution
	err     error
}

type evRuleSaved struct {
	rule types.Rule
	err  error
}

type evOTPIssued struct {
	session types.OTPSession
	err     error
}

type evTransferDone struct {
	result types.TransferResult
	err    error
}

type evBalance struct {
	balance float64
	err     error
}

type evSimulated struct {
	messages []string
	err      error
}

type evTriggered struct {
	err error
}

func (cmdStartRecording) isEvent()     {}
func (cmdStopRecording) isEvent()      {}
func (cmdSaveRule) isEvent()           {}
func (cmdConfirmTransfer) isEvent()    {}
func (cmdDeclineTransfer) isEvent()    {}
func (cmdSubmitOTP) isEvent()          {}
func (cmdCancelOTP) isEvent()          {}
func (cmdSimulateRule) isEvent()       {}
func (cmdRefreshBalance) isEvent()     {}
func (cmdTriggerTransaction) isEvent() {}
func (evInterim) isEvent()             {}
func (evFinal) isEvent()               {}
func (evResolved) isEvent()            {}
func (evRuleSaved) isEvent()           {}
func (evOTPIssued) isEvent()           {}
func (evTransferDone) isEvent()        {}
func (evBalance) isEvent()             {}
func (evSimulated) isEvent()           {}
func (evTriggered) isEvent()           {}
