package ui

import (
	"github.com/desertthunder/convx/internal/session"
)

// sessionUpdateMsg carries one session snapshot from the controller's update
// channel.
type sessionUpdateMsg session.Session

// sessionDoneMsg signals that the controller's update channel closed; final
// holds the terminal snapshot and err any transport-level failure.
type sessionDoneMsg struct {
	final session.Session
	err   error
}

// startFailedMsg signals that Start rejected the input before any transport
// call was made.
type startFailedMsg struct {
	err error
}

// downloadDoneMsg signals that the converted archive finished downloading.
type downloadDoneMsg struct {
	path string
	err  error
}
