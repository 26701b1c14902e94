// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for VB6 to .NET conversion:
//  1. [InputView] : Enter a GitHub repository URL or a ZIP file path
//  2. [ConfirmView] : Confirm the submission
//  3. [ConvertView] : Monitor stage status, overall progress, and the live event log
//  4. [ResultView] : Download the converted archive or restart
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Session snapshots flow through the controller's update channel, pumped one message at a time so rendering never blocks the transport.
//
// Keyboard navigation uses short bindings (tab, enter, esc, y/n, d, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
