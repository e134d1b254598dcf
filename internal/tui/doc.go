// Package tui implements the Fastline terminal user interface.
//
// Built with Charmbracelet's BubbleTea, Lipgloss and Bubbles libraries.
//
// Component architecture:
//
//	model.go     — root model, message routing, Init/Update/View
//	theme.go     — color palettes + style construction
//	keys.go      — key bindings and help
//	header.go    — top bar with fasting status, footer with hints
//	timeline.go  — month calendar, one 24-hour bar per day
//	detail.go    — fasts and segments of the selected day
//	statsview.go — summary numbers + recent days chart
//	helpers.go   — bar geometry, truncation, etc.
package tui
