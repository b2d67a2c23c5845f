// Copyright © 2020 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package tui

import (
	"fmt"

	"github.com/VladimirMarkelov/clui"
	term "github.com/nsf/termbox-go"
)

const (
	// WindowWidth is our desired terminal width
	WindowWidth = 100
	// WindowHeight is our desired terminal height
	WindowHeight = 30

	// AutoSize is shortcut for clui.AutoSize flag
	AutoSize = clui.AutoSize

	// Fixed is shortcut for clui.Fixed flag
	Fixed = clui.Fixed

	// BorderNone is shortcut for clui.BorderNone flag
	BorderNone = clui.BorderNone

	// AlignLeft is shortcut for clui.AlignLeft flag
	AlignLeft = clui.AlignLeft

	// AlignRight is shortcut for clui.AlignRight flag
	AlignRight = clui.AlignRight
)

const (
	columnSpacer       = `  `
	columnWidthDefault = 10
)

type columnInfo struct {
	title        string
	rightJustify bool
	minWidth     int
}

// given the columnInfo type, return the length and fmt string
func getColumnFormat(info columnInfo) (int, string) {
	l := len(info.title)
	if info.minWidth > l {
		l = info.minWidth
	}
	justify := "-"
	if info.rightJustify {
		justify = ""
	}

	return l, fmt.Sprintf("%%%s%d.%ds", justify, l, l)
}

// errorLabelBg/errorLabelFg are the theme colors newEditField's
// validation label draws with once a theme has been loaded.
var (
	errorLabelBg term.Attribute
	errorLabelFg term.Attribute
)

func newEditField(frame *clui.Frame, validation bool, cb func(k term.Key, ch rune) bool) (*clui.EditField, *clui.Label) {
	var label *clui.Label

	height := 2
	if validation {
		height = 1
	}

	iframe := clui.CreateFrame(frame, 5, height, BorderNone, Fixed)
	iframe.SetPack(clui.Vertical)
	edit := clui.CreateEditField(iframe, 1, "", Fixed)

	if validation {
		label = clui.CreateLabel(iframe, AutoSize, 1, "", Fixed)
		label.SetVisible(false)
		label.SetBackColor(errorLabelBg)
		label.SetTextColor(errorLabelFg)
	}

	if cb != nil {
		edit.OnKeyPress(cb)
	}

	return edit, label
}

func newWindow(title string) *clui.Window {
	sw, sh := clui.ScreenSize()

	x := (sw - WindowWidth) / 2
	y := (sh - WindowHeight) / 2

	clui.WindowManager().SetBorder(clui.BorderNone)
	win := clui.AddWindow(x, y, WindowWidth, WindowHeight, title)
	win.SetTitleButtons(0)
	win.SetSizable(false)
	win.SetMovable(false)

	win.OnScreenResize(func(evt clui.Event) {
		ww, wh := win.Size()
		win.SetPos((evt.Width-ww)/2, (evt.Height-wh)/2)
		win.ResizeChildren()
		win.PlaceChildren()
	})

	return win
}
