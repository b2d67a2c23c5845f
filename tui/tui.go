// Copyright © 2019 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package tui

import (
	"fmt"

	"github.com/VladimirMarkelov/clui"
	"github.com/nsf/termbox-go"

	"github.com/diskdevmgr/ddm/ddmclient"
	"github.com/diskdevmgr/ddm/ddmlog"
)

// Page identifiers, used by Tui.gotoPage to switch the visible page.
const (
	PageDevices = iota
	PagePartition
)

// Page is implemented by every screen the Tui drives: a devices
// browser or a single-partition editor.
type Page interface {
	GetID() int
	GetWindow() *clui.Window
	GetActivated() clui.Control
	Activate()
	DeActivate()
}

// Tui is the DDM TUI frontend: a thin clui app shell wrapping
// ddmclient.Client calls behind a device list and a partition editor.
type Tui struct {
	client   *ddmclient.Client
	pages    []Page
	currPage Page

	paniced chan error
}

// New creates a new Tui frontend bound to a ddmd boundary API client.
func New(client *ddmclient.Client) *Tui {
	return &Tui{client: client, pages: []Page{}}
}

// Run starts the clui main loop, opening the devices page first, and
// blocks until the user quits.
func (tui *Tui) Run() error {
	clui.InitLibrary()
	defer clui.DeinitLibrary()

	if !clui.SetCurrentTheme("default") {
		ddmlog.Warning("tui: could not set default theme, continuing with clui's built-in default")
	}

	errorLabelBg = clui.RealColor(clui.ColorDefault, "ErrorLabel", "Back")
	errorLabelFg = clui.RealColor(clui.ColorDefault, "ErrorLabel", "Text")

	tui.paniced = make(chan error, 1)

	devicesPage, err := newDevicesPage(tui)
	if err != nil {
		return fmt.Errorf("tui: building devices page: %w", err)
	}
	tui.pages = append(tui.pages, devicesPage)

	tui.gotoPage(PageDevices)

	var paniced error
	go func() {
		if paniced = <-tui.paniced; paniced != nil {
			clui.Stop()
			ddmlog.ErrorError(paniced)
		}
	}()

	clui.MainLoop()

	if paniced != nil {
		return paniced
	}
	return nil
}

// openPartitionPage lazily builds and switches to the single
// partition-editor page for deviceID/nodeID, replacing whatever
// partition page may already be registered.
func (tui *Tui) openPartitionPage(deviceID, teamID int64, node int32) error {
	for i, p := range tui.pages {
		if p.GetID() == PagePartition {
			tui.pages = append(tui.pages[:i], tui.pages[i+1:]...)
			break
		}
	}

	page, err := newPartitionPage(tui, deviceID, teamID, node)
	if err != nil {
		return err
	}
	tui.pages = append(tui.pages, page)
	tui.gotoPage(PagePartition)
	return nil
}

func (tui *Tui) gotoPage(id int) {
	if tui.currPage != nil {
		if win := tui.currPage.GetWindow(); win != nil {
			win.SetVisible(false)
			tui.currPage.DeActivate()
			// TODO clui is not hiding cursor when we hide/destroy an edit widget
			termbox.HideCursor()
		}
	}

	tui.currPage = tui.getPage(id)
	if tui.currPage == nil {
		return
	}

	tui.currPage.Activate()
	if win := tui.currPage.GetWindow(); win != nil {
		win.SetVisible(true)
		clui.ActivateControl(win, tui.currPage.GetActivated())
	}
}

func (tui *Tui) getPage(id int) Page {
	for _, curr := range tui.pages {
		if curr.GetID() == id {
			return curr
		}
	}
	return nil
}
