package tui

import (
	"fmt"

	"github.com/VladimirMarkelov/clui"

	"github.com/diskdevmgr/ddm/ddmlog"
)

// DevicesPage lists every device ddmd has registered and lets the
// user drill into one device's root partition to start editing.
type DevicesPage struct {
	tui    *Tui
	window *clui.Window

	list        *clui.ListBox
	deviceIDs   []int32
	statusLabel *clui.Label

	openBtn    *SimpleButton
	refreshBtn *SimpleButton
}

// GetID implements Page.
func (page *DevicesPage) GetID() int { return PageDevices }

// GetWindow implements Page.
func (page *DevicesPage) GetWindow() *clui.Window { return page.window }

// GetActivated implements Page.
func (page *DevicesPage) GetActivated() clui.Control { return page.list }

// DeActivate implements Page.
func (page *DevicesPage) DeActivate() {}

// Activate implements Page, refreshing the device list from ddmd
// every time the page is shown.
func (page *DevicesPage) Activate() {
	page.refresh()
}

func (page *DevicesPage) refresh() {
	ids, err := page.tui.client.ListDevices()
	if err != nil {
		page.statusLabel.SetTitle(fmt.Sprintf("failed to list devices: %v", err))
		ddmlog.Error("tui: ListDevices: %v", err)
		return
	}

	page.deviceIDs = ids
	page.list.Clear()
	for _, id := range ids {
		page.list.AddItem(fmt.Sprintf("device %d", id))
	}
	if len(ids) > 0 {
		page.list.SelectItem(0)
	}
	page.statusLabel.SetTitle(fmt.Sprintf("%d device(s)", len(ids)))
}

func (page *DevicesPage) selectedDeviceID() (int32, bool) {
	idx := page.list.SelectedItem()
	if idx < 0 || idx >= len(page.deviceIDs) {
		return 0, false
	}
	return page.deviceIDs[idx], true
}

func newDevicesPage(tui *Tui) (Page, error) {
	page := &DevicesPage{tui: tui}
	page.window = newWindow("Disk Devices")
	page.window.SetPack(clui.Vertical)

	content := clui.CreateFrame(page.window, AutoSize, AutoSize, BorderNone, Fixed)
	content.SetPack(clui.Vertical)
	content.SetPaddings(2, 1)

	clui.CreateLabel(content, AutoSize, 2, "Registered disk devices", Fixed)

	listFrm := clui.CreateFrame(content, 40, 10, BorderNone, Fixed)
	listFrm.SetPack(clui.Vertical)

	page.list = clui.CreateListBox(listFrm, 1, 8, Fixed)
	page.list.SetAlign(AlignLeft)
	page.list.SetStyle("List")
	page.list.OnActive(func(active bool) {
		if active {
			page.list.SetStyle("ListActive")
		} else {
			page.list.SetStyle("List")
		}
	})

	page.statusLabel = clui.CreateLabel(content, AutoSize, 1, "", Fixed)

	btnFrm := clui.CreateFrame(content, 30, 1, BorderNone, Fixed)
	btnFrm.SetPack(clui.Horizontal)
	btnFrm.SetGaps(1, 1)

	page.openBtn = CreateSimpleButton(btnFrm, AutoSize, AutoSize, "Open", Fixed)
	page.openBtn.OnClick(func(ev clui.Event) {
		deviceID, ok := page.selectedDeviceID()
		if !ok {
			return
		}
		tree, err := tui.client.GetDeviceTree(deviceID, false)
		if err != nil {
			page.statusLabel.SetTitle(fmt.Sprintf("failed to fetch device %d: %v", deviceID, err))
			return
		}
		teamID, err := tui.client.PrepareModifications(deviceID)
		if err != nil {
			page.statusLabel.SetTitle(fmt.Sprintf("failed to open modifications: %v", err))
			return
		}
		if err := tui.openPartitionPage(int64(deviceID), teamID, tree.ID); err != nil {
			page.statusLabel.SetTitle(fmt.Sprintf("failed to open partition page: %v", err))
		}
	})

	page.refreshBtn = CreateSimpleButton(btnFrm, AutoSize, AutoSize, "Refresh", Fixed)
	page.refreshBtn.OnClick(func(ev clui.Event) {
		page.refresh()
	})

	return page, nil
}
