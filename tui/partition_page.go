package tui

import (
	"fmt"
	"strconv"

	"github.com/VladimirMarkelov/clui"

	"github.com/diskdevmgr/ddm/ddmlog"
	"github.com/diskdevmgr/ddm/serialize"
)

// PartitionPage edits a single node's name/type/parameters/size
// within an open shadow team, then commits or cancels the whole team.
type PartitionPage struct {
	tui    *Tui
	window *clui.Window

	deviceID int64
	teamID   int64
	nodeID   int32
	counter  int64

	nameEdit       *clui.EditField
	typeEdit       *clui.EditField
	parametersEdit *clui.EditField
	sizeEdit       *clui.EditField

	childList *clui.ListBox

	statusLabel *clui.Label

	confirmBtn *SimpleButton
	cancelBtn  *SimpleButton
}

// GetID implements Page.
func (page *PartitionPage) GetID() int { return PagePartition }

// GetWindow implements Page.
func (page *PartitionPage) GetWindow() *clui.Window { return page.window }

// GetActivated implements Page.
func (page *PartitionPage) GetActivated() clui.Control { return page.nameEdit }

// DeActivate implements Page.
func (page *PartitionPage) DeActivate() {}

// Activate implements Page, reloading the node's current shadow
// state every time the page is shown.
func (page *PartitionPage) Activate() {
	page.reload()
}

func findNode(n *serialize.Node, id int32) *serialize.Node {
	if n == nil {
		return nil
	}
	if n.ID == id || n.OriginID == id {
		return n
	}
	for _, child := range n.Children {
		if found := findNode(child, id); found != nil {
			return found
		}
	}
	return nil
}

func (page *PartitionPage) reload() {
	root, err := page.tui.client.GetDeviceTree(int32(page.deviceID), true)
	if err != nil {
		page.statusLabel.SetTitle(fmt.Sprintf("failed to reload: %v", err))
		return
	}

	node := findNode(root, page.nodeID)
	if node == nil {
		page.statusLabel.SetTitle(fmt.Sprintf("node %d not found in shadow tree", page.nodeID))
		return
	}

	page.counter = node.ChangeCounter
	page.nameEdit.SetTitle(node.Name)
	page.typeEdit.SetTitle(node.Type)
	page.parametersEdit.SetTitle(node.Parameters)
	page.sizeEdit.SetTitle(strconv.FormatInt(node.Size, 10))

	page.childList.Clear()
	for i, child := range node.Children {
		page.childList.AddItem(fmt.Sprintf("[%d] %s (%s, %d bytes)", i, child.Name, child.Type, child.Size))
	}

	page.statusLabel.SetTitle(fmt.Sprintf("node %d, team %d, %d child(ren)", page.nodeID, page.teamID, len(node.Children)))
}

func (page *PartitionPage) apply() error {
	if err := page.tui.client.SetName(page.teamID, page.nodeID, page.counter, page.nameEdit.Title()); err != nil {
		return fmt.Errorf("set_name: %w", err)
	}
	page.counter++
	if err := page.tui.client.SetType(page.teamID, page.nodeID, page.counter, page.typeEdit.Title()); err != nil {
		return fmt.Errorf("set_type: %w", err)
	}
	page.counter++
	if err := page.tui.client.SetParameters(page.teamID, page.nodeID, page.counter, page.parametersEdit.Title()); err != nil {
		return fmt.Errorf("set_parameters: %w", err)
	}
	page.counter++
	if size, err := strconv.ParseInt(page.sizeEdit.Title(), 10, 64); err == nil {
		if err := page.tui.client.Resize(page.teamID, page.nodeID, page.counter, size); err != nil {
			return fmt.Errorf("resize: %w", err)
		}
		page.counter++
	}
	return nil
}

func newPartitionPage(tui *Tui, deviceID, teamID int64, nodeID int32) (Page, error) {
	page := &PartitionPage{tui: tui, deviceID: deviceID, teamID: teamID, nodeID: nodeID}
	page.window = newWindow(fmt.Sprintf("Partition %d", nodeID))
	page.window.SetPack(clui.Vertical)

	content := clui.CreateFrame(page.window, AutoSize, AutoSize, BorderNone, Fixed)
	content.SetPack(clui.Vertical)
	content.SetPaddings(2, 1)

	clui.CreateLabel(content, AutoSize, 2, "Edit partition attributes", Fixed)

	frm := clui.CreateFrame(content, AutoSize, AutoSize, BorderNone, Fixed)
	frm.SetPack(clui.Horizontal)

	lblFrm := clui.CreateFrame(frm, 14, AutoSize, BorderNone, Fixed)
	lblFrm.SetPack(clui.Vertical)
	clui.CreateLabel(lblFrm, AutoSize, 2, "Name:", Fixed).SetAlign(AlignRight)
	clui.CreateLabel(lblFrm, AutoSize, 2, "Type:", Fixed).SetAlign(AlignRight)
	clui.CreateLabel(lblFrm, AutoSize, 2, "Parameters:", Fixed).SetAlign(AlignRight)
	clui.CreateLabel(lblFrm, AutoSize, 2, "Size (bytes):", Fixed).SetAlign(AlignRight)

	fldFrm := clui.CreateFrame(frm, 30, AutoSize, BorderNone, Fixed)
	fldFrm.SetPack(clui.Vertical)

	page.nameEdit, _ = newEditField(fldFrm, false, nil)
	page.typeEdit, _ = newEditField(fldFrm, false, nil)
	page.parametersEdit, _ = newEditField(fldFrm, false, nil)
	page.sizeEdit, _ = newEditField(fldFrm, false, nil)

	clui.CreateLabel(content, AutoSize, 1, "Children", Fixed)
	page.childList = clui.CreateListBox(content, 40, 5, Fixed)
	page.childList.SetAlign(AlignLeft)

	page.statusLabel = clui.CreateLabel(content, AutoSize, 1, "", Fixed)

	btnFrm := clui.CreateFrame(content, 30, 1, BorderNone, Fixed)
	btnFrm.SetPack(clui.Horizontal)
	btnFrm.SetGaps(1, 1)

	page.confirmBtn = CreateSimpleButton(btnFrm, AutoSize, AutoSize, "Commit", Fixed)
	page.confirmBtn.OnClick(func(ev clui.Event) {
		if err := page.apply(); err != nil {
			page.warn(err.Error())
			return
		}
		if err := tui.client.CommitModifications(int32(page.deviceID), page.teamID); err != nil {
			page.warn(fmt.Sprintf("commit failed: %v", err))
			return
		}
		if dialog, err := CreateInfoDialogBox(fmt.Sprintf("Partition %d committed.", page.nodeID)); err == nil {
			dialog.OnClose(func() { tui.gotoPage(PageDevices) })
		} else {
			tui.gotoPage(PageDevices)
		}
	})

	page.cancelBtn = CreateSimpleButton(btnFrm, AutoSize, AutoSize, "Cancel", Fixed)
	page.cancelBtn.OnClick(func(ev clui.Event) {
		dialog, err := CreateConfirmCancelDialogBox(
			"Discard the changes made to this partition tree?", "Cancel modifications")
		if err != nil {
			ddmlog.Error("tui: CreateConfirmCancelDialogBox: %v", err)
			return
		}
		dialog.OnClose(func() {
			if !dialog.Confirmed {
				return
			}
			if err := tui.client.CancelModifications(page.teamID); err != nil {
				ddmlog.Error("tui: CancelModifications: %v", err)
			}
			tui.gotoPage(PageDevices)
		})
	})

	return page, nil
}

func (page *PartitionPage) warn(message string) {
	page.statusLabel.SetTitle(message)
	if _, err := CreateWarningDialogBox(message); err != nil {
		ddmlog.Error("tui: CreateWarningDialogBox: %v", err)
	}
}
