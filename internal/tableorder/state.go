package tableorder

type State int

const (
	StateIdle State = iota
	StateBuildingDraft
	StateSending
	StateSent
	StateSendFailed
	StateViewingExisting
	StateEditingItem
	StateSaving
	StateSaved
	StateSaveFailed
	StateCreatingBill
	StateBillCreated
	StateBillFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateBuildingDraft:   "building-draft",
	StateSending:         "sending",
	StateSent:            "sent",
	StateSendFailed:      "send-failed",
	StateViewingExisting: "viewing-existing",
	StateEditingItem:     "editing-item",
	StateSaving:          "saving",
	StateSaved:           "saved",
	StateSaveFailed:      "save-failed",
	StateCreatingBill:    "creating-bill",
	StateBillCreated:     "bill-created",
	StateBillFailed:      "bill-failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
