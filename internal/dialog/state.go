package dialog

// State identifies where a session is in the guided dialogue. Every
// turn is a function of (state, input); there are no hidden side
// channels between turns besides the session itself.
type State int

const (
	// StateMenu is the resting state between operations.
	StateMenu State = iota
	// StateCollectIdentifier waits for the order number opening a create.
	StateCollectIdentifier
	// StateCollectField walks the create sequence one field at a time.
	StateCollectField
	// StateDuplicateChoice resolves a create that hit an existing number.
	StateDuplicateChoice
	// StateConfirmSummary shows the draft and waits for confirm/edit/cancel.
	StateConfirmSummary
	// StateFieldEditMenu offers the editable fields of the working order.
	StateFieldEditMenu
	// StateAwaitFieldValue collects a new value for one chosen field.
	StateAwaitFieldValue
	// StateAwaitAssigneeName collects the technician name after the
	// operator chose "assigned".
	StateAwaitAssigneeName
	// StateLookupForUpdate waits for the number of the order to edit.
	StateLookupForUpdate
	// StateLookupForDelete waits for the number of the order to delete.
	StateLookupForDelete
	// StateConfirmDelete shows the order and waits for the final word.
	StateConfirmDelete
	// StateFilterCategory collects the category filter of a listing.
	StateFilterCategory
	// StateFilterStatus collects the status filter of a listing.
	StateFilterStatus
	// StateAwaitDocument waits for an uploaded work-order document.
	StateAwaitDocument
	// StateReminderOrder waits for the order number of a new reminder.
	StateReminderOrder
	// StateReminderTime waits for the reminder fire time.
	StateReminderTime
	// StateReminderMessage waits for the reminder text.
	StateReminderMessage
)

var stateNames = map[State]string{
	StateMenu:              "menu",
	StateCollectIdentifier: "collect_identifier",
	StateCollectField:      "collect_field",
	StateDuplicateChoice:   "duplicate_choice",
	StateConfirmSummary:    "confirm_summary",
	StateFieldEditMenu:     "field_edit_menu",
	StateAwaitFieldValue:   "await_field_value",
	StateAwaitAssigneeName: "await_assignee_name",
	StateLookupForUpdate:   "lookup_for_update",
	StateLookupForDelete:   "lookup_for_delete",
	StateConfirmDelete:     "confirm_delete",
	StateFilterCategory:    "filter_category",
	StateFilterStatus:      "filter_status",
	StateAwaitDocument:     "await_document",
	StateReminderOrder:     "reminder_order",
	StateReminderTime:      "reminder_time",
	StateReminderMessage:   "reminder_message",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// InputKind discriminates the closed set of things a turn can carry.
type InputKind int

const (
	// InputText is free-form typed text.
	InputText InputKind = iota
	// InputChoice is a tapped button token.
	InputChoice
	// InputDocument is an uploaded file's content.
	InputDocument
	// InputStart is the conversation-start command.
	InputStart
	// InputCancel is the cancel command, honored in every state.
	InputCancel
)

// Input is one operator turn.
type Input struct {
	Kind     InputKind
	Text     string
	Token    string
	Document []byte
}

// TextInput wraps typed text.
func TextInput(text string) Input { return Input{Kind: InputText, Text: text} }

// ChoiceInput wraps a button token.
func ChoiceInput(token string) Input { return Input{Kind: InputChoice, Token: token} }

// DocumentInput wraps uploaded file content.
func DocumentInput(content []byte) Input { return Input{Kind: InputDocument, Document: content} }

// StartInput is the conversation-start command.
func StartInput() Input { return Input{Kind: InputStart} }

// CancelInput is the cancel command.
func CancelInput() Input { return Input{Kind: InputCancel} }

// Choice is a button offered with a prompt.
type Choice struct {
	Label string
	Token string
}

// Prompt is one outgoing message of a turn.
type Prompt struct {
	Text    string
	Choices []Choice
}
