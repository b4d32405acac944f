package dialog

import (
	"fmt"
	"strings"

	"github.com/fieldops/workdesk/internal/schema"
	"github.com/fieldops/workdesk/model"
)

// Menu tokens.
const (
	tokenCreate   = "create"
	tokenUpdate   = "update"
	tokenDelete   = "delete"
	tokenList     = "list"
	tokenDocument = "document"
	tokenReminder = "reminder"
	tokenHelp     = "help"

	tokenConfirm      = "confirm"
	tokenEdit         = "edit"
	tokenCancel       = "cancel"
	tokenMenu         = "menu"
	tokenFinish       = "finish"
	tokenEditExisting = "edit_existing"
	tokenAssigned     = "assigned"
	tokenAll          = "all"

	fieldTokenPrefix = "field:"
)

var menuChoices = []Choice{
	{Label: "New work order", Token: tokenCreate},
	{Label: "Update an order", Token: tokenUpdate},
	{Label: "Delete an order", Token: tokenDelete},
	{Label: "List orders", Token: tokenList},
	{Label: "Import from document", Token: tokenDocument},
	{Label: "Set a reminder", Token: tokenReminder},
	{Label: "Help", Token: tokenHelp},
}

func menuPrompt(text string) Prompt {
	if text == "" {
		text = "What would you like to do?"
	}
	return Prompt{Text: text, Choices: menuChoices}
}

const helpText = `workdesk keeps track of field-service work orders.

• New work order - guided creation, one field per message
• Update an order - change any field of an existing order
• Delete an order - remove an order and its pending reminders
• List orders - filter by category and status
• Import from document - extract the fields from an uploaded file
• Set a reminder - get pinged about an order at a chosen time

Send /cancel at any point to drop what you are doing.`

// fieldPrompt renders the collection prompt for a field, attaching the
// choice buttons for closed sets.
func fieldPrompt(f schema.Field) Prompt {
	p := Prompt{Text: f.Prompt}
	for _, c := range f.Choices {
		p.Choices = append(p.Choices, Choice{Label: c.Label, Token: c.Token})
	}
	return p
}

// assigneePrompt is the assigned/unassigned decision of the create flow.
func assigneePrompt() Prompt {
	return Prompt{
		Text: "Is a technician already assigned?",
		Choices: []Choice{
			{Label: "Assigned", Token: tokenAssigned},
			{Label: "Not assigned", Token: model.Unassigned},
		},
	}
}

// summary renders every schema field of the order in display order. A
// field never captured renders as "-", distinct from the explicit
// not-applicable marker and from an empty string.
func summary(order *model.WorkOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Work order %s\n", order.Number)
	for _, f := range schema.Fields() {
		if f.Key == model.FieldNumber {
			continue
		}
		value, present := order.Fields[f.Key]
		if f.Key == model.FieldReminderNote && (!present || !value.IsSet()) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Label, renderValue(f, value, present))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderValue is the display form of one field slot.
func renderValue(f schema.Field, value model.FieldValue, present bool) string {
	if !present {
		return "-"
	}
	if value.Kind == model.ValueChoice {
		return f.ChoiceLabel(value.Value)
	}
	return value.Render()
}

func confirmSummaryPrompt(order *model.WorkOrder) Prompt {
	return Prompt{
		Text: summary(order) + "\n\nSave this work order?",
		Choices: []Choice{
			{Label: "Save", Token: tokenConfirm},
			{Label: "Edit a field", Token: tokenEdit},
			{Label: "Cancel", Token: tokenCancel},
		},
	}
}

// editMenuPrompt lists the editable fields. The exit label depends on
// whether edits are flowing straight to the store or into a draft.
func editMenuPrompt(persisted bool) Prompt {
	p := Prompt{Text: "Which field do you want to change?"}
	for _, key := range schema.EditableKeys() {
		f, _ := schema.Lookup(key)
		p.Choices = append(p.Choices, Choice{Label: f.Label, Token: fieldTokenPrefix + key})
	}
	exit := "Back to summary"
	if persisted {
		exit = "Finish"
	}
	p.Choices = append(p.Choices, Choice{Label: exit, Token: tokenFinish})
	return p
}

func deleteConfirmPrompt(order *model.WorkOrder) Prompt {
	return Prompt{
		Text: summary(order) + "\n\nDelete this work order? Its pending reminders go with it.",
		Choices: []Choice{
			{Label: "Delete", Token: tokenConfirm},
			{Label: "Keep it", Token: tokenCancel},
		},
	}
}

func categoryFilterPrompt() Prompt {
	p := Prompt{Text: "Which category?"}
	for _, c := range schema.CategoryChoices {
		p.Choices = append(p.Choices, Choice{Label: c.Label, Token: c.Token})
	}
	p.Choices = append(p.Choices, Choice{Label: "All categories", Token: tokenAll})
	return p
}

func statusFilterPrompt() Prompt {
	p := Prompt{Text: "Which status?"}
	for _, c := range schema.StatusChoices {
		p.Choices = append(p.Choices, Choice{Label: c.Label, Token: c.Token})
	}
	p.Choices = append(p.Choices, Choice{Label: "All statuses", Token: tokenAll})
	return p
}

// renderList formats a query result, one order per line.
func renderList(orders []*model.WorkOrder) string {
	if len(orders) == 0 {
		return "No work orders match those filters."
	}

	statusField, _ := schema.Lookup(model.FieldStatus)
	descField, _ := schema.Lookup(model.FieldDescription)
	deadlineField, _ := schema.Lookup(model.FieldDeadline)

	var b strings.Builder
	fmt.Fprintf(&b, "%d work order(s):\n", len(orders))
	for _, o := range orders {
		desc, descPresent := o.Fields[model.FieldDescription]
		deadline, deadlinePresent := o.Fields[model.FieldDeadline]
		fmt.Fprintf(&b, "• %s - %s (%s, due %s)\n",
			o.Number,
			renderValue(descField, desc, descPresent),
			statusField.ChoiceLabel(o.Status()),
			renderValue(deadlineField, deadline, deadlinePresent))
	}
	return strings.TrimRight(b.String(), "\n")
}
