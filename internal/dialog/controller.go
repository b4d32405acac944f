package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/extract"
	"github.com/fieldops/workdesk/internal/observability"
	"github.com/fieldops/workdesk/internal/reminder"
	"github.com/fieldops/workdesk/internal/schema"
	"github.com/fieldops/workdesk/internal/store"
	"github.com/fieldops/workdesk/model"
)

// session is one operator's dialogue position. draft is the working
// order: a fresh draft during creation, or a copy of a stored order
// during edits, in which case persisted is set and every accepted edit
// writes through immediately.
type session struct {
	state     State
	draft     *model.WorkOrder
	persisted bool
	fieldIdx  int
	editKey   string

	filterCategory string

	remOrder string
	remTime  time.Time
}

// Controller runs the guided dialogue. One instance serves all
// sessions; per-session state lives in the sessions map and nowhere
// else.
type Controller struct {
	mu       sync.Mutex
	sessions map[string]*session

	orders    store.WorkOrderStore
	reminders *reminder.Scheduler
	extractor extract.Extractor
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewController creates a dialogue controller.
func NewController(
	orders store.WorkOrderStore,
	reminders *reminder.Scheduler,
	extractor extract.Extractor,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		sessions:  make(map[string]*session),
		orders:    orders,
		reminders: reminders,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleTurn advances one session by one turn and returns the prompts
// to deliver. Operator mistakes re-prompt; persistence failures abort
// the operation, reset the session to the menu, and are reported in
// the prompts, not the error. The error return is reserved for turns
// the controller could not process at all.
func (c *Controller) HandleTurn(ctx context.Context, sessionID, channel string, input Input) ([]Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[sessionID]
	if !ok {
		sess = &session{state: StateMenu}
		c.sessions[sessionID] = sess
	}

	c.metrics.TurnsTotal.WithLabelValues(sess.state.String()).Inc()

	// Cancel and start short-circuit every state.
	switch input.Kind {
	case InputCancel:
		sess.reset()
		return []Prompt{menuPrompt("Cancelled. Nothing was changed beyond what you already saved.")}, nil
	case InputStart:
		sess.reset()
		return []Prompt{menuPrompt("Welcome to workdesk. What would you like to do?")}, nil
	}

	prompts, err := c.dispatch(ctx, sess, channel, input)
	if err != nil {
		return c.abort(sess, err), nil
	}
	return prompts, nil
}

// abort handles an operation-fatal error: the operator is told, the
// session goes back to the menu, committed edits stand.
func (c *Controller) abort(sess *session, err error) []Prompt {
	code := model.CodeOf(err)
	c.metrics.TurnFailuresTotal.WithLabelValues(code).Inc()
	c.logger.Error("dialogue turn aborted",
		zap.String("state", sess.state.String()),
		zap.String("code", code),
		zap.Error(err))
	sess.reset()
	return []Prompt{menuPrompt("Sorry, that operation failed and was abandoned. Anything saved before the failure is still saved.")}
}

func (s *session) reset() {
	*s = session{state: StateMenu}
}

func (c *Controller) dispatch(ctx context.Context, sess *session, channel string, input Input) ([]Prompt, error) {
	switch sess.state {
	case StateMenu:
		return c.onMenu(sess, input)
	case StateCollectIdentifier:
		return c.onCollectIdentifier(ctx, sess, channel, input)
	case StateCollectField:
		return c.onCollectField(sess, input)
	case StateDuplicateChoice:
		return c.onDuplicateChoice(ctx, sess, input)
	case StateConfirmSummary:
		return c.onConfirmSummary(ctx, sess, input)
	case StateFieldEditMenu:
		return c.onFieldEditMenu(sess, input)
	case StateAwaitFieldValue:
		return c.onAwaitFieldValue(ctx, sess, input)
	case StateAwaitAssigneeName:
		return c.onAwaitAssigneeName(sess, input)
	case StateLookupForUpdate:
		return c.onLookup(ctx, sess, input, StateFieldEditMenu)
	case StateLookupForDelete:
		return c.onLookup(ctx, sess, input, StateConfirmDelete)
	case StateConfirmDelete:
		return c.onConfirmDelete(ctx, sess, input)
	case StateFilterCategory:
		return c.onFilterCategory(sess, input)
	case StateFilterStatus:
		return c.onFilterStatus(ctx, sess, input)
	case StateAwaitDocument:
		return c.onAwaitDocument(ctx, sess, channel, input)
	case StateReminderOrder:
		return c.onReminderOrder(ctx, sess, input)
	case StateReminderTime:
		return c.onReminderTime(sess, input)
	case StateReminderMessage:
		return c.onReminderMessage(ctx, sess, channel, input)
	}
	return nil, model.NewInternalError(fmt.Sprintf("session in unknown state %d", sess.state))
}

// --- Menu ---

func (c *Controller) onMenu(sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputChoice {
		return []Prompt{menuPrompt("")}, nil
	}

	switch input.Token {
	case tokenCreate:
		sess.state = StateCollectIdentifier
		f, _ := schema.Lookup(model.FieldNumber)
		return []Prompt{{Text: f.Prompt}}, nil
	case tokenUpdate:
		sess.state = StateLookupForUpdate
		return []Prompt{{Text: "Which work order do you want to update? Send its number."}}, nil
	case tokenDelete:
		sess.state = StateLookupForDelete
		return []Prompt{{Text: "Which work order do you want to delete? Send its number."}}, nil
	case tokenList:
		sess.state = StateFilterCategory
		return []Prompt{categoryFilterPrompt()}, nil
	case tokenDocument:
		sess.state = StateAwaitDocument
		return []Prompt{{Text: "Upload the work-order document as a file attachment."}}, nil
	case tokenReminder:
		sess.state = StateReminderOrder
		return []Prompt{{Text: "Which work order is the reminder about? Send its number."}}, nil
	case tokenHelp:
		return []Prompt{{Text: helpText}, menuPrompt("")}, nil
	default:
		return []Prompt{menuPrompt("I did not understand that. Pick an option:")}, nil
	}
}

// --- Create flow ---

func (c *Controller) onCollectIdentifier(ctx context.Context, sess *session, channel string, input Input) ([]Prompt, error) {
	if input.Kind != InputText {
		f, _ := schema.Lookup(model.FieldNumber)
		return []Prompt{{Text: f.Prompt}}, nil
	}

	number, err := schema.NormalizeNumber(input.Text)
	if err != nil {
		return c.revalidate(err, Prompt{Text: "Send the number again:"}), nil
	}

	existing, err := c.orders.GetByNumber(ctx, number)
	switch {
	case err == nil:
		// Number taken: offer to edit the stored order instead.
		c.metrics.DuplicateHitsTotal.Inc()
		sess.state = StateDuplicateChoice
		sess.draft = existing
		return []Prompt{{
			Text: fmt.Sprintf("Work order %s already exists:\n\n%s\n\nWhat now?", number, summary(existing)),
			Choices: []Choice{
				{Label: "Edit the existing order", Token: tokenEditExisting},
				{Label: "Back to menu", Token: tokenMenu},
			},
		}}, nil
	case model.IsCode(err, model.ErrNotFound):
		sess.draft = newDraft(number, channel)
		sess.persisted = false
		sess.fieldIdx = 0
		sess.state = StateCollectField
		return c.promptCurrentField(sess), nil
	default:
		return nil, model.NewPersistenceError("check order number", err)
	}
}

// newDraft seeds a draft with the identifier and the schema defaults.
func newDraft(number, channel string) *model.WorkOrder {
	draft := &model.WorkOrder{
		Number:  number,
		Fields:  make(map[string]model.FieldValue),
		Channel: channel,
	}
	draft.SetField(model.FieldNumber, model.TextValue(number))
	draft.SetField(model.FieldStatus, model.ChoiceValue(model.StatusOpen))
	draft.SetField(model.FieldAssignee, model.TextValue(model.Unassigned))
	return draft
}

// promptCurrentField asks for the field at fieldIdx, or moves to the
// summary when the sequence is done.
func (c *Controller) promptCurrentField(sess *session) []Prompt {
	seq := schema.CreateSequence()
	if sess.fieldIdx >= len(seq) {
		sess.state = StateConfirmSummary
		return []Prompt{confirmSummaryPrompt(sess.draft)}
	}

	key := seq[sess.fieldIdx]
	if key == model.FieldAssignee {
		return []Prompt{assigneePrompt()}
	}
	f, _ := schema.Lookup(key)
	return []Prompt{fieldPrompt(f)}
}

func (c *Controller) onCollectField(sess *session, input Input) ([]Prompt, error) {
	seq := schema.CreateSequence()
	if sess.fieldIdx >= len(seq) {
		return nil, model.NewInternalError("collect_field past end of sequence")
	}
	key := seq[sess.fieldIdx]
	f, _ := schema.Lookup(key)

	// The technician step is a decision, not a direct value.
	if key == model.FieldAssignee {
		if input.Kind == InputChoice {
			switch input.Token {
			case tokenAssigned:
				sess.state = StateAwaitAssigneeName
				return []Prompt{{Text: f.Prompt}}, nil
			case model.Unassigned:
				sess.draft.SetField(key, model.TextValue(model.Unassigned))
				sess.fieldIdx++
				return c.promptCurrentField(sess), nil
			}
		}
		return []Prompt{assigneePrompt()}, nil
	}

	value, err := c.validateInput(f, input)
	if err != nil {
		return c.revalidate(err, c.promptCurrentField(sess)...), nil
	}

	sess.draft.SetField(key, value)
	sess.fieldIdx++
	return c.promptCurrentField(sess), nil
}

func (c *Controller) onAwaitAssigneeName(sess *session, input Input) ([]Prompt, error) {
	f, _ := schema.Lookup(model.FieldAssignee)
	if input.Kind != InputText {
		return []Prompt{{Text: f.Prompt}}, nil
	}
	value, err := f.ValidateText(input.Text)
	if err != nil {
		return c.revalidate(err, Prompt{Text: f.Prompt}), nil
	}

	sess.draft.SetField(model.FieldAssignee, value)
	sess.state = StateCollectField
	sess.fieldIdx++
	return c.promptCurrentField(sess), nil
}

func (c *Controller) onDuplicateChoice(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	if input.Kind == InputChoice {
		switch input.Token {
		case tokenEditExisting:
			sess.persisted = true
			sess.state = StateFieldEditMenu
			return []Prompt{editMenuPrompt(true)}, nil
		case tokenMenu:
			sess.reset()
			return []Prompt{menuPrompt("")}, nil
		}
	}
	return []Prompt{{
		Text: "Pick one of the options:",
		Choices: []Choice{
			{Label: "Edit the existing order", Token: tokenEditExisting},
			{Label: "Back to menu", Token: tokenMenu},
		},
	}}, nil
}

func (c *Controller) onConfirmSummary(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputChoice {
		return []Prompt{confirmSummaryPrompt(sess.draft)}, nil
	}

	switch input.Token {
	case tokenConfirm:
		if err := c.orders.Create(ctx, sess.draft); err != nil {
			if model.IsCode(err, model.ErrDuplicate) {
				// Someone took the number between the opening check and now.
				sess.reset()
				return []Prompt{menuPrompt(fmt.Sprintf(
					"Work order %s was created by someone else in the meantime. Start again if you still need it.", sess.draft.Number))}, nil
			}
			return nil, model.NewPersistenceError("create order", err)
		}
		c.metrics.OrdersCreatedTotal.Inc()
		c.logger.Info("work order created", zap.String("order", sess.draft.Number))
		number := sess.draft.Number
		sess.reset()
		return []Prompt{menuPrompt(fmt.Sprintf("Work order %s saved. ✅", number))}, nil

	case tokenEdit:
		sess.state = StateFieldEditMenu
		return []Prompt{editMenuPrompt(false)}, nil

	case tokenCancel:
		sess.reset()
		return []Prompt{menuPrompt("Draft discarded.")}, nil

	default:
		return []Prompt{confirmSummaryPrompt(sess.draft)}, nil
	}
}

// --- Field editing ---

func (c *Controller) onFieldEditMenu(sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputChoice {
		return []Prompt{editMenuPrompt(sess.persisted)}, nil
	}

	if input.Token == tokenFinish {
		if sess.persisted {
			number := sess.draft.Number
			sess.reset()
			return []Prompt{menuPrompt(fmt.Sprintf("Done editing work order %s.", number))}, nil
		}
		sess.state = StateConfirmSummary
		return []Prompt{confirmSummaryPrompt(sess.draft)}, nil
	}

	key, ok := strings.CutPrefix(input.Token, fieldTokenPrefix)
	if !ok {
		return []Prompt{editMenuPrompt(sess.persisted)}, nil
	}
	f, found := schema.Lookup(key)
	if !found {
		return []Prompt{editMenuPrompt(sess.persisted)}, nil
	}

	sess.editKey = key
	sess.state = StateAwaitFieldValue
	return []Prompt{fieldPrompt(f)}, nil
}

func (c *Controller) onAwaitFieldValue(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	f, ok := schema.Lookup(sess.editKey)
	if !ok {
		return nil, model.NewInternalError("editing unknown field " + sess.editKey)
	}

	// Changing the identifier re-runs the uniqueness check.
	if sess.editKey == model.FieldNumber {
		return c.onChangeIdentifier(ctx, sess, input)
	}

	value, err := c.validateInput(f, input)
	if err != nil {
		return c.revalidate(err, fieldPrompt(f)), nil
	}
	return c.applyEditAndReturn(ctx, sess, sess.editKey, value)
}

// applyEditAndReturn records an accepted edit and goes back to the
// edit menu. Stored orders are written immediately, field by field.
func (c *Controller) applyEditAndReturn(ctx context.Context, sess *session, key string, value model.FieldValue) ([]Prompt, error) {
	sess.draft.SetField(key, value)

	if sess.persisted {
		updated, err := c.orders.UpdateFields(ctx, sess.draft.Number, map[string]model.FieldValue{key: value})
		if err != nil {
			return nil, model.NewPersistenceError("update field "+key, err)
		}
		sess.draft = updated
	}

	c.metrics.FieldEditsTotal.WithLabelValues(key).Inc()
	f, _ := schema.Lookup(key)
	sess.state = StateFieldEditMenu
	sess.editKey = ""
	return []Prompt{
		{Text: fmt.Sprintf("%s updated.", f.Label)},
		editMenuPrompt(sess.persisted),
	}, nil
}

func (c *Controller) onChangeIdentifier(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputText {
		f, _ := schema.Lookup(model.FieldNumber)
		return []Prompt{{Text: f.Prompt}}, nil
	}
	number, err := schema.NormalizeNumber(input.Text)
	if err != nil {
		return c.revalidate(err, Prompt{Text: "Send the new number:"}), nil
	}
	if number == sess.draft.Number {
		sess.state = StateFieldEditMenu
		sess.editKey = ""
		return []Prompt{{Text: "That is already the order's number."}, editMenuPrompt(sess.persisted)}, nil
	}

	if sess.persisted {
		err := c.orders.Renumber(ctx, sess.draft.Number, number)
		if model.IsCode(err, model.ErrDuplicate) {
			return c.revalidate(err, Prompt{Text: "Send a different number:"}), nil
		}
		if err != nil {
			return nil, model.NewPersistenceError("renumber order", err)
		}
	} else {
		// Draft: only make sure the new number is free.
		if _, err := c.orders.GetByNumber(ctx, number); err == nil {
			dup := model.NewDuplicateError(fmt.Sprintf("work order %q already exists", number))
			return c.revalidate(dup, Prompt{Text: "Send a different number:"}), nil
		} else if !model.IsCode(err, model.ErrNotFound) {
			return nil, model.NewPersistenceError("check order number", err)
		}
	}

	sess.draft.Number = number
	sess.draft.SetField(model.FieldNumber, model.TextValue(number))
	c.metrics.FieldEditsTotal.WithLabelValues(model.FieldNumber).Inc()
	sess.state = StateFieldEditMenu
	sess.editKey = ""
	return []Prompt{
		{Text: fmt.Sprintf("Number changed to %s.", number)},
		editMenuPrompt(sess.persisted),
	}, nil
}

// --- Update / delete lookups ---

func (c *Controller) onLookup(ctx context.Context, sess *session, input Input, next State) ([]Prompt, error) {
	if input.Kind != InputText {
		return []Prompt{{Text: "Send the work order number."}}, nil
	}
	number, err := schema.NormalizeNumber(input.Text)
	if err != nil {
		return c.revalidate(err, Prompt{Text: "Send the number again:"}), nil
	}

	order, err := c.orders.GetByNumber(ctx, number)
	if model.IsCode(err, model.ErrNotFound) {
		return []Prompt{{Text: fmt.Sprintf(
			"No work order %s. Send another number, or /cancel to go back.", number)}}, nil
	}
	if err != nil {
		return nil, model.NewPersistenceError("look up order", err)
	}

	sess.draft = order
	sess.persisted = true
	sess.state = next

	if next == StateConfirmDelete {
		return []Prompt{deleteConfirmPrompt(order)}, nil
	}
	return []Prompt{editMenuPrompt(true)}, nil
}

func (c *Controller) onConfirmDelete(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputChoice {
		return []Prompt{deleteConfirmPrompt(sess.draft)}, nil
	}

	switch input.Token {
	case tokenConfirm:
		number := sess.draft.Number
		existed, err := c.orders.Delete(ctx, number)
		if err != nil {
			return nil, model.NewPersistenceError("delete order", err)
		}
		if !existed {
			sess.reset()
			return []Prompt{menuPrompt(fmt.Sprintf("Work order %s was already gone.", number))}, nil
		}

		cancelled, err := c.reminders.CancelAllFor(ctx, number)
		if err != nil {
			// The order is gone; the cascade failing is worth telling, not retrying.
			c.logger.Error("reminder cascade failed after delete",
				zap.String("order", number), zap.Error(err))
		}
		c.metrics.OrdersDeletedTotal.Inc()
		c.logger.Info("work order deleted",
			zap.String("order", number), zap.Int("reminders_cancelled", cancelled))

		sess.reset()
		msg := fmt.Sprintf("Work order %s deleted.", number)
		if cancelled > 0 {
			msg = fmt.Sprintf("Work order %s deleted along with %d pending reminder(s).", number, cancelled)
		}
		return []Prompt{menuPrompt(msg)}, nil

	case tokenCancel:
		sess.reset()
		return []Prompt{menuPrompt("Nothing deleted.")}, nil

	default:
		return []Prompt{deleteConfirmPrompt(sess.draft)}, nil
	}
}

// --- Listing ---

func (c *Controller) onFilterCategory(sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputChoice {
		return []Prompt{categoryFilterPrompt()}, nil
	}
	if input.Token != tokenAll {
		f, _ := schema.Lookup(model.FieldCategory)
		if _, err := f.ValidateChoice(input.Token); err != nil {
			return []Prompt{categoryFilterPrompt()}, nil
		}
		sess.filterCategory = input.Token
	}
	sess.state = StateFilterStatus
	return []Prompt{statusFilterPrompt()}, nil
}

func (c *Controller) onFilterStatus(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputChoice {
		return []Prompt{statusFilterPrompt()}, nil
	}

	filters := store.OrderFilters{Category: sess.filterCategory}
	if input.Token != tokenAll {
		f, _ := schema.Lookup(model.FieldStatus)
		if _, err := f.ValidateChoice(input.Token); err != nil {
			return []Prompt{statusFilterPrompt()}, nil
		}
		filters.Status = input.Token
	}

	orders, err := c.orders.Query(ctx, filters)
	if err != nil {
		return nil, model.NewPersistenceError("list orders", err)
	}

	sess.reset()
	return []Prompt{{Text: renderList(orders)}, menuPrompt("")}, nil
}

// --- Document import ---

func (c *Controller) onAwaitDocument(ctx context.Context, sess *session, channel string, input Input) ([]Prompt, error) {
	if input.Kind != InputDocument {
		return []Prompt{{Text: "Upload the work-order document as a file attachment, or /cancel."}}, nil
	}

	raw, err := c.extractor.Extract(input.Document)
	if err != nil {
		return []Prompt{{Text: "I could not read a work order out of that document. Try another file, or /cancel."}}, nil
	}

	number, err := schema.NormalizeNumber(raw[model.FieldNumber])
	if err != nil {
		return []Prompt{{Text: "The document's order number is not usable. Try another file, or /cancel."}}, nil
	}

	fields, rejected := validateExtracted(raw)

	existing, err := c.orders.GetByNumber(ctx, number)
	switch {
	case err == nil:
		// Known order: apply the readable fields straight away.
		if _, err := c.orders.UpdateFields(ctx, number, fields); err != nil {
			return nil, model.NewPersistenceError("update order from document", err)
		}
		c.logger.Info("order updated from document",
			zap.String("order", number),
			zap.String("status", existing.Status()),
			zap.Int("fields", len(fields)))
		sess.reset()
		return []Prompt{menuPrompt(documentResultText(
			fmt.Sprintf("Work order %s updated from the document (%d field(s)).", number, len(fields)), rejected))}, nil

	case model.IsCode(err, model.ErrNotFound):
		draft := newDraft(number, channel)
		for k, v := range fields {
			draft.SetField(k, v)
		}
		sess.draft = draft
		sess.persisted = false
		sess.state = StateConfirmSummary
		prompts := []Prompt{}
		if txt := documentResultText("", rejected); txt != "" {
			prompts = append(prompts, Prompt{Text: txt})
		}
		return append(prompts, confirmSummaryPrompt(draft)), nil

	default:
		return nil, model.NewPersistenceError("check order number", err)
	}
}

// validateExtracted runs every extracted value through the schema,
// keeping the good ones and naming the rejects.
func validateExtracted(raw map[string]string) (map[string]model.FieldValue, []string) {
	fields := make(map[string]model.FieldValue)
	var rejected []string

	for key, text := range raw {
		if key == model.FieldNumber {
			continue
		}
		f, ok := schema.Lookup(key)
		if !ok {
			continue
		}

		var value model.FieldValue
		var err error
		if f.Kind == schema.KindChoice {
			value, err = f.ValidateChoice(strings.ToLower(strings.TrimSpace(text)))
		} else {
			value, err = f.ValidateText(text)
		}
		if err != nil {
			rejected = append(rejected, f.Label)
			continue
		}
		fields[key] = value
	}
	return fields, rejected
}

func documentResultText(head string, rejected []string) string {
	if len(rejected) == 0 {
		return head
	}
	note := "Could not use the extracted value(s) for: " + strings.Join(rejected, ", ") + "."
	if head == "" {
		return note
	}
	return head + "\n" + note
}

// --- Reminders ---

func (c *Controller) onReminderOrder(ctx context.Context, sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputText {
		return []Prompt{{Text: "Send the work order number."}}, nil
	}
	number, err := schema.NormalizeNumber(input.Text)
	if err != nil {
		return c.revalidate(err, Prompt{Text: "Send the number again:"}), nil
	}

	if _, err := c.orders.GetByNumber(ctx, number); err != nil {
		if model.IsCode(err, model.ErrNotFound) {
			return []Prompt{{Text: fmt.Sprintf(
				"No work order %s. Send another number, or /cancel.", number)}}, nil
		}
		return nil, model.NewPersistenceError("look up order", err)
	}

	sess.remOrder = number
	sess.state = StateReminderTime
	return []Prompt{{Text: "When should I remind you? (DD/MM/YYYY HH:MM)"}}, nil
}

func (c *Controller) onReminderTime(sess *session, input Input) ([]Prompt, error) {
	if input.Kind != InputText {
		return []Prompt{{Text: "Send the reminder time as DD/MM/YYYY HH:MM."}}, nil
	}
	t, err := time.ParseInLocation(model.DateTimeLayout, strings.TrimSpace(input.Text), time.Local)
	if err != nil {
		return []Prompt{{Text: "That is not a valid time. Use DD/MM/YYYY HH:MM."}}, nil
	}

	sess.remTime = t
	sess.state = StateReminderMessage
	return []Prompt{{Text: "What should the reminder say?"}}, nil
}

func (c *Controller) onReminderMessage(ctx context.Context, sess *session, channel string, input Input) ([]Prompt, error) {
	if input.Kind != InputText || strings.TrimSpace(input.Text) == "" {
		return []Prompt{{Text: "Send the reminder text."}}, nil
	}
	message := strings.TrimSpace(input.Text)

	_, err := c.reminders.Schedule(ctx, sess.remTime, message, channel, sess.remOrder)
	if model.IsCode(err, model.ErrScheduling) {
		sess.state = StateReminderTime
		return []Prompt{{Text: "That time is already in the past. Send a new time (DD/MM/YYYY HH:MM)."}}, nil
	}
	if err != nil {
		return nil, err
	}

	// Annotate the order so the note shows up in its summary.
	note := fmt.Sprintf("%s - %s", sess.remTime.Format(model.DateTimeLayout), message)
	if _, err := c.orders.UpdateFields(ctx, sess.remOrder, map[string]model.FieldValue{
		model.FieldReminderNote: model.TextValue(note),
	}); err != nil {
		c.logger.Warn("could not annotate order with reminder note",
			zap.String("order", sess.remOrder), zap.Error(err))
	}

	text := fmt.Sprintf("Reminder set for %s about work order %s. ✅",
		sess.remTime.Format(model.DateTimeLayout), sess.remOrder)
	sess.reset()
	return []Prompt{menuPrompt(text)}, nil
}

// --- Shared helpers ---

// validateInput routes the raw input to the right schema validator.
func (c *Controller) validateInput(f schema.Field, input Input) (model.FieldValue, error) {
	switch input.Kind {
	case InputChoice:
		return f.ValidateChoice(input.Token)
	case InputText:
		return f.ValidateText(input.Text)
	default:
		return model.FieldValue{}, model.NewValidationError(f.Key,
			"expected a value for "+f.Label)
	}
}

// revalidate prefixes the re-prompt with the validation message.
func (c *Controller) revalidate(err error, reprompt ...Prompt) []Prompt {
	c.metrics.TurnFailuresTotal.WithLabelValues(model.CodeOf(err)).Inc()

	msg := "That value is not valid."
	var env *model.ErrorEnvelope
	if errors.As(err, &env) && env.Message != "" {
		msg = env.Message
	}
	return append([]Prompt{{Text: msg}}, reprompt...)
}
