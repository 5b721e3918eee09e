package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stockbot/internal/audit"
	"stockbot/internal/catalog"
	"stockbot/internal/intent"
	"stockbot/internal/llm"
	"stockbot/internal/metrics"
	"stockbot/internal/operation"
	"stockbot/internal/permission"
	"stockbot/internal/report"
	"stockbot/internal/validate"
)

const (
	// DefaultWindow is the number of prior turns sent to the model.
	DefaultWindow = 6
	// DefaultTemperature keeps tool selection close to deterministic.
	DefaultTemperature = 0.3
	historyLimit       = 20
)

// CatalogStore is the subset of the catalog store the agent drives.
type CatalogStore interface {
	Find(ctx context.Context, query string) ([]catalog.Product, error)
	Insert(ctx context.Context, actor string, p catalog.Product) (catalog.Result, error)
	UpdateFields(ctx context.Context, actor string, id int, ch catalog.Changes) (catalog.Result, error)
	SetStock(ctx context.Context, actor string, id, stock int) (catalog.Result, error)
	SetPrice(ctx context.Context, actor string, id int, price float64) (catalog.Result, error)
}

// Reporter renders the inventory report.
type Reporter interface {
	Generate(ctx context.Context, days int) (report.Result, error)
}

// Observer counts operation outcomes; *metrics.Metrics satisfies it.
type Observer interface {
	ObserveOperation(operation, outcome string)
}

// Deps wires an Agent.
type Deps struct {
	Catalog     CatalogStore
	History     audit.Store
	Model       llm.ChatClient
	Reports     Reporter
	Observer    Observer
	Now         func() time.Time
	Window      int
	Temperature float32
}

// Agent turns chat input into catalog operations. Reads run at once; mutations
// are parked on the session until confirmed.
type Agent struct {
	catalog     CatalogStore
	history     audit.Store
	model       llm.ChatClient
	reports     Reporter
	observer    Observer
	now         func() time.Time
	window      int
	temperature float32
}

func New(d Deps) *Agent {
	a := &Agent{
		catalog:     d.Catalog,
		history:     d.History,
		model:       d.Model,
		reports:     d.Reports,
		observer:    d.Observer,
		now:         d.Now,
		window:      d.Window,
		temperature: d.Temperature,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.window <= 0 {
		a.window = DefaultWindow
	}
	if a.temperature <= 0 {
		a.temperature = DefaultTemperature
	}
	return a
}

// Handle processes one message and records both turns on the session.
//
// While an action is pending every input is treated as the answer to it:
// yes commits, no discards, anything else (reads included) re-prompts. A
// pending action is never left behind a newer request.
func (a *Agent) Handle(ctx context.Context, sess *Session, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return message("Type a question or a request about the inventory.")
	}
	var r Reply
	switch {
	case sess.Pending != nil:
		r = a.answerPending(ctx, sess, text)
	default:
		r = a.route(ctx, sess, text)
	}
	sess.record(llm.RoleUser, text)
	sess.record(llm.RoleAssistant, r.Text)
	return r
}

// Confirm commits the pending action (UI confirm button).
func (a *Agent) Confirm(ctx context.Context, sess *Session) Reply {
	r := a.confirm(ctx, sess)
	sess.record(llm.RoleAssistant, r.Text)
	return r
}

// Submit runs an already-built operation through the same gate as a model tool
// call, for callers that bypass the chat (report button, forms). It is refused
// while another action is pending.
func (a *Agent) Submit(ctx context.Context, sess *Session, op operation.Operation) Reply {
	var r Reply
	if sess.Pending != nil {
		r = Reply{Kind: ReplyPending, Text: sess.Pending.Prompt, Pending: sess.Pending, Err: ErrPendingAction}
	} else {
		r = a.submit(ctx, sess, op)
	}
	sess.record(llm.RoleAssistant, r.Text)
	return r
}

// Cancel discards the pending action (UI cancel button).
func (a *Agent) Cancel(sess *Session) Reply {
	r := a.cancel(sess)
	sess.record(llm.RoleAssistant, r.Text)
	return r
}

func (a *Agent) answerPending(ctx context.Context, sess *Session, text string) Reply {
	switch {
	case intent.Affirmative(text):
		return a.confirm(ctx, sess)
	case intent.Negative(text):
		return a.cancel(sess)
	}
	return Reply{
		Kind:    ReplyPending,
		Text:    sess.Pending.Prompt + "\nPlease answer yes to confirm or no to cancel before anything else.",
		Pending: sess.Pending,
		Err:     ErrPendingAction,
	}
}

func (a *Agent) route(ctx context.Context, sess *Session, text string) Reply {
	in := intent.Resolve(text)
	switch in.Class {
	case intent.LocalCommand:
		return a.runCommand(ctx, in.Command)
	case intent.Lookup:
		return a.submit(ctx, sess, operation.LookupProduct{Query: fmt.Sprint(in.ProductID)})
	}
	return a.delegate(ctx, sess, text)
}

func (a *Agent) runCommand(ctx context.Context, cmd intent.Command) Reply {
	switch cmd {
	case intent.CommandHistory:
		if a.history == nil {
			return message("The history is empty.")
		}
		events, err := a.history.Load(ctx)
		if err != nil {
			log.Printf("agent: load history: %v", err)
			return failure("Could not read the history.", err)
		}
		return message(FormatHistory(audit.Recent(events, historyLimit)))
	}
	return message("Unknown command.")
}

func (a *Agent) delegate(ctx context.Context, sess *Session, text string) Reply {
	if a.model == nil {
		return failure("The assistant model is not configured.", llm.ErrBackendUnavailable)
	}
	msgs := append(sess.window(a.window), llm.Message{Role: llm.RoleUser, Content: text})
	resp, err := a.model.Chat(ctx, llm.ChatRequest{
		System:      systemPrompt(sess),
		Messages:    msgs,
		Tools:       operation.Specs(),
		Temperature: a.temperature,
	})
	if err != nil {
		return failure("The assistant is not available right now, please try again later.", err)
	}
	if len(resp.ToolCalls) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return message("I did not understand the request. Could you rephrase it?")
		}
		return message(resp.Text)
	}
	if len(resp.ToolCalls) > 1 {
		log.Printf("agent: model returned %d tool calls, only %s is used", len(resp.ToolCalls), resp.ToolCalls[0].Name)
	}
	return a.toolCall(ctx, sess, resp.ToolCalls[0])
}

// toolCall runs the gate, decoder and validator, in that order, on a model
// tool call. The permission check comes first so a denied role learns nothing
// about argument problems.
func (a *Agent) toolCall(ctx context.Context, sess *Session, tc llm.ToolCall) Reply {
	kind, ok := operation.ParseKind(tc.Name)
	if !ok {
		a.observe(tc.Name, metrics.OutcomeInvalid)
		return failure(fmt.Sprintf("The assistant asked for an unknown operation '%s'.", tc.Name),
			fmt.Errorf("%w: unknown operation %q", operation.ErrMalformedInput, tc.Name))
	}
	if err := permission.Check(sess.Role, kind); err != nil {
		a.observe(string(kind), metrics.OutcomeDenied)
		return failure(fmt.Sprintf("You do not have permission to run '%s'.", kind), err)
	}
	args, err := operation.Decode(tc.Arguments)
	if err != nil {
		a.observe(string(kind), metrics.OutcomeInvalid)
		return failure("The assistant produced arguments I could not read. Please rephrase the request.", err)
	}
	if err := validate.Check(kind, args); err != nil {
		a.observe(string(kind), metrics.OutcomeInvalid)
		var ve *validate.Error
		if errors.As(err, &ve) {
			return failure("Errors:\n- "+strings.Join(ve.Problems, "\n- "), err)
		}
		return failure("The request is not valid.", err)
	}
	op, err := operation.Build(kind, args)
	if err != nil {
		a.observe(string(kind), metrics.OutcomeInvalid)
		return failure("The assistant produced incomplete arguments. Please rephrase the request.", err)
	}
	return a.submit(ctx, sess, op)
}

// submit executes reads immediately and parks mutations on the session.
func (a *Agent) submit(ctx context.Context, sess *Session, op operation.Operation) Reply {
	if err := permission.Check(sess.Role, op.Kind()); err != nil {
		a.observe(string(op.Kind()), metrics.OutcomeDenied)
		return failure(fmt.Sprintf("You do not have permission to run '%s'.", op.Kind()), err)
	}
	if !op.Kind().Mutating() {
		return a.execute(ctx, sess, op)
	}
	p := &PendingAction{
		Op:        op,
		Actor:     sess.Username,
		Prompt:    fmt.Sprintf("You are about to run %s. Confirm?", op),
		CreatedAt: a.now(),
	}
	sess.Pending = p
	a.observe(string(op.Kind()), metrics.OutcomeProposed)
	return Reply{Kind: ReplyPending, Text: p.Prompt, Pending: p}
}

func (a *Agent) confirm(ctx context.Context, sess *Session) Reply {
	p := sess.Pending
	if p == nil {
		return failure("There is nothing to confirm.", ErrNoPendingAction)
	}
	sess.Pending = nil
	if err := permission.Check(sess.Role, p.Op.Kind()); err != nil {
		a.observe(string(p.Op.Kind()), metrics.OutcomeDenied)
		return failure(fmt.Sprintf("You do not have permission to run '%s'.", p.Op.Kind()), err)
	}
	return a.execute(ctx, sess, p.Op)
}

func (a *Agent) cancel(sess *Session) Reply {
	p := sess.Pending
	if p == nil {
		return failure("There is nothing to cancel.", ErrNoPendingAction)
	}
	sess.Pending = nil
	a.observe(string(p.Op.Kind()), metrics.OutcomeRejected)
	return message(fmt.Sprintf("Cancelled %s. Nothing was changed.", p.Op.Kind()))
}

func (a *Agent) observe(op, outcome string) {
	if a.observer != nil {
		a.observer.ObserveOperation(op, outcome)
	}
}
