package alertflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/randalmurphal/alertflow/alert"
	"github.com/randalmurphal/alertflow/artifact"
	"github.com/randalmurphal/alertflow/extract"
	"github.com/randalmurphal/alertflow/notify"
	"github.com/randalmurphal/alertflow/ticket"
	"github.com/randalmurphal/alertflow/transcript"
)

// =============================================================================
// Nodes
// =============================================================================

// Node identifies one step of the alert-to-ticket workflow.
type Node string

// Workflow nodes. Start and End mark the boundaries and have no
// handler; everything in between maps to exactly one handler.
const (
	NodeStart                Node = "start"
	NodeValidating           Node = "validating"
	NodeRejected             Node = "rejected"
	NodeExtracting           Node = "extracting"
	NodeCheckingCompleteness Node = "checking_completeness"
	NodeInferring            Node = "inferring"
	NodeCreating             Node = "creating"
	NodeBackoffWaiting       Node = "backoff_waiting"
	NodeVerifying            Node = "verifying"
	NodeFailed               Node = "failed"
	NodeFormatting           Node = "formatting"
	NodeEnd                  Node = "end"
)

// =============================================================================
// Policy
// =============================================================================

// Policy bounds the workflow's loops and shapes retry behavior.
type Policy struct {
	// MaxInferenceAttempts bounds the completeness repair loop.
	MaxInferenceAttempts int

	// MaxCreateRetries bounds transient creation retries. The first
	// attempt does not count as a retry.
	MaxCreateRetries int

	// BackoffBase and BackoffCap shape the delay before the nth retry:
	// min(BackoffBase * 2^(n-1), BackoffCap).
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// CreateIncomplete files the ticket even when required fields are
	// still missing after the inference budget. When false the run
	// fails instead of filing a partial ticket.
	CreateIncomplete bool
}

// DefaultPolicy returns the standard bounds.
func DefaultPolicy() Policy {
	return Policy{
		MaxInferenceAttempts: 2,
		MaxCreateRetries:     5,
		BackoffBase:          2 * time.Second,
		BackoffCap:           16 * time.Second,
		CreateIncomplete:     true,
	}
}

// DefaultRequiredLabels are the category labels a complete ticket must
// carry at least one of.
var DefaultRequiredLabels = []string{"bug", "mobile"}

// Default per-call timeouts for the external services.
const (
	DefaultExtractTimeout = 60 * time.Second
	DefaultCreateTimeout  = 30 * time.Second
	DefaultVerifyTimeout  = 15 * time.Second
)

// maxMachineSteps is the hard bound on node executions per run. The
// worst legal path (full inference loop plus exhausted retries) stays
// well under it.
const maxMachineSteps = 64

// =============================================================================
// Transitions
// =============================================================================

// Transition returns the node that follows from, given the current
// state. Pure function of its inputs: it inspects state and policy and
// never mutates either. End is absorbing; unknown nodes route to
// Formatting so a response is produced no matter what.
func Transition(s WorkflowState, from Node, p Policy) Node {
	switch from {
	case NodeStart:
		return NodeValidating

	case NodeValidating:
		if !s.IsValidSource {
			return NodeRejected
		}
		return NodeExtracting

	case NodeRejected:
		return NodeFormatting

	case NodeExtracting:
		if s.HasError() {
			return NodeFormatting
		}
		return NodeCheckingCompleteness

	case NodeCheckingCompleteness:
		if s.IsComplete {
			return NodeCreating
		}
		if s.CanInfer(p.MaxInferenceAttempts) {
			return NodeInferring
		}
		if p.CreateIncomplete {
			return NodeCreating
		}
		return NodeFailed

	case NodeInferring:
		return NodeCheckingCompleteness

	case NodeCreating:
		if s.TicketID != "" {
			return NodeVerifying
		}
		if s.PendingRetry {
			return NodeBackoffWaiting
		}
		return NodeFailed

	case NodeBackoffWaiting:
		return NodeCreating

	case NodeVerifying:
		return NodeFormatting

	case NodeFailed:
		return NodeFormatting

	case NodeFormatting:
		return NodeEnd

	case NodeEnd:
		return NodeEnd

	default:
		return NodeFormatting
	}
}

// backoffDelay computes the delay before the nth retry:
// min(base * 2^(n-1), limit). Zero for retry < 1.
func backoffDelay(retry int, base, limit time.Duration) time.Duration {
	if retry < 1 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if limit > 0 && d >= limit {
			return limit
		}
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}

// =============================================================================
// Machine
// =============================================================================

// Machine runs inbound alert messages through the workflow. A single
// Machine is safe for concurrent use: each run owns its state and the
// configuration is read-only after construction.
type Machine struct {
	extractor extract.Service
	tickets   ticket.Client

	policy         Policy
	channel        string
	markers        []string
	requiredLabels []string
	project        string

	extractTimeout time.Duration
	createTimeout  time.Duration
	verifyTimeout  time.Duration

	logger      *slog.Logger
	notifier    notify.Notifier
	transcripts transcript.Manager
	artifacts   *artifact.Manager

	handlers map[Node]NodeFunc
}

// Option configures a Machine.
type Option func(*Machine)

// WithPolicy overrides the loop and retry bounds.
func WithPolicy(p Policy) Option {
	return func(m *Machine) { m.policy = p }
}

// WithChannel sets the monitoring channel accepted by validation.
func WithChannel(channel string) Option {
	return func(m *Machine) { m.channel = channel }
}

// WithMarkers sets the source markers accepted by validation.
func WithMarkers(markers []string) Option {
	return func(m *Machine) { m.markers = markers }
}

// WithRequiredLabels sets the category labels checked for completeness.
func WithRequiredLabels(labels []string) Option {
	return func(m *Machine) { m.requiredLabels = labels }
}

// WithProject sets the tracker project tickets are filed under.
func WithProject(project string) Option {
	return func(m *Machine) { m.project = project }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithNotifier sets the event notifier. When unset the machine falls
// back to the notifier carried by the run context, if any.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Machine) { m.notifier = n }
}

// WithTranscripts sets the transcript manager. When unset the machine
// falls back to the manager carried by the run context, if any.
func WithTranscripts(tm transcript.Manager) Option {
	return func(m *Machine) { m.transcripts = tm }
}

// WithArtifacts sets the artifact manager. When unset the machine
// falls back to the manager carried by the run context, if any.
func WithArtifacts(am *artifact.Manager) Option {
	return func(m *Machine) { m.artifacts = am }
}

// WithExtractTimeout bounds extraction and inference calls.
func WithExtractTimeout(d time.Duration) Option {
	return func(m *Machine) { m.extractTimeout = d }
}

// WithCreateTimeout bounds each ticket creation attempt.
func WithCreateTimeout(d time.Duration) Option {
	return func(m *Machine) { m.createTimeout = d }
}

// WithVerifyTimeout bounds the verification fetch.
func WithVerifyTimeout(d time.Duration) Option {
	return func(m *Machine) { m.verifyTimeout = d }
}

// NewMachine builds a workflow machine around the two required external
// services. All other collaborators are optional.
func NewMachine(extractor extract.Service, tickets ticket.Client, opts ...Option) (*Machine, error) {
	if extractor == nil {
		return nil, ErrNoExtractor
	}
	if tickets == nil {
		return nil, ErrNoTicketClient
	}

	m := &Machine{
		extractor:      extractor,
		tickets:        tickets,
		policy:         DefaultPolicy(),
		channel:        alert.DefaultChannel,
		markers:        alert.DefaultMarkers,
		requiredLabels: DefaultRequiredLabels,
		project:        ticket.DefaultProject,
		extractTimeout: DefaultExtractTimeout,
		createTimeout:  DefaultCreateTimeout,
		verifyTimeout:  DefaultVerifyTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}

	m.handlers = map[Node]NodeFunc{
		NodeValidating:           m.wrap(NodeValidating, m.validateSourceNode),
		NodeRejected:             m.wrap(NodeRejected, m.rejectedNode),
		NodeExtracting:           m.wrap(NodeExtracting, m.extractInfoNode),
		NodeCheckingCompleteness: m.wrap(NodeCheckingCompleteness, m.checkCompletenessNode),
		NodeInferring:            m.wrap(NodeInferring, m.inferMissingNode),
		NodeCreating:             m.wrap(NodeCreating, m.createTicketNode),
		NodeBackoffWaiting:       m.wrap(NodeBackoffWaiting, m.backoffWaitNode),
		NodeVerifying:            m.wrap(NodeVerifying, m.verifyTicketNode),
		NodeFailed:               m.wrap(NodeFailed, m.failedNode),
		NodeFormatting:           m.wrap(NodeFormatting, m.formatResponseNode),
	}
	return m, nil
}

// Policy returns the machine's effective policy.
func (m *Machine) Policy() Policy {
	return m.policy
}

// Run executes the workflow for one inbound message and returns the
// terminal state, which always carries a non-empty FinalResponse.
//
// Workflow failures do not surface through the error return - they are
// recorded in the state and described by FinalResponse. The error
// return reports invariant violations (unknown node, step bound) and
// context cancellation only.
func (m *Machine) Run(ctx context.Context, msg alert.Message) (WorkflowState, error) {
	s := NewWorkflowState(msg.Text, msg.Channel)
	m.begin(ctx, s)

	node := NodeStart
	for steps := 0; ; steps++ {
		if steps > maxMachineSteps {
			return s, fmt.Errorf("%w: %d steps, at node %q", ErrStepLimit, steps, node)
		}

		node = Transition(s, node, m.policy)
		if node == NodeEnd {
			break
		}

		handler, ok := m.handlers[node]
		if !ok {
			return s, fmt.Errorf("no handler for node %q", node)
		}

		var err error
		s, err = handler(ctx, s)
		if node != NodeFailed && node != NodeFormatting {
			s.LastNode = node
		}
		if err != nil {
			s.SetError(err)
			if node == NodeFormatting {
				// The formatter is pure and must not fail. Bail out
				// rather than route back into the machine.
				return s, err
			}
			node = NodeFailed
		}
	}

	m.finish(ctx, &s)

	if err := ctx.Err(); err != nil {
		return s, err
	}
	return s, nil
}

// =============================================================================
// Run bookkeeping
// =============================================================================

func (m *Machine) begin(ctx context.Context, s WorkflowState) {
	m.logger.Info("run started", "runId", s.RunID, "channel", s.Channel)

	if tm := m.transcriptManager(ctx); tm != nil {
		err := tm.StartRun(s.RunID, transcript.RunMetadata{
			Channel: s.Channel,
			Source:  "slack",
			Input:   map[string]any{"text": s.RawMessage},
		})
		if err != nil {
			m.logger.Warn("transcript start failed", "runId", s.RunID, "error", err)
		}
	}

	if am := m.artifactManager(ctx); am != nil {
		msg := alert.Message{Text: s.RawMessage, Channel: s.Channel}
		if err := am.SaveJSON(s.RunID, artifact.NameAlert, msg); err != nil {
			m.logger.Warn("artifact save failed", "runId", s.RunID, "artifact", artifact.NameAlert, "error", err)
		}
	}

	if n := m.notifierFor(ctx); n != nil {
		ev := notify.NewEvent(notify.EventRunStarted, s.RunID, "Alert processing started")
		ev.Channel = s.Channel
		_ = n.Notify(ctx, ev)
	}
}

func (m *Machine) finish(ctx context.Context, s *WorkflowState) {
	s.FinalizeDuration()
	status := terminalStatus(*s)

	m.logger.Info("run finished",
		"runId", s.RunID,
		"status", string(status),
		"ticketId", s.TicketID,
		"duration", s.TotalDuration,
		"tokensIn", s.TotalTokensIn,
		"tokensOut", s.TotalTokensOut,
	)

	if tm := m.transcriptManager(ctx); tm != nil {
		if s.TicketID != "" {
			if err := tm.RecordTicket(s.RunID, s.TicketID); err != nil {
				m.logger.Warn("transcript ticket record failed", "runId", s.RunID, "error", err)
			}
		}
		if s.TotalCost > 0 {
			if err := tm.AddCost(s.RunID, s.TotalCost); err != nil {
				m.logger.Warn("transcript cost record failed", "runId", s.RunID, "error", err)
			}
		}
		var err error
		if status == transcript.RunStatusFailed && s.HasError() {
			err = tm.EndRunWithError(s.RunID, errors.New(s.Error))
		} else {
			err = tm.EndRun(s.RunID, status)
		}
		if err != nil {
			m.logger.Warn("transcript end failed", "runId", s.RunID, "error", err)
		}
	}

	if am := m.artifactManager(ctx); am != nil {
		if s.TicketInfo != nil {
			if err := am.SaveJSON(s.RunID, artifact.NameExtraction, s.TicketInfo); err != nil {
				m.logger.Warn("artifact save failed", "runId", s.RunID, "artifact", artifact.NameExtraction, "error", err)
			}
		}
		if s.TicketID != "" {
			created := ticket.Created{ID: s.TicketID, URL: s.TicketURL}
			if err := am.SaveJSON(s.RunID, artifact.NameTicket, created); err != nil {
				m.logger.Warn("artifact save failed", "runId", s.RunID, "artifact", artifact.NameTicket, "error", err)
			}
		}
		if err := am.Save(s.RunID, artifact.NameResponse, []byte(s.FinalResponse)); err != nil {
			m.logger.Warn("artifact save failed", "runId", s.RunID, "artifact", artifact.NameResponse, "error", err)
		}
	}

	if n := m.notifierFor(ctx); n != nil {
		_ = n.Notify(ctx, m.finalEvent(*s, status))
	}
}

// terminalStatus classifies the run outcome. A verified-missing ticket
// still counts as completed: the tracker accepted the write.
func terminalStatus(s WorkflowState) transcript.RunStatus {
	switch {
	case !s.IsValidSource:
		return transcript.RunStatusRejected
	case s.TicketID != "":
		return transcript.RunStatusCompleted
	default:
		return transcript.RunStatusFailed
	}
}

func (m *Machine) finalEvent(s WorkflowState, status transcript.RunStatus) notify.Event {
	meta := map[string]any{
		"tokensIn":  s.TotalTokensIn,
		"tokensOut": s.TotalTokensOut,
		"cost":      s.TotalCost,
	}
	if s.TicketID != "" {
		meta["ticketId"] = s.TicketID
		meta["ticketUrl"] = s.TicketURL
	}

	var ev notify.Event
	switch status {
	case transcript.RunStatusRejected:
		ev = notify.NewEvent(notify.EventRunRejected, s.RunID, s.FinalResponse)
		ev.Severity = notify.SeverityWarning
	case transcript.RunStatusCompleted:
		ev = notify.NewEvent(notify.EventRunCompleted, s.RunID, "Alert processed successfully")
	default:
		ev = notify.NewEvent(notify.EventRunFailed, s.RunID, s.Error)
		ev.Severity = notify.SeverityError
	}
	ev.Channel = s.Channel
	ev.Node = string(s.LastNode)
	ev.Metadata = meta
	return notify.WithAdvice(ev)
}

// =============================================================================
// Optional service resolution
// =============================================================================

// Explicitly configured services win; otherwise the run context may
// carry them.

func (m *Machine) notifierFor(ctx context.Context) notify.Notifier {
	if m.notifier != nil {
		return m.notifier
	}
	return notify.NotifierFromContext(ctx)
}

func (m *Machine) transcriptManager(ctx context.Context) transcript.Manager {
	if m.transcripts != nil {
		return m.transcripts
	}
	return transcript.ManagerFromContext(ctx)
}

func (m *Machine) artifactManager(ctx context.Context) *artifact.Manager {
	if m.artifacts != nil {
		return m.artifacts
	}
	return artifact.ManagerFromContext(ctx)
}
