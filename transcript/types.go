package transcript

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Transcript errors
var (
	ErrRunNotFound      = errors.New("run not found")
	ErrRunAlreadyExists = errors.New("run already exists")
	ErrRunNotStarted    = errors.New("run not started")
)

// RunStatus indicates the outcome of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusRejected  RunStatus = "rejected"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Transcript is the complete record of one pipeline run
type Transcript struct {
	RunID    string `json:"runId"`
	Metadata Meta   `json:"metadata"`
	Turns    []Turn `json:"turns"`
}

// Meta contains run metadata
type Meta struct {
	RunID          string         `json:"runId,omitempty"`
	Channel        string         `json:"channel"`
	Source         string         `json:"source,omitempty"`
	Node           string         `json:"node,omitempty"`
	Input          map[string]any `json:"input,omitempty"`
	StartedAt      time.Time      `json:"startedAt"`
	EndedAt        time.Time      `json:"endedAt,omitempty"`
	Status         RunStatus      `json:"status"`
	TotalTokensIn  int            `json:"totalTokensIn"`
	TotalTokensOut int            `json:"totalTokensOut"`
	TotalCost      float64        `json:"totalCost"`
	TurnCount      int            `json:"turnCount"`
	TicketID       string         `json:"ticketId,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Turn is one step of a run: a node execution or a model exchange
type Turn struct {
	ID         int        `json:"id"`
	Role       string     `json:"role"` // system, user, assistant, node
	Content    string     `json:"content"`
	TokensIn   int        `json:"tokensIn,omitempty"`
	TokensOut  int        `json:"tokensOut,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	DurationMs int64      `json:"durationMs,omitempty"`
}

// ToolCall records an external call made during a turn, such as a ticket
// create or lookup
type ToolCall struct {
	ID     string         `json:"id,omitempty"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Output string         `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// RunMetadata is input for starting a new run
type RunMetadata struct {
	Channel string
	Source  string
	Input   map[string]any
}

// NewTranscript creates a new transcript
func NewTranscript(runID, channel string) *Transcript {
	return &Transcript{
		RunID: runID,
		Metadata: Meta{
			RunID:     runID,
			Channel:   channel,
			StartedAt: time.Now(),
			Status:    RunStatusRunning,
		},
		Turns: make([]Turn, 0),
	}
}

// AddTurn adds a turn with full control over fields
func (t *Transcript) AddTurn(turn Turn) *Turn {
	turn.ID = len(t.Turns) + 1
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	// Update token counts. Node turns carry the full delta of the calls
	// they made, so both directions count.
	switch turn.Role {
	case "user", "system":
		t.Metadata.TotalTokensIn += turn.TokensIn
	case "assistant":
		t.Metadata.TotalTokensOut += turn.TokensOut
	case "node":
		t.Metadata.TotalTokensIn += turn.TokensIn
		t.Metadata.TotalTokensOut += turn.TokensOut
	}

	t.Turns = append(t.Turns, turn)
	t.Metadata.TurnCount = len(t.Turns)
	return &t.Turns[len(t.Turns)-1]
}

// AddToolCall attaches a tool call to the last turn
func (t *Transcript) AddToolCall(tc ToolCall) {
	if len(t.Turns) == 0 {
		return
	}
	last := &t.Turns[len(t.Turns)-1]
	last.ToolCalls = append(last.ToolCalls, tc)
}

// AddCost adds to the total cost
func (t *Transcript) AddCost(cost float64) {
	t.Metadata.TotalCost += cost
}

// SetTicket records the created ticket on the run metadata
func (t *Transcript) SetTicket(ticketID string) {
	t.Metadata.TicketID = ticketID
}

// Complete marks the transcript as completed
func (t *Transcript) Complete() {
	t.Metadata.Status = RunStatusCompleted
	t.Metadata.EndedAt = time.Now()
}

// Fail marks the transcript as failed
func (t *Transcript) Fail(err error) {
	t.Metadata.Status = RunStatusFailed
	t.Metadata.EndedAt = time.Now()
	if err != nil {
		t.Metadata.Error = err.Error()
	}
}

// Duration returns the run duration
func (t *Transcript) Duration() time.Duration {
	if t.Metadata.EndedAt.IsZero() {
		return time.Since(t.Metadata.StartedAt)
	}
	return t.Metadata.EndedAt.Sub(t.Metadata.StartedAt)
}

// IsActive returns true if the run is still in progress
func (t *Transcript) IsActive() bool {
	return t.Metadata.Status == RunStatusRunning
}

// LastTurn returns the last turn or nil
func (t *Transcript) LastTurn() *Turn {
	if len(t.Turns) == 0 {
		return nil
	}
	return &t.Turns[len(t.Turns)-1]
}

// TurnsByRole returns all turns with the given role
func (t *Transcript) TurnsByRole(role string) []Turn {
	var result []Turn
	for _, turn := range t.Turns {
		if turn.Role == role {
			result = append(result, turn)
		}
	}
	return result
}

// compressionThreshold is the size above which transcripts are compressed
const compressionThreshold = 100 * 1024 // 100KB

// Save writes the transcript to disk
func (t *Transcript) Save(baseDir string) error {
	runDir := filepath.Join(baseDir, "runs", t.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}

	// Compress if large
	if len(data) > compressionThreshold {
		return t.saveCompressed(runDir, data)
	}

	// Remove compressed version if it exists
	os.Remove(filepath.Join(runDir, "transcript.json.gz"))

	return os.WriteFile(filepath.Join(runDir, "transcript.json"), data, 0644)
}

func (t *Transcript) saveCompressed(runDir string, data []byte) error {
	// Remove uncompressed version if it exists
	os.Remove(filepath.Join(runDir, "transcript.json"))

	f, err := os.Create(filepath.Join(runDir, "transcript.json.gz"))
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	_, err = gz.Write(data)
	return err
}

// Load loads a transcript from disk
func Load(baseDir, runID string) (*Transcript, error) {
	runDir := filepath.Join(baseDir, "runs", runID)

	// Try compressed first
	data, err := loadCompressed(filepath.Join(runDir, "transcript.json.gz"))
	if err != nil {
		// Try uncompressed
		data, err = os.ReadFile(filepath.Join(runDir, "transcript.json"))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrRunNotFound
			}
			return nil, err
		}
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

func loadCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}
