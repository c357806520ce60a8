package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/discord-kg/pipeline/internal/types"
)

// timeLayout is fixed-width UTC so stored timestamps compare correctly as
// strings and remain readable to SQLite's datetime functions.
const timeLayout = "2006-01-02 15:04:05.000"

const schema = `
CREATE TABLE IF NOT EXISTS llm_calls (
    call_id            TEXT PRIMARY KEY,
    session_id         TEXT,
    experiment_id      TEXT,
    workflow_step      TEXT NOT NULL,
    node               TEXT,
    segment_id         TEXT,
    template_type      TEXT,
    provider           TEXT NOT NULL,
    model_name         TEXT NOT NULL,
    request_timestamp  TEXT NOT NULL,
    response_timestamp TEXT,
    duration_ms        INTEGER,
    input_tokens       INTEGER DEFAULT 0,
    output_tokens      INTEGER DEFAULT 0,
    total_tokens       INTEGER DEFAULT 0,
    cost_usd           REAL DEFAULT 0.0,
    message_count      INTEGER DEFAULT 0,
    batch_size         INTEGER DEFAULT 0,
    triple_count       INTEGER DEFAULT 0,
    response_status    TEXT,
    retry_attempt      INTEGER DEFAULT 0,
    system_prompt      TEXT,
    user_prompt        TEXT,
    raw_response       TEXT,
    reasoning          TEXT,
    error_message      TEXT
);
CREATE INDEX IF NOT EXISTS idx_calls_timestamp ON llm_calls(request_timestamp);
CREATE INDEX IF NOT EXISTS idx_calls_provider_model ON llm_calls(provider, model_name);
CREATE INDEX IF NOT EXISTS idx_calls_workflow ON llm_calls(workflow_step, node);
CREATE INDEX IF NOT EXISTS idx_calls_session ON llm_calls(session_id);
CREATE INDEX IF NOT EXISTS idx_calls_status ON llm_calls(response_status);
`

// SQLiteConfig holds settings for the SQLite call store.
type SQLiteConfig struct {
	Path        string        `mapstructure:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout"`
	QueueSize   int           `mapstructure:"queue_size" yaml:"queue_size"`
	Workers     int           `mapstructure:"workers" yaml:"workers"`
	RetainDays  int           `mapstructure:"retain_days" yaml:"retain_days"`
}

// DefaultSQLiteConfig returns sensible defaults for the call store.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		QueueSize:   256,
		Workers:     2,
		RetainDays:  30,
	}
}

// SQLiteRecorder persists call records to a WAL-mode SQLite database. Writes
// are queued to background workers so recording never blocks a workflow
// node; when the queue is full the write happens synchronously instead of
// being dropped.
type SQLiteRecorder struct {
	db     *sql.DB
	cfg    SQLiteConfig
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]pendingCall

	queue    chan CallRecord
	wg       sync.WaitGroup
	inflight sync.WaitGroup
}

type pendingCall struct {
	cc      CallContext
	started time.Time
}

// NewSQLiteRecorder opens (creating if needed) the call store at the
// configured path and starts the write workers.
func NewSQLiteRecorder(cfg SQLiteConfig, logger *slog.Logger) (*SQLiteRecorder, error) {
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "failed to open call store", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "failed to ping call store", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, types.WrapError(types.STORE_OPEN_FAILED, "failed to initialize call store schema", err)
	}

	r := &SQLiteRecorder{
		db:      db,
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]pendingCall),
		queue:   make(chan CallRecord, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.writeLoop()
	}
	return r, nil
}

func (r *SQLiteRecorder) writeLoop() {
	defer r.wg.Done()
	for record := range r.queue {
		if err := r.insert(record); err != nil {
			r.logger.Error("failed to store call record", "call_id", record.CallID, "error", err)
		}
		r.inflight.Done()
	}
}

// StartCall opens a record. The call id is returned immediately; nothing is
// written until EndCall.
func (r *SQLiteRecorder) StartCall(cc CallContext) string {
	id := types.NewID().String()
	r.mu.Lock()
	r.pending[id] = pendingCall{cc: cc, started: time.Now().UTC()}
	r.mu.Unlock()
	return id
}

// EndCall completes and enqueues the record. Unknown ids are ignored.
func (r *SQLiteRecorder) EndCall(callID string, completion Completion) {
	r.mu.Lock()
	p, ok := r.pending[callID]
	delete(r.pending, callID)
	r.mu.Unlock()
	if !ok {
		return
	}

	now := time.Now().UTC()
	record := CallRecord{
		CallID:            callID,
		CallContext:       p.cc,
		Completion:        completion,
		RequestTimestamp:  p.started,
		ResponseTimestamp: now,
		DurationMS:        now.Sub(p.started).Milliseconds(),
	}

	r.inflight.Add(1)
	select {
	case r.queue <- record:
	default:
		// Queue full: write in the caller's goroutine rather than drop.
		if err := r.insert(record); err != nil {
			r.logger.Error("failed to store call record", "call_id", record.CallID, "error", err)
		}
		r.inflight.Done()
	}
}

// UpdateReasoning back-fills the reasoning column of a stored call. Queued
// writes are flushed first so the update cannot be clobbered by a pending
// insert of the same record.
func (r *SQLiteRecorder) UpdateReasoning(callID, reasoning string) {
	if callID == "" || reasoning == "" {
		return
	}
	r.Flush()
	if _, err := r.db.Exec(`UPDATE llm_calls SET reasoning = ? WHERE call_id = ?`, reasoning, callID); err != nil {
		r.logger.Error("failed to update call reasoning", "call_id", callID, "error", err)
	}
}

// UpdateTripleCount back-fills the parsed triple count of a stored call.
func (r *SQLiteRecorder) UpdateTripleCount(callID string, count int) {
	if callID == "" {
		return
	}
	r.Flush()
	if _, err := r.db.Exec(`UPDATE llm_calls SET triple_count = ? WHERE call_id = ?`, count, callID); err != nil {
		r.logger.Error("failed to update call triple count", "call_id", callID, "error", err)
	}
}

// Flush blocks until every queued record has been written.
func (r *SQLiteRecorder) Flush() {
	r.inflight.Wait()
}

// Close drains the queue, stops the workers, and closes the database.
func (r *SQLiteRecorder) Close() error {
	close(r.queue)
	r.wg.Wait()
	return r.db.Close()
}

func (r *SQLiteRecorder) insert(rec CallRecord) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO llm_calls (
			call_id, session_id, experiment_id,
			workflow_step, node, segment_id, template_type,
			provider, model_name,
			request_timestamp, response_timestamp, duration_ms,
			input_tokens, output_tokens, total_tokens, cost_usd,
			message_count, batch_size, triple_count,
			response_status, retry_attempt,
			system_prompt, user_prompt, raw_response, reasoning, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID, rec.SessionID, rec.ExperimentID,
		rec.WorkflowStep, rec.Node, rec.SegmentID, rec.TemplateType,
		rec.Provider, rec.Model,
		rec.RequestTimestamp.Format(timeLayout),
		rec.ResponseTimestamp.Format(timeLayout),
		rec.DurationMS,
		rec.InputTokens, rec.OutputTokens, rec.TotalTokens, rec.CostUSD,
		rec.MessageCount, rec.BatchSize, rec.TripleCount,
		rec.Status, rec.RetryAttempt,
		rec.SystemPrompt, rec.UserPrompt, rec.RawResponse, rec.Reasoning, rec.ErrorMessage,
	)
	if err != nil {
		return types.WrapError(types.STORE_WRITE_FAILED, "insert call record", err)
	}
	return nil
}

// Filter narrows Query and Summary results. Zero fields are ignored.
type Filter struct {
	SessionID    string
	ExperimentID string
	Provider     string
	Model        string
	WorkflowStep string
	Status       string
	Since        time.Time
	Limit        int
	Offset       int
}

func (f Filter) whereClause() (string, []any) {
	var clauses []string
	var args []any
	add := func(column, value string) {
		if value != "" {
			clauses = append(clauses, column+" = ?")
			args = append(args, value)
		}
	}
	add("session_id", f.SessionID)
	add("experiment_id", f.ExperimentID)
	add("provider", f.Provider)
	add("model_name", f.Model)
	add("workflow_step", f.WorkflowStep)
	add("response_status", f.Status)
	if !f.Since.IsZero() {
		clauses = append(clauses, "request_timestamp >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Query returns stored calls matching the filter, newest first.
func (r *SQLiteRecorder) Query(ctx context.Context, f Filter) ([]CallRecord, error) {
	where, args := f.whereClause()
	query := `
		SELECT call_id, session_id, experiment_id,
		       workflow_step, node, segment_id, template_type,
		       provider, model_name,
		       request_timestamp, response_timestamp, duration_ms,
		       input_tokens, output_tokens, total_tokens, cost_usd,
		       message_count, batch_size, triple_count,
		       response_status, retry_attempt,
		       system_prompt, user_prompt, raw_response, reasoning, error_message
		FROM llm_calls` + where + ` ORDER BY request_timestamp DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "query call records", err)
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var rec CallRecord
		var reqTS, respTS string
		if err := rows.Scan(
			&rec.CallID, &rec.SessionID, &rec.ExperimentID,
			&rec.WorkflowStep, &rec.Node, &rec.SegmentID, &rec.TemplateType,
			&rec.Provider, &rec.Model,
			&reqTS, &respTS, &rec.DurationMS,
			&rec.InputTokens, &rec.OutputTokens, &rec.TotalTokens, &rec.CostUSD,
			&rec.MessageCount, &rec.BatchSize, &rec.TripleCount,
			&rec.Status, &rec.RetryAttempt,
			&rec.SystemPrompt, &rec.UserPrompt, &rec.RawResponse, &rec.Reasoning, &rec.ErrorMessage,
		); err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "scan call record", err)
		}
		rec.RequestTimestamp, _ = time.Parse(timeLayout, reqTS)
		rec.ResponseTimestamp, _ = time.Parse(timeLayout, respTS)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SummaryRow aggregates stored calls for one provider/model pair.
type SummaryRow struct {
	Provider      string  `json:"provider"`
	Model         string  `json:"model_name"`
	TotalCalls    int     `json:"total_calls"`
	TotalTokens   int     `json:"total_tokens"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	TotalMessages int     `json:"total_messages"`
	TotalTriples  int     `json:"total_triples"`
}

// Summary aggregates matching calls grouped by provider and model.
func (r *SQLiteRecorder) Summary(ctx context.Context, f Filter) ([]SummaryRow, error) {
	where, args := f.whereClause()
	query := `
		SELECT provider, model_name,
		       COUNT(*),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COALESCE(AVG(duration_ms), 0),
		       COALESCE(SUM(message_count), 0),
		       COALESCE(SUM(triple_count), 0)
		FROM llm_calls` + where + ` GROUP BY provider, model_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.WrapError(types.STORE_QUERY_FAILED, "summarize call records", err)
	}
	defer rows.Close()

	var summary []SummaryRow
	for rows.Next() {
		var row SummaryRow
		if err := rows.Scan(
			&row.Provider, &row.Model,
			&row.TotalCalls, &row.TotalTokens, &row.TotalCostUSD,
			&row.AvgDurationMS, &row.TotalMessages, &row.TotalTriples,
		); err != nil {
			return nil, types.WrapError(types.STORE_QUERY_FAILED, "scan summary row", err)
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

// Prune deletes records older than the given number of days (the configured
// retention when days <= 0) and reclaims the space. Returns the number of
// deleted records.
func (r *SQLiteRecorder) Prune(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = r.cfg.RetainDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)

	res, err := r.db.ExecContext(ctx, `DELETE FROM llm_calls WHERE request_timestamp < ?`, cutoff)
	if err != nil {
		return 0, types.WrapError(types.STORE_WRITE_FAILED, "prune call records", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := r.db.ExecContext(ctx, "VACUUM"); err != nil {
		return deleted, types.WrapError(types.STORE_WRITE_FAILED, "vacuum call store", err)
	}
	return deleted, nil
}
