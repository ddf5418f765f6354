package simulation

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"diffusion-sim/model"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	EventReceive   = "receive"
	EventReReceive = "rereceive"
	EventPropagate = "propagate"
	EventDiscard   = "discard"
)

// IterationRecord is the counter row of one stored iteration
type IterationRecord struct {
	Step                int
	Timestamp           *int64
	NumPropagated       int
	NumPropagatingUsers int
	NewlyPropagated     int64
	NewlySeen           int
	NumReReceived       int
	NumDiscarded        int
	TotalPropagated     int64
}

// EventRecord is one user/piece event; Carriers is only set for receipts
type EventRecord struct {
	Step     int
	Type     string
	User     int64
	Piece    int64
	Carriers []int64
}

// EventDB stores the iteration log of scenario runs in sqlite. Iterations
// are buffered and written in one transaction per batch.
type EventDB struct {
	db        *sql.DB
	cacheSize int
	pending   []pendingIteration
}

type pendingIteration struct {
	runID string
	it    *model.Iteration[int64, int64]
}

var schema = []struct{ name, stmt string }{
	{"runs", `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			seed INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`},
	{"iterations", `
		CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			timestamp INTEGER,
			num_propagated INTEGER NOT NULL,
			num_propagating_users INTEGER NOT NULL,
			newly_propagated INTEGER NOT NULL,
			newly_seen INTEGER NOT NULL,
			num_rereceived INTEGER NOT NULL,
			num_discarded INTEGER NOT NULL,
			total_propagated INTEGER NOT NULL,
			PRIMARY KEY (run_id, step),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)
	`},
	{"iteration_events", `
		CREATE TABLE IF NOT EXISTS iteration_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			type TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			piece_id INTEGER NOT NULL,
			FOREIGN KEY (run_id, step) REFERENCES iterations(run_id, step) ON DELETE CASCADE
		)
	`},
	// carrier lists are msgpack encoded
	{"receipt_carriers", `
		CREATE TABLE IF NOT EXISTS receipt_carriers (
			event_id INTEGER PRIMARY KEY,
			data BLOB NOT NULL,
			FOREIGN KEY (event_id) REFERENCES iteration_events(id) ON DELETE CASCADE
		)
	`},
}

// OpenEventDB opens or creates the database. Iterations are flushed every
// cacheSize stores; values below 1 write through.
func OpenEventDB(filename string, cacheSize int) (*EventDB, error) {
	// foreign keys are a per-connection setting
	db, err := sql.Open("sqlite3", filename+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, table := range schema {
		if _, err := db.Exec(table.stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	return &EventDB{db: db, cacheSize: max(cacheSize, 1)}, nil
}

// Close flushes pending iterations and closes the connection
func (edb *EventDB) Close() error {
	flushErr := edb.Flush()
	return errors.Join(flushErr, edb.db.Close())
}

// EnsureRun returns the id of the run with the given name, registering it
// with a fresh uuid if it does not exist yet
func (edb *EventDB) EnsureRun(name string, seed int64) (string, error) {
	var id string
	err := edb.db.QueryRow("SELECT id FROM runs WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to query run: %w", err)
	}

	id = uuid.New().String()
	_, err = edb.db.Exec(
		"INSERT INTO runs (id, name, seed, created_at) VALUES (?, ?, ?, ?)",
		id, name, seed, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RunID looks up a run by name
func (edb *EventDB) RunID(name string) (string, error) {
	var id string
	err := edb.db.QueryRow("SELECT id FROM runs WHERE name = ?", name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to find run %q: %w", name, err)
	}
	return id, nil
}

// StoreIteration queues an iteration and flushes when the cache is full
func (edb *EventDB) StoreIteration(runID string, it *model.Iteration[int64, int64]) error {
	edb.pending = append(edb.pending, pendingIteration{runID: runID, it: it})
	if len(edb.pending) >= edb.cacheSize {
		return edb.Flush()
	}
	return nil
}

// Flush writes all queued iterations in a single transaction
func (edb *EventDB) Flush() (err error) {
	if len(edb.pending) == 0 {
		return nil
	}

	tx, err := edb.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, p := range edb.pending {
		if err = storeIteration(tx, p.runID, p.it); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit iterations: %w", err)
	}
	edb.pending = edb.pending[:0]
	return nil
}

func storeIteration(tx *sql.Tx, runID string, it *model.Iteration[int64, int64]) error {
	var ts sql.NullInt64
	if it.Timestamp != nil {
		ts = sql.NullInt64{Int64: *it.Timestamp, Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO iterations (
			run_id, step, timestamp, num_propagated, num_propagating_users,
			newly_propagated, newly_seen, num_rereceived, num_discarded, total_propagated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, it.Index, ts, it.NumPropagated, it.NumPropagatingUsers,
		it.NewlyPropagated, it.NewlySeen, it.NumReReceived, it.NumDiscarded, it.TotalPropagated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert iteration %d: %w", it.Index, err)
	}

	insertEvent := func(typ string, user, piece int64) (int64, error) {
		result, err := tx.Exec(
			"INSERT INTO iteration_events (run_id, step, type, user_id, piece_id) VALUES (?, ?, ?, ?, ?)",
			runID, it.Index, typ, user, piece,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s event: %w", typ, err)
		}
		return result.LastInsertId()
	}

	receipts := func(typ string, list []model.UserReceipts[int64, int64]) error {
		for _, ur := range list {
			for _, r := range ur.Pieces {
				eventID, err := insertEvent(typ, ur.User, r.Piece)
				if err != nil {
					return err
				}
				data, err := msgpack.Marshal(r.Carriers)
				if err != nil {
					return fmt.Errorf("failed to marshal carriers: %w", err)
				}
				_, err = tx.Exec("INSERT INTO receipt_carriers (event_id, data) VALUES (?, ?)", eventID, data)
				if err != nil {
					return fmt.Errorf("failed to insert carriers: %w", err)
				}
			}
		}
		return nil
	}

	pieces := func(typ string, list []model.UserPieces[int64, int64]) error {
		for _, up := range list {
			for _, piece := range up.Pieces {
				if _, err := insertEvent(typ, up.User, piece); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := receipts(EventReceive, it.Receiving); err != nil {
		return err
	}
	if err := receipts(EventReReceive, it.ReReceiving); err != nil {
		return err
	}
	if err := pieces(EventPropagate, it.Propagating); err != nil {
		return err
	}
	return pieces(EventDiscard, it.Discarding)
}

// DeleteIterationsFrom removes every iteration of the run with an index at
// or after step, together with their events
func (edb *EventDB) DeleteIterationsFrom(runID string, step int) error {
	if err := edb.Flush(); err != nil {
		return err
	}
	_, err := edb.db.Exec("DELETE FROM iterations WHERE run_id = ? AND step >= ?", runID, step)
	if err != nil {
		return fmt.Errorf("failed to delete iterations: %w", err)
	}
	return nil
}

// GetIterations returns the counter rows of a run ordered by step
func (edb *EventDB) GetIterations(runID string) ([]IterationRecord, error) {
	rows, err := edb.db.Query(`
		SELECT step, timestamp, num_propagated, num_propagating_users, newly_propagated,
			newly_seen, num_rereceived, num_discarded, total_propagated
		FROM iterations WHERE run_id = ?
		ORDER BY step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query iterations: %w", err)
	}
	defer rows.Close()

	var records []IterationRecord
	for rows.Next() {
		var r IterationRecord
		var ts sql.NullInt64
		err := rows.Scan(&r.Step, &ts, &r.NumPropagated, &r.NumPropagatingUsers, &r.NewlyPropagated,
			&r.NewlySeen, &r.NumReReceived, &r.NumDiscarded, &r.TotalPropagated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan iteration: %w", err)
		}
		if ts.Valid {
			v := ts.Int64
			r.Timestamp = &v
		}
		records = append(records, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating iterations: %w", err)
	}
	return records, nil
}

// GetEvents returns the events of one iteration in insertion order
func (edb *EventDB) GetEvents(runID string, step int) ([]EventRecord, error) {
	rows, err := edb.db.Query(`
		SELECT e.type, e.user_id, e.piece_id, c.data
		FROM iteration_events e
		LEFT JOIN receipt_carriers c ON c.event_id = e.id
		WHERE e.run_id = ? AND e.step = ?
		ORDER BY e.id ASC
	`, runID, step)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		ev := EventRecord{Step: step}
		var data []byte
		if err := rows.Scan(&ev.Type, &ev.User, &ev.Piece, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if data != nil {
			if err := msgpack.Unmarshal(data, &ev.Carriers); err != nil {
				return nil, fmt.Errorf("failed to unmarshal carriers: %w", err)
			}
		}
		events = append(events, ev)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}
