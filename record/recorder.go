// Package record stores committed signal changes in a SQLite database so
// that simulation runs can be queried after the fact.
package record

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/tebeka/atexit"

	"github.com/xThaid/coreblocks/sim"
)

// A SignalRow describes one traced signal.
type SignalRow struct {
	ID    int
	Name  string
	Width int
}

// A ChangeRow describes one settled value change.
type ChangeRow struct {
	Time     uint64
	SignalID int
	Value    uint64
}

// A Recorder is a backend that can store signal declarations and value
// changes.
type Recorder interface {
	// InsertSignal buffers a signal declaration.
	InsertSignal(row SignalRow)

	// InsertChange buffers a value change.
	InsertChange(row ChangeRow)

	// Flush writes all buffered rows to the database.
	Flush()

	// Close flushes and closes the database.
	Close()
}

// New creates a Recorder backed by a SQLite database at path. An empty path
// picks a unique name. The buffered rows are flushed at exit even if the
// simulation terminates early.
func New(path string) Recorder {
	r := &sqliteRecorder{
		dbName:    path,
		batchSize: 100000,
	}

	r.init()

	atexit.Register(func() { r.Flush() })

	return r
}

// NewWithDB creates a Recorder on an already-open database connection.
func NewWithDB(db *sql.DB) Recorder {
	r := &sqliteRecorder{
		db:        db,
		batchSize: 100000,
	}

	r.createTables()

	atexit.Register(func() { r.Flush() })

	return r
}

type sqliteRecorder struct {
	db *sql.DB

	dbName    string
	batchSize int

	signalsToWrite []SignalRow
	changesToWrite []ChangeRow
}

func (r *sqliteRecorder) init() {
	if r.dbName == "" {
		r.dbName = "coresim_record_" + sim.GetIDGenerator().Generate()
	}

	filename := r.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r.db = db
	r.createTables()
}

func (r *sqliteRecorder) createTables() {
	r.mustExecute(`CREATE TABLE signals (
		id INTEGER PRIMARY KEY,
		name TEXT,
		width INTEGER
	)`)
	r.mustExecute(`CREATE TABLE changes (
		time INTEGER,
		signal_id INTEGER,
		value INTEGER
	)`)
}

func (r *sqliteRecorder) InsertSignal(row SignalRow) {
	r.signalsToWrite = append(r.signalsToWrite, row)
	if len(r.signalsToWrite) >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) InsertChange(row ChangeRow) {
	r.changesToWrite = append(r.changesToWrite, row)
	if len(r.changesToWrite) >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) Flush() {
	if len(r.signalsToWrite) == 0 && len(r.changesToWrite) == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for _, row := range r.signalsToWrite {
		_, err := r.db.Exec(
			"INSERT INTO signals (id, name, width) VALUES (?, ?, ?)",
			row.ID, row.Name, row.Width)
		if err != nil {
			panic(err)
		}
	}
	r.signalsToWrite = nil

	for _, row := range r.changesToWrite {
		_, err := r.db.Exec(
			"INSERT INTO changes (time, signal_id, value) VALUES (?, ?, ?)",
			int64(row.Time), row.SignalID, int64(row.Value))
		if err != nil {
			panic(err)
		}
	}
	r.changesToWrite = nil
}

func (r *sqliteRecorder) Close() {
	r.Flush()

	err := r.db.Close()
	if err != nil {
		panic(err)
	}
}

func (r *sqliteRecorder) mustExecute(query string) sql.Result {
	res, err := r.db.Exec(query)
	if err != nil {
		panic(query + " failed: " + err.Error())
	}
	return res
}
