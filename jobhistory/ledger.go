// Package jobhistory records one entry per MapReduce job run to a small
// on-disk ledger, so a later process can inspect how many jobs ran against a
// dataset and how they went without re-running them.
package jobhistory

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Run is one recorded job execution.
type Run struct {
	StartedAt  time.Time
	FinishedAt time.Time
	MapIn      uint64
	MapOut     uint64
	ReduceIn   uint64
	ReduceOut  uint64
	Err        string
}

// Ledger persists Run records to a bbolt database, one bucket per job name
// and one key per run, grounded in the teacher's bucket-per-reducer bbolt
// storage (mapreduce/storage/bbolt): CreateBucketIfNotExists + JSON-encoded
// values inside an Update transaction, the same shape, a different schema.
type Ledger struct {
	db *bbolt.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 30 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open job history ledger %q: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

// Record appends run to jobName's history. Runs are keyed by their start
// time in UTC, formatted as RFC 3339 with a fixed nine-digit fractional
// second, so a bucket's keys already sort in run order.
func (l *Ledger) Record(jobName string, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run record for job %q: %w", jobName, err)
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(jobName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(run.StartedAt.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")), data)
	})
}

// History returns jobName's recorded runs in chronological order. It
// returns an empty slice, not an error, for a job name with no history.
func (l *Ledger) History(jobName string) ([]Run, error) {
	var runs []Run

	err := l.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(jobName))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("unmarshal run record %q for job %q: %w", k, jobName, err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Close releases the underlying database file handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
