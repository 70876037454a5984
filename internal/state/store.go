package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/PentesterFlow/xssprobe/internal/model"
)

var (
	bucketScans   = []byte("scans")
	bucketSummary = []byte("summaries")

	// ErrNotFound is returned for an unknown scan ID.
	ErrNotFound = errors.New("scan not found")
)

// idLayout sorts lexically in time order, which bolt keys rely on.
const idLayout = "20060102T150405.000000000Z"

// Record is one finished scan.
type Record struct {
	ID          string                  `json:"id"`
	Target      string                  `json:"target"`
	Engine      string                  `json:"engine"`
	Mode        string                  `json:"mode"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	Stopped     bool                    `json:"stopped"`
	Pages       []model.PageInfo        `json:"pages"`
	Stored      []model.StoredXSSResult `json:"stored"`
	Findings    []model.ScanResult      `json:"findings"`
}

// Summary is the listing view of a Record.
type Summary struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Engine     string    `json:"engine"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Pages      int       `json:"pages"`
	Stored     int       `json:"stored"`
	Reflected  int       `json:"reflected"`
	Vulnerable int       `json:"vulnerable"`
}

// Summarize counts the findings of r.
func (r *Record) Summarize() Summary {
	s := Summary{
		ID:        r.ID,
		Target:    r.Target,
		Engine:    r.Engine,
		Mode:      r.Mode,
		StartedAt: r.StartedAt,
		Duration:  r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		Pages:     len(r.Pages),
		Stored:    len(r.Stored),
	}
	for _, f := range r.Findings {
		if f.Reflected {
			s.Reflected++
		}
		if f.Vulnerable {
			s.Vulnerable++
		}
	}
	return s
}

// BoltStore keeps scan history in a bbolt file.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens or creates the history database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketScans, bucketSummary} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Save stores rec, assigning an ID from its start time when it has none.
func (s *BoltStore) Save(rec *Record) error {
	if rec.ID == "" {
		if rec.StartedAt.IsZero() {
			rec.StartedAt = time.Now()
		}
		rec.ID = rec.StartedAt.UTC().Format(idLayout)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	summary, err := json.Marshal(rec.Summarize())
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(rec.ID)
		if err := tx.Bucket(bucketScans).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketSummary).Put(key, summary)
	})
}

// Get loads one record.
func (s *BoltStore) Get(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketScans).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns up to limit summaries, newest first. limit <= 0 means all.
func (s *BoltStore) List(limit int) ([]Summary, error) {
	summaries := make([]Summary, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSummary).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var sum Summary
			if err := json.Unmarshal(v, &sum); err != nil {
				return fmt.Errorf("corrupt summary %s: %w", k, err)
			}
			summaries = append(summaries, sum)
			if limit > 0 && len(summaries) >= limit {
				break
			}
		}
		return nil
	})
	return summaries, err
}

// Delete removes a record.
func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(id)
		if tx.Bucket(bucketScans).Get(key) == nil {
			return ErrNotFound
		}
		if err := tx.Bucket(bucketScans).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketSummary).Delete(key)
	})
}

// Path returns the database file location.
func (s *BoltStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
