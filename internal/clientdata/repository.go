// Package clientdata provides a persistent snapshot cache for collections fetched from the exchange.
// Snapshots are stored as msgpack envelopes with expiration timestamps for stale fallback.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Schema creates the snapshot table
const Schema = `CREATE TABLE IF NOT EXISTS snapshots (
	collection TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
)`

// AllCollections lists all cacheable collections.
var AllCollections = []string{
	"stocks",
	"trades",
}

var validCollections = func() map[string]bool {
	m := make(map[string]bool, len(AllCollections))
	for _, c := range AllCollections {
		m[c] = true
	}
	return m
}()

// envelopeVersion is bumped whenever the envelope layout changes; older rows are ignored.
const envelopeVersion = 1

// envelope is the msgpack blob stored per collection. Items holds the entities in their
// exchange JSON form: Stock and Trade only define JSON codecs (tolerant enum and integer
// decoding, decimal.NullDecimal for the fixed dividend), so a cached snapshot decodes through
// exactly the path a live response does.
type envelope struct {
	Version   int    `msgpack:"v"`
	FetchedAt int64  `msgpack:"fetched_at"`
	Items     []byte `msgpack:"items"`
}

// Repository provides cache operations for collection snapshots.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func validateCollection(collection string) error {
	if !validCollections[collection] {
		return fmt.Errorf("invalid collection name: %s", collection)
	}
	return nil
}

// Store saves items with expiration = now + ttl.
func (r *Repository) Store(collection string, items interface{}, ttl time.Duration) error {
	if err := validateCollection(collection); err != nil {
		return err
	}

	jsonItems, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	now := time.Now()
	blob, err := msgpack.Marshal(&envelope{
		Version:   envelopeVersion,
		FetchedAt: now.Unix(),
		Items:     jsonItems,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO snapshots (collection, data, fetched_at, expires_at) VALUES (?, ?, ?, ?)",
		collection, blob, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", collection, err)
	}

	return nil
}

// GetIfFresh decodes the snapshot into out only if it has not expired and returns when it was fetched.
// Returns false when the snapshot is missing or expired.
func (r *Repository) GetIfFresh(collection string, out interface{}) (time.Time, bool, error) {
	return r.load(collection, out, true)
}

// Get decodes the snapshot into out regardless of expiration status and returns when it was fetched.
// Use this as a fallback when the exchange is unreachable - stale data is better than no data.
func (r *Repository) Get(collection string, out interface{}) (time.Time, bool, error) {
	return r.load(collection, out, false)
}

func (r *Repository) load(collection string, out interface{}, freshOnly bool) (time.Time, bool, error) {
	if err := validateCollection(collection); err != nil {
		return time.Time{}, false, err
	}

	query := "SELECT data FROM snapshots WHERE collection = ?"
	args := []interface{}{collection}
	if freshOnly {
		query += " AND expires_at > ?"
		args = append(args, time.Now().Unix())
	}

	var blob []byte
	err := r.db.QueryRow(query, args...).Scan(&blob)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get snapshot %s: %w", collection, err)
	}

	var env envelope
	if err := msgpack.Unmarshal(blob, &env); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode snapshot %s: %w", collection, err)
	}
	if env.Version != envelopeVersion {
		return time.Time{}, false, nil
	}
	if err := json.Unmarshal(env.Items, out); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode snapshot items %s: %w", collection, err)
	}

	return time.Unix(env.FetchedAt, 0), true, nil
}

// DeleteExpired removes all snapshots where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM snapshots WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
