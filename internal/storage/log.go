package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chronolens/internal/codec"
	"chronolens/internal/errors"
	"chronolens/internal/history"
)

// Revision is one row of the revisions table.
type Revision struct {
	Seq    int
	ID     string
	Date   time.Time
	Author string
}

// PathChange is the change of one path in the revision at Seq.
type PathChange struct {
	Seq      int
	Revision string
	Change   history.FileChange
}

// Append writes entries in order after the existing ones, in a single
// transaction. Once the transaction commits, onAppended is called for each
// entry in order; it may be nil.
func (db *DB) Append(ctx context.Context, entries []history.Entry, onAppended func(history.Entry)) error {
	if db.readOnly {
		return fmt.Errorf("history log %s is read-only", db.dbPath)
	}
	err := db.WithTx(func(tx *sql.Tx) error {
		var seq int
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM revisions").Scan(&seq); err != nil {
			return fmt.Errorf("failed to read last revision: %w", err)
		}

		revStmt, err := tx.PrepareContext(ctx, "INSERT INTO revisions (seq, id, date, author) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer revStmt.Close()
		changeStmt, err := tx.PrepareContext(ctx, "INSERT INTO changes (seq, path, kind, payload) VALUES (?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer changeStmt.Close()

		for _, entry := range entries {
			seq++
			date := entry.Date.UTC().Format(time.RFC3339Nano)
			if _, err := revStmt.ExecContext(ctx, seq, entry.Revision, date, entry.Author); err != nil {
				return fmt.Errorf("failed to insert revision %s: %w", entry.Revision, err)
			}
			for _, change := range entry.Changes {
				var payload []byte
				if change.Kind == history.Edited {
					if payload, err = codec.MarshalTransaction(change.Transaction); err != nil {
						return fmt.Errorf("failed to encode %s at %s: %w", change.Path, entry.Revision, err)
					}
				}
				if _, err := changeStmt.ExecContext(ctx, seq, change.Path, change.Kind.String(), payload); err != nil {
					return fmt.Errorf("failed to insert change of %s at %s: %w", change.Path, entry.Revision, err)
				}
			}
		}
		return nil
	})
	if err != nil || onAppended == nil {
		return err
	}
	for _, entry := range entries {
		onAppended(entry)
	}
	return nil
}

// Revisions returns all revisions in chronological order.
func (db *DB) Revisions(ctx context.Context) ([]Revision, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT seq, id, date, author FROM revisions ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []Revision
	for rows.Next() {
		var r Revision
		var date string
		if err := rows.Scan(&r.Seq, &r.ID, &date, &r.Author); err != nil {
			return nil, err
		}
		if r.Date, err = parseDate(r.ID, date); err != nil {
			return nil, err
		}
		revisions = append(revisions, r)
	}
	return revisions, rows.Err()
}

// RevisionSeq returns the chronological position of revision id.
func (db *DB) RevisionSeq(ctx context.Context, id string) (int, bool, error) {
	var seq int
	err := db.conn.QueryRowContext(ctx, "SELECT seq FROM revisions WHERE id = ?", id).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up revision %s: %w", id, err)
	}
	return seq, true, nil
}

// Entries returns the whole log as a restartable sequence. Each pass runs
// its own query.
func (db *DB) Entries(ctx context.Context) history.Sequence {
	return func(yield func(history.Entry, error) bool) {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT r.seq, r.id, r.date, r.author, c.path, c.kind, c.payload
			FROM revisions r LEFT JOIN changes c ON c.seq = r.seq
			ORDER BY r.seq, c.path
		`)
		if err != nil {
			yield(history.Entry{}, fmt.Errorf("failed to query history: %w", err))
			return
		}
		defer rows.Close()

		var current *history.Entry
		currentSeq := 0
		for rows.Next() {
			var (
				seq              int
				id, date, author string
				path, kind       sql.NullString
				payload          []byte
			)
			if err := rows.Scan(&seq, &id, &date, &author, &path, &kind, &payload); err != nil {
				yield(history.Entry{}, err)
				return
			}
			if current == nil || seq != currentSeq {
				if current != nil && !yield(*current, nil) {
					return
				}
				parsed, err := parseDate(id, date)
				if err != nil {
					yield(history.Entry{}, err)
					return
				}
				current = &history.Entry{Revision: id, Date: parsed, Author: author}
				currentSeq = seq
			}
			if !path.Valid {
				continue
			}
			change, err := decodeChange(id, path.String, kind.String, payload)
			if err != nil {
				yield(history.Entry{}, err)
				return
			}
			current.Changes = append(current.Changes, change)
		}
		if err := rows.Err(); err != nil {
			yield(history.Entry{}, err)
			return
		}
		if current != nil {
			yield(*current, nil)
		}
	}
}

// PathChanges returns the changes of path in revisions up to and including
// seq, in chronological order.
func (db *DB) PathChanges(ctx context.Context, path string, seq int) ([]PathChange, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.seq, r.id, c.kind, c.payload
		FROM changes c JOIN revisions r ON r.seq = c.seq
		WHERE c.path = ? AND c.seq <= ?
		ORDER BY c.seq
	`, path, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes of %s: %w", path, err)
	}
	defer rows.Close()

	var changes []PathChange
	for rows.Next() {
		var (
			pc      PathChange
			kind    string
			payload []byte
		)
		if err := rows.Scan(&pc.Seq, &pc.Revision, &kind, &payload); err != nil {
			return nil, err
		}
		if pc.Change, err = decodeChange(pc.Revision, path, kind, payload); err != nil {
			return nil, err
		}
		changes = append(changes, pc)
	}
	return changes, rows.Err()
}

// LivePaths returns the paths whose latest change up to seq isn't a
// removal, sorted.
func (db *DB) LivePaths(ctx context.Context, seq int) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.path FROM changes c
		WHERE c.seq = (SELECT MAX(seq) FROM changes WHERE path = c.path AND seq <= ?)
		  AND c.kind != 'removed'
		ORDER BY c.path
	`, seq)
	if err != nil {
		return nil, fmt.Errorf("failed to query live paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func decodeChange(revision, path, kind string, payload []byte) (history.FileChange, error) {
	k, err := history.ParseChangeKind(kind)
	if err != nil {
		return history.FileChange{}, corrupted(revision, path, err)
	}
	change := history.FileChange{Path: path, Kind: k}
	if k != history.Edited {
		return change, nil
	}
	if change.Transaction, err = codec.UnmarshalTransaction(payload); err != nil {
		return history.FileChange{}, corrupted(revision, path, err)
	}
	return change, nil
}

func parseDate(revision, date string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return time.Time{}, errors.New(errors.CorruptedHistory,
			fmt.Sprintf("revision '%s' has an invalid date", revision), err)
	}
	return t, nil
}

func corrupted(revision, path string, err error) error {
	return errors.New(errors.CorruptedHistory,
		fmt.Sprintf("can't decode the change of '%s' at revision '%s'", path, revision), err)
}
