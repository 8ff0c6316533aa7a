package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"newspipe/internal/model"
	"newspipe/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveItem inserts or refreshes an item. The published flag is never
// lowered by a save: reprocessing a story must not unpublish it.
func (s *SQLite) SaveItem(ctx context.Context, item model.ProcessedItem) error {
	keywords, err := json.Marshal(item.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	keyPoints, err := json.Marshal(item.KeyPoints)
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO news_items (id, title, summary, content, url, source, source_kind,
		                         published_at, relevance_score, keywords, key_points, sentiment,
		                         importance_level, formatted_content, tags, processing_path,
		                         processed, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   summary = excluded.summary,
		   content = excluded.content,
		   url = excluded.url,
		   relevance_score = excluded.relevance_score,
		   keywords = excluded.keywords,
		   key_points = excluded.key_points,
		   sentiment = excluded.sentiment,
		   importance_level = excluded.importance_level,
		   formatted_content = excluded.formatted_content,
		   tags = excluded.tags,
		   processing_path = excluded.processing_path,
		   processed = excluded.processed`,
		item.ID, item.Title, item.Summary, item.Content, item.URL, item.Source, string(item.Kind),
		item.PublishedAt.UTC().Format(timeLayout), item.RelevanceScore, string(keywords), string(keyPoints), string(item.Sentiment),
		item.Importance, item.Formatted, string(tags), string(item.Path),
		boolToInt(item.Processed), time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

// GetItem returns a single item by its ID.
func (s *SQLite) GetItem(ctx context.Context, id string) (*model.ProcessedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, summary, content, url, source, source_kind, published_at,
		        relevance_score, keywords, key_points, sentiment, importance_level,
		        formatted_content, tags, processing_path, processed, published
		 FROM news_items WHERE id = ?`, id,
	)

	var item model.ProcessedItem
	var kind, publishedAt, keywords, keyPoints, sentiment, tags, path string
	var processed, published int
	err := row.Scan(&item.ID, &item.Title, &item.Summary, &item.Content, &item.URL, &item.Source,
		&kind, &publishedAt, &item.RelevanceScore, &keywords, &keyPoints, &sentiment,
		&item.Importance, &item.Formatted, &tags, &path, &processed, &published)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan item: %w", err)
	}

	item.Kind = model.SourceKind(kind)
	item.Sentiment = model.Sentiment(sentiment)
	item.Path = model.ProcessingPath(path)
	item.Processed = processed == 1
	item.Published = published == 1
	item.PublishedAt, _ = time.Parse(timeLayout, publishedAt)
	if err := json.Unmarshal([]byte(keywords), &item.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(keyPoints), &item.KeyPoints); err != nil {
		return nil, fmt.Errorf("decode key points: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &item, nil
}

// MarkPublished flips the published flag for an item. The flag is
// monotonic: once set it is never lowered, and marking an already
// published item is a no-op.
func (s *SQLite) MarkPublished(ctx context.Context, id string, messageID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE news_items
		 SET published = 1, channel_message_id = ?, published_to_channel_at = ?
		 WHERE id = ? AND published = 0`,
		messageID, time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Either already published (fine) or unknown.
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_items WHERE id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("check item: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

// ListPublishedSince returns the ids of items published to the channel
// at or after the given time.
func (s *SQLite) ListPublishedSince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM news_items
		 WHERE published = 1 AND published_to_channel_at >= ?
		 ORDER BY published_to_channel_at, id`,
		since.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query published: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
