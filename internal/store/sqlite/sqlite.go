package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/safetalk/safetalk-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; this also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

const userColumns = `id, username, email, password_hash, created_at`

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user: %w", store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg any) (*store.User, error) {
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %v: %w", arg, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ListUsersExcept lists every user other than the given username.
func (s *SQLiteStore) ListUsersExcept(ctx context.Context, username string) ([]*store.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username != ?
		ORDER BY username ASC
	`
	rows, err := s.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// ==== MessageStore implementation ====

const messageColumns = `id, sender, receiver, content, sent_at, is_bullying, bullying_probability, needs_review, is_read`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	if err := row.Scan(
		&msg.ID,
		&msg.Sender,
		&msg.Receiver,
		&msg.Content,
		&msg.Timestamp,
		&msg.IsBullying,
		&msg.BullyingProbability,
		&msg.NeedsReview,
		&msg.IsRead,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after a successful commit
	}()

	query := `
		INSERT INTO messages (sender, receiver, content, sent_at, is_bullying, bullying_probability, needs_review, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`
	result, err := tx.ExecContext(ctx, query,
		msg.Sender, msg.Receiver, msg.Content, msg.Timestamp,
		msg.IsBullying, msg.BullyingProbability, msg.NeedsReview,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = id
	msg.IsRead = false
	return nil
}

// History returns one page of the conversation between a and b.
// One extra row is fetched so HasMore is exact.
func (s *SQLiteStore) History(ctx context.Context, a, b string, limit, offset int) (*store.MessagePage, error) {
	if limit <= 0 {
		return &store.MessagePage{Messages: []*store.Message{}}, nil
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
		ORDER BY sent_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, a, b, b, a, limit+1, offset)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit+1)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	page := &store.MessagePage{}
	if len(messages) > limit {
		page.HasMore = true
		messages = messages[:limit]
	}

	// Reverse to get chronological order
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}
	page.Messages = messages

	return page, nil
}

// MarkRead flips is_read for messages addressed to username.
func (s *SQLiteStore) MarkRead(ctx context.Context, ids []int64, username string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, username)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after a successful commit
	}()

	query := `
		UPDATE messages
		SET is_read = 1
		WHERE receiver = ? AND is_read = 0 AND id IN (` + strings.Join(placeholders, ", ") + `)
	`
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update messages: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return affected, nil
}

// Conversations lists one summary per correspondent of username,
// most recent conversation first.
func (s *SQLiteStore) Conversations(ctx context.Context, username string) ([]*store.Conversation, error) {
	peers, err := s.listPeers(ctx, username)
	if err != nil {
		return nil, err
	}

	conversations := make([]*store.Conversation, 0, len(peers))
	for _, peer := range peers {
		var unread int64
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM messages
			WHERE sender = ? AND receiver = ? AND is_read = 0
		`, peer, username).Scan(&unread)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}

		last, err := scanMessage(s.db.QueryRowContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
			ORDER BY sent_at DESC, id DESC
			LIMIT 1
		`, username, peer, peer, username))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("query last message: %w", err)
		}

		conversations = append(conversations, &store.Conversation{
			Peer:        peer,
			UnreadCount: unread,
			LastMessage: last,
		})
	}

	sortConversations(conversations)
	return conversations, nil
}

// listPeers drains the peer set before any follow-up query runs on the single connection.
func (s *SQLiteStore) listPeers(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT receiver FROM messages WHERE sender = ?
		UNION
		SELECT sender FROM messages WHERE receiver = ?
	`
	rows, err := s.db.QueryContext(ctx, query, username, username)
	if err != nil {
		return nil, fmt.Errorf("query peers: %w", err)
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var peer string
		if err := rows.Scan(&peer); err != nil {
			return nil, fmt.Errorf("scan peer: %w", err)
		}
		peers = append(peers, peer)
	}

	return peers, rows.Err()
}

func sortConversations(conversations []*store.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		li, lj := conversations[i].LastMessage, conversations[j].LastMessage
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		case li.Timestamp.Equal(lj.Timestamp):
			return li.ID > lj.ID
		default:
			return li.Timestamp.After(lj.Timestamp)
		}
	})
}

// BullyingCounts returns flagged messages received by and sent by username.
func (s *SQLiteStore) BullyingCounts(ctx context.Context, username string) (received, sent int64, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN receiver = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN sender = ? THEN 1 ELSE 0 END), 0)
		FROM messages
		WHERE is_bullying = 1 AND (receiver = ? OR sender = ?)
	`
	err = s.db.QueryRowContext(ctx, query, username, username, username, username).Scan(&received, &sent)
	if err != nil {
		return 0, 0, fmt.Errorf("count bullying messages: %w", err)
	}
	return received, sent, nil
}

// CountFlaggedMessagesSent counts flagged messages sent by username.
func (s *SQLiteStore) CountFlaggedMessagesSent(ctx context.Context, username string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE sender = ? AND is_bullying = 1
	`, username).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count flagged messages: %w", err)
	}
	return count, nil
}

// ==== CommentStore implementation ====

// CreateComment persists a comment.
func (s *SQLiteStore) CreateComment(ctx context.Context, c *store.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO comments (id, post_id, user_id, content, is_bullying, bullying_probability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.PostID, c.UserID, c.Content, c.IsBullying, c.BullyingProbability, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// CountFlaggedComments counts flagged comments authored by userID.
func (s *SQLiteStore) CountFlaggedComments(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM comments WHERE user_id = ? AND is_bullying = 1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count flagged comments: %w", err)
	}
	return count, nil
}
