package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Insert(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)

	// ListConfirmedByGuide returns every confirmed booking of the guide.
	// Callers re-check overlap against this set under WithGuideLock before
	// committing a confirmation.
	ListConfirmedByGuide(ctx context.Context, guideID string) ([]*Booking, error)

	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// CompareAndSetStatus writes b's status (and cancel info, when present)
	// to the stored row only if its current status is one of expected.
	// Returns false without mutating anything when the status moved.
	CompareAndSetStatus(ctx context.Context, id string, expected []Status, b *Booking) (bool, error)

	// WithGuideLock runs fn while holding an exclusive per-guide lock, making
	// the read-validate-write sequences of Confirm and Cancel atomic with
	// respect to each other. fn must issue every statement through the locked
	// repository it receives: the pgx implementation binds it to the one
	// connection holding the advisory lock, so the sequence cannot starve
	// waiting for a second connection from an exhausted pool.
	WithGuideLock(ctx context.Context, guideID string, fn func(ctx context.Context, locked Repository) error) error
}

// IsTransientError reports whether err is a storage-level conflict worth a
// bounded retry (as opposed to a business-rule failure, which never is).
func IsTransientError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure ||
		pgErr.Code == pgerrcode.DeadlockDetected
}

// querier is the querying surface shared by *pgxpool.Pool and *pgxpool.Conn,
// letting the same repository run against the pool or a single held
// connection.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	pool *pgxpool.Pool
	db   querier
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool, db: pool}
}

const bookingColumns = "id, guide_id, traveler_id, start_at, end_at, price, status, cancel_info, created_at, updated_at"

func (r *pgxRepository) Insert(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("guide_id", "traveler_id", "start_at", "end_at", "price", "status").
		Values(b.GuideID, b.TravelerID, b.StartAt, b.EndAt, b.Price, b.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert booking query failed: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) ListConfirmedByGuide(ctx context.Context, guideID string) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"guide_id": guideID, "status": StatusConfirmed}).
		OrderBy("start_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list confirmed query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list confirmed bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan confirmed booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(bookingColumns + ", count(*) OVER() as total_count").
		From("public.bookings")

	if filter.TravelerID != "" {
		query = query.Where(squirrel.Eq{"traveler_id": filter.TravelerID})
	}
	if filter.GuideID != "" {
		query = query.Where(squirrel.Eq{"guide_id": filter.GuideID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.StartFrom != nil {
		query = query.Where(squirrel.GtOrEq{"start_at": filter.StartFrom})
	}
	if filter.StartTo != nil {
		query = query.Where(squirrel.LtOrEq{"start_at": filter.StartTo})
	}

	query = query.OrderBy("start_at DESC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		var b Booking
		var cancelJSON []byte
		if err := rows.Scan(
			&b.ID, &b.GuideID, &b.TravelerID, &b.StartAt, &b.EndAt, &b.Price,
			&b.Status, &cancelJSON, &b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		if err := attachCancelInfo(&b, cancelJSON); err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, &b)
	}

	return bookings, total, nil
}

func (r *pgxRepository) CompareAndSetStatus(ctx context.Context, id string, expected []Status, b *Booking) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	update := psql.Update("public.bookings").
		Set("status", b.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": expected})

	if b.CancelInfo != nil {
		cancelJSON, err := json.Marshal(b.CancelInfo)
		if err != nil {
			return false, fmt.Errorf("marshal cancel info failed: %w", err)
		}
		update = update.Set("cancel_info", cancelJSON)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return false, fmt.Errorf("build status update query failed: %w", err)
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update booking status failed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *pgxRepository) WithGuideLock(ctx context.Context, guideID string, fn func(ctx context.Context, locked Repository) error) error {
	// A session-level advisory lock serializes confirm/cancel across every
	// process sharing the database. fn gets a repository bound to the lock
	// holder's connection: with the whole pool occupied by lock waiters, the
	// holder can still read and CAS, finish, and release.
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection for guide lock failed: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", guideID); err != nil {
		return fmt.Errorf("acquire guide lock failed: %w", err)
	}
	defer func() {
		// Best effort; releasing the connection drops the lock anyway when
		// the session ends.
		_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock(hashtext($1))", guideID)
	}()

	return fn(ctx, &pgxRepository{pool: r.pool, db: conn})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var cancelJSON []byte
	if err := row.Scan(
		&b.ID, &b.GuideID, &b.TravelerID, &b.StartAt, &b.EndAt, &b.Price,
		&b.Status, &cancelJSON, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := attachCancelInfo(&b, cancelJSON); err != nil {
		return nil, err
	}
	return &b, nil
}

func attachCancelInfo(b *Booking, cancelJSON []byte) error {
	if len(cancelJSON) == 0 {
		return nil
	}
	var info CancelInfo
	if err := json.Unmarshal(cancelJSON, &info); err != nil {
		return fmt.Errorf("unmarshal cancel info failed: %w", err)
	}
	b.CancelInfo = &info
	return nil
}
