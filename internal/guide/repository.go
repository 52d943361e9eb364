package guide

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, g *Guide) error
	GetByID(ctx context.Context, id string) (*Guide, error)
	GetByUserID(ctx context.Context, userID string) (*Guide, error)
	List(ctx context.Context, filter Filter) ([]*Guide, int, error)
	Update(ctx context.Context, g *Guide) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const guideColumns = "id, user_id, bio, city, country, languages, price_per_hour, rating_avg, rating_count, created_at, updated_at"

func (r *pgxRepository) Create(ctx context.Context, g *Guide) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.guides").
		Columns("user_id", "bio", "city", "country", "languages", "price_per_hour").
		Values(g.UserID, g.Bio, g.City, g.Country, g.Languages, g.PricePerHour).
		Suffix("RETURNING id, rating_avg, rating_count, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create guide query failed: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).
		Scan(&g.ID, &g.RatingAvg, &g.RatingCount, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// guides.user_id carries a unique constraint
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyGuide
		}
		return fmt.Errorf("create guide failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Guide, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetByUserID(ctx context.Context, userID string) (*Guide, error) {
	return r.getOne(ctx, squirrel.Eq{"user_id": userID})
}

func (r *pgxRepository) getOne(ctx context.Context, pred squirrel.Eq) (*Guide, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(guideColumns).
		From("public.guides").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get guide query failed: %w", err)
	}

	var g Guide
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&g.ID, &g.UserID, &g.Bio, &g.City, &g.Country, &g.Languages,
		&g.PricePerHour, &g.RatingAvg, &g.RatingCount, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get guide failed: %w", err)
	}
	return &g, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Guide, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(guideColumns + ", count(*) OVER() as total_count").
		From("public.guides")

	if filter.City != "" {
		query = query.Where(squirrel.Eq{"city": filter.City})
	}
	if filter.Country != "" {
		query = query.Where(squirrel.Eq{"country": filter.Country})
	}
	if filter.Language != "" {
		query = query.Where(squirrel.Expr("? = ANY(languages)", filter.Language))
	}
	if filter.MaxRate > 0 {
		query = query.Where(squirrel.LtOrEq{"price_per_hour": filter.MaxRate})
	}

	query = query.OrderBy("rating_avg DESC, price_per_hour ASC")

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
		return nil, 0, fmt.Errorf("build list guides query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list guides failed: %w", err)
	}
	defer rows.Close()

	var guides []*Guide
	var total int

	for rows.Next() {
		var g Guide
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Bio, &g.City, &g.Country, &g.Languages,
			&g.PricePerHour, &g.RatingAvg, &g.RatingCount, &g.CreatedAt, &g.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan guide failed: %w", err)
		}
		guides = append(guides, &g)
	}

	return guides, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, g *Guide) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.guides").
		Set("bio", g.Bio).
		Set("city", g.City).
		Set("country", g.Country).
		Set("languages", g.Languages).
		Set("price_per_hour", g.PricePerHour).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": g.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update guide query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update guide failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
