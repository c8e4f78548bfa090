package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type merchantPointRepository struct {
	db *sql.DB
}

// NewMerchantPointRepository создаёт PostgreSQL-реализацию MerchantPointRepository.
func NewMerchantPointRepository(store *Store) domain.MerchantPointRepository {
	return &merchantPointRepository{db: store.DB()}
}

func (r *merchantPointRepository) Create(point domain.MerchantPoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO merchant_points (id, name, address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, point.ID, point.Name, point.Address, point.CreatedAt, point.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert merchant point: %w", err)
	}
	return nil
}

func (r *merchantPointRepository) Get(id string) (domain.MerchantPoint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var point domain.MerchantPoint
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, address, created_at, updated_at
		FROM merchant_points
		WHERE id = $1
	`, id).Scan(&point.ID, &point.Name, &point.Address, &point.CreatedAt, &point.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.MerchantPoint{}, domain.ErrMerchantPointNotFound
		}
		return domain.MerchantPoint{}, fmt.Errorf("select merchant point: %w", err)
	}
	return point, nil
}

func (r *merchantPointRepository) List() ([]domain.MerchantPoint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, address, created_at, updated_at
		FROM merchant_points
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list merchant points: %w", err)
	}
	defer rows.Close()

	points := make([]domain.MerchantPoint, 0)
	for rows.Next() {
		var point domain.MerchantPoint
		if err := rows.Scan(&point.ID, &point.Name, &point.Address, &point.CreatedAt, &point.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan merchant point row: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant point rows: %w", err)
	}

	return points, nil
}

func (r *merchantPointRepository) Save(point domain.MerchantPoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE merchant_points
		SET name = $1,
		    address = $2,
		    updated_at = $3
		WHERE id = $4
	`, point.Name, point.Address, point.UpdatedAt, point.ID)
	if err != nil {
		return fmt.Errorf("update merchant point: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrMerchantPointNotFound
	}
	return nil
}

func (r *merchantPointRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM merchant_points WHERE id = $1`, id)
	if err != nil {
		// Страховка на случай гонки с созданием принтера: сервисная проверка
		// ссылок прошла, но FK уже держит строку.
		if isForeignKeyViolation(err) {
			return &domain.ProtectedError{}
		}
		return fmt.Errorf("delete merchant point: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrMerchantPointNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.MerchantPointRepository = (*merchantPointRepository)(nil)
