package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

type checkRepository struct {
	db *sql.DB
}

// NewCheckRepository создаёт PostgreSQL-реализацию CheckRepository.
func NewCheckRepository(store *Store) domain.CheckRepository {
	return &checkRepository{db: store.DB()}
}

const checkColumns = `id, printer_id, check_type, order_uuid, order_payload, status, artifact_name, created_at, updated_at`

func scanCheck(row interface{ Scan(...interface{}) error }) (domain.Check, error) {
	var (
		check   domain.Check
		kind    string
		status  string
		payload []byte
		orderID string
	)
	err := row.Scan(
		&check.ID, &check.PrinterID, &kind, &orderID, &payload,
		&status, &check.ArtifactName, &check.CreatedAt, &check.UpdatedAt,
	)
	if err != nil {
		return domain.Check{}, err
	}

	if err := json.Unmarshal(payload, &check.Order); err != nil {
		return domain.Check{}, fmt.Errorf("unmarshal order payload: %w", err)
	}
	check.Order.UUID = orderID
	check.Kind = domain.CheckKind(kind)
	check.Status = domain.CheckStatus(status)
	return check, nil
}

// CreateBatch сохраняет чеки одного заказа в одной транзакции:
// частичный fan-out не должен стать видимым.
func (r *checkRepository) CreateBatch(checks []domain.Check) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range checks {
		check := checks[i]
		payload, merr := json.Marshal(check.Order)
		if merr != nil {
			err = fmt.Errorf("marshal order payload: %w", merr)
			return err
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO checks (
				id, printer_id, check_type, order_uuid, order_payload,
				status, artifact_name, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			check.ID, check.PrinterID, string(check.Kind), check.Order.UUID, payload,
			string(check.Status), check.ArtifactName, check.CreatedAt, check.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				err = domain.ErrDuplicateCheck
				return err
			}
			if isForeignKeyViolation(err) {
				err = domain.ErrPrinterNotFound
				return err
			}
			err = fmt.Errorf("insert check: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create checks: %w", err)
	}
	return nil
}

func (r *checkRepository) Get(id string) (domain.Check, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	check, err := scanCheck(r.db.QueryRowContext(ctx, `
		SELECT `+checkColumns+`
		FROM checks
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Check{}, domain.ErrCheckNotFound
		}
		return domain.Check{}, fmt.Errorf("select check: %w", err)
	}
	return check, nil
}

func (r *checkRepository) List(filter domain.CheckFilter) ([]domain.Check, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checkColumns+`
		FROM checks
		WHERE ($1 = '' OR printer_id = $1)
		  AND ($2 = '' OR check_type = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY seq ASC
	`, filter.PrinterID, string(filter.Kind), string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	return collectChecks(rows)
}

func (r *checkRepository) ListByOrder(orderUUID string, status domain.CheckStatus) ([]domain.Check, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checkColumns+`
		FROM checks
		WHERE order_uuid = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY seq ASC
	`, orderUUID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list checks by order: %w", err)
	}
	defer rows.Close()

	return collectChecks(rows)
}

func (r *checkRepository) ListForPrint(printerID string, limit, offset int) ([]domain.Check, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT ` + checkColumns + `
		FROM checks
		WHERE printer_id = $1
		  AND status = $2
		ORDER BY seq ASC
	`
	args := []interface{}{printerID, string(domain.CheckStatusRendered)}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checks for print: %w", err)
	}
	defer rows.Close()

	return collectChecks(rows)
}

// MarkRendered — условное обновление: артефакт и статус проставляются
// только пока чек в new. Конкурентный воркер получает ErrCheckStateChanged.
func (r *checkRepository) MarkRendered(id, artifactName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE checks
		SET status = $1,
		    artifact_name = $2,
		    updated_at = $3
		WHERE id = $4
		  AND status = $5
	`,
		string(domain.CheckStatusRendered), artifactName, time.Now().UTC(),
		id, string(domain.CheckStatusNew),
	)
	if err != nil {
		return fmt.Errorf("mark check rendered: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.checkExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrCheckNotFound
		}
		return domain.ErrCheckStateChanged
	}
	return nil
}

// UpdateStatus двигает статус только вперёд; текущий статус читается
// под FOR UPDATE, чтобы переход проверялся без гонок.
func (r *checkRepository) UpdateStatus(id string, status domain.CheckStatus) error {
	if !status.Valid() {
		return domain.ErrCheckStatusInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current, artifact string
	err = tx.QueryRowContext(ctx, `
		SELECT status, artifact_name FROM checks WHERE id = $1 FOR UPDATE
	`, id).Scan(&current, &artifact)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrCheckNotFound
			return err
		}
		err = fmt.Errorf("select check status: %w", err)
		return err
	}

	check := domain.Check{Status: domain.CheckStatus(current), ArtifactName: artifact}
	if err = check.CanAdvanceTo(status); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE checks
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
	`, string(status), time.Now().UTC(), id); err != nil {
		err = fmt.Errorf("update check status: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update status: %w", err)
	}
	return nil
}

func (r *checkRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM checks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete check: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCheckNotFound
	}
	return nil
}

func (r *checkRepository) ListByPrinter(printerID string) ([]domain.Check, error) {
	return r.List(domain.CheckFilter{PrinterID: printerID})
}

func (r *checkRepository) checkExists(ctx context.Context, id string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM checks WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check exists: %w", err)
}

func collectChecks(rows *sql.Rows) ([]domain.Check, error) {
	checks := make([]domain.Check, 0)
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check row: %w", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check rows: %w", err)
	}
	return checks, nil
}

var _ domain.CheckRepository = (*checkRepository)(nil)
