package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

type printerRepository struct {
	db *sql.DB
}

// NewPrinterRepository создаёт PostgreSQL-реализацию PrinterRepository.
func NewPrinterRepository(store *Store) domain.PrinterRepository {
	return &printerRepository{db: store.DB()}
}

const printerColumns = `id, name, api_key, check_type, merchant_point_id, created_at, updated_at`

func scanPrinter(row interface{ Scan(...interface{}) error }) (domain.Printer, error) {
	var printer domain.Printer
	var kind string
	err := row.Scan(
		&printer.ID, &printer.Name, &printer.APIKey, &kind,
		&printer.MerchantPointID, &printer.CreatedAt, &printer.UpdatedAt,
	)
	if err != nil {
		return domain.Printer{}, err
	}
	printer.Kind = domain.CheckKind(kind)
	return printer, nil
}

func (r *printerRepository) Create(printer domain.Printer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO printers (
			id, name, api_key, check_type, merchant_point_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		printer.ID, printer.Name, printer.APIKey, string(printer.Kind),
		printer.MerchantPointID, printer.CreatedAt, printer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("printer api_key already in use: %w", err)
		}
		if isForeignKeyViolation(err) {
			return domain.ErrMerchantPointNotFound
		}
		return fmt.Errorf("insert printer: %w", err)
	}
	return nil
}

func (r *printerRepository) Get(id string) (domain.Printer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	printer, err := scanPrinter(r.db.QueryRowContext(ctx, `
		SELECT `+printerColumns+`
		FROM printers
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Printer{}, domain.ErrPrinterNotFound
		}
		return domain.Printer{}, fmt.Errorf("select printer: %w", err)
	}
	return printer, nil
}

func (r *printerRepository) GetByAPIKey(key string) (domain.Printer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	printer, err := scanPrinter(r.db.QueryRowContext(ctx, `
		SELECT `+printerColumns+`
		FROM printers
		WHERE api_key = $1
	`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Printer{}, domain.ErrPrinterNotFound
		}
		return domain.Printer{}, fmt.Errorf("select printer by api key: %w", err)
	}
	return printer, nil
}

func (r *printerRepository) List(filter domain.PrinterFilter) ([]domain.Printer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT ` + printerColumns + `
		FROM printers
		WHERE ($1 = '' OR merchant_point_id = $1)
		  AND ($2 = '' OR check_type = $2)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, filter.MerchantPointID, string(filter.Kind))
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	defer rows.Close()

	return collectPrinters(rows)
}

func (r *printerRepository) ListByMerchantPoint(merchantPointID string) ([]domain.Printer, error) {
	return r.List(domain.PrinterFilter{MerchantPointID: merchantPointID})
}

func (r *printerRepository) Save(printer domain.Printer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE printers
		SET name = $1,
		    api_key = $2,
		    check_type = $3,
		    merchant_point_id = $4,
		    updated_at = $5
		WHERE id = $6
	`,
		printer.Name, printer.APIKey, string(printer.Kind),
		printer.MerchantPointID, printer.UpdatedAt, printer.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrMerchantPointNotFound
		}
		return fmt.Errorf("update printer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPrinterNotFound
	}
	return nil
}

func (r *printerRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM printers WHERE id = $1`, id)
	if err != nil {
		// Гонка с созданием чека: FK-страховка поверх сервисной проверки.
		if isForeignKeyViolation(err) {
			return &domain.ProtectedError{}
		}
		return fmt.Errorf("delete printer: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrPrinterNotFound
	}
	return nil
}

func collectPrinters(rows *sql.Rows) ([]domain.Printer, error) {
	printers := make([]domain.Printer, 0)
	for rows.Next() {
		printer, err := scanPrinter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan printer row: %w", err)
		}
		printers = append(printers, printer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate printer rows: %w", err)
	}
	return printers, nil
}

var _ domain.PrinterRepository = (*printerRepository)(nil)
