package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checks/internal/domain"
)

func TestPrinterRepository_PostgresCRUD(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	point, printer := seedPointAndPrinter(t, store, "p1")
	repo := NewPrinterRepository(store)

	got, err := repo.Get(printer.ID)
	if err != nil {
		t.Fatalf("get printer: %v", err)
	}
	if got.APIKey != printer.APIKey || got.MerchantPointID != point.ID {
		t.Fatalf("unexpected printer: %+v", got)
	}

	byKey, err := repo.GetByAPIKey(printer.APIKey)
	if err != nil {
		t.Fatalf("get by api key: %v", err)
	}
	if byKey.ID != printer.ID {
		t.Fatalf("unexpected printer by key: %+v", byKey)
	}
	if _, err := repo.GetByAPIKey("bogus"); !errors.Is(err, domain.ErrPrinterNotFound) {
		t.Fatalf("expected ErrPrinterNotFound, got %v", err)
	}

	got.Name = "Updated"
	got.Kind = domain.CheckKindClient
	got.UpdatedAt = time.Now().UTC()
	if err := repo.Save(got); err != nil {
		t.Fatalf("save printer: %v", err)
	}
	updated, err := repo.Get(printer.ID)
	if err != nil {
		t.Fatalf("get updated printer: %v", err)
	}
	if updated.Name != "Updated" || updated.Kind != domain.CheckKindClient {
		t.Fatalf("update not applied: %+v", updated)
	}

	missing := updated
	missing.ID = "missing"
	if err := repo.Save(missing); !errors.Is(err, domain.ErrPrinterNotFound) {
		t.Fatalf("expected ErrPrinterNotFound on save, got %v", err)
	}

	if err := repo.Delete(printer.ID); err != nil {
		t.Fatalf("delete printer: %v", err)
	}
	if err := repo.Delete(printer.ID); !errors.Is(err, domain.ErrPrinterNotFound) {
		t.Fatalf("expected ErrPrinterNotFound on second delete, got %v", err)
	}
}

func TestPrinterRepository_PostgresFiltersAndConstraints(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	point, kitchen := seedPointAndPrinter(t, store, "p2")
	repo := NewPrinterRepository(store)

	now := time.Now().UTC()
	client := domain.Printer{
		ID:              "printer-p2-client",
		Name:            "Client printer",
		APIKey:          "key-p2-client",
		Kind:            domain.CheckKindClient,
		MerchantPointID: point.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repo.Create(client); err != nil {
		t.Fatalf("create client printer: %v", err)
	}

	// Дубликат api_key отклоняется уникальным индексом.
	dup := client
	dup.ID = "printer-p2-dup"
	if err := repo.Create(dup); err == nil {
		t.Fatal("expected duplicate api_key error")
	}

	// Принтер с неизвестной точкой не создаётся.
	orphan := client
	orphan.ID = "printer-p2-orphan"
	orphan.APIKey = "key-orphan"
	orphan.MerchantPointID = "missing"
	if err := repo.Create(orphan); !errors.Is(err, domain.ErrMerchantPointNotFound) {
		t.Fatalf("expected ErrMerchantPointNotFound, got %v", err)
	}

	byKind, err := repo.List(domain.PrinterFilter{Kind: domain.CheckKindClient})
	if err != nil {
		t.Fatalf("list by kind: %v", err)
	}
	if len(byKind) != 1 || byKind[0].ID != client.ID {
		t.Fatalf("unexpected kind filter result: %+v", byKind)
	}

	byPoint, err := repo.ListByMerchantPoint(point.ID)
	if err != nil {
		t.Fatalf("list by merchant point: %v", err)
	}
	if len(byPoint) != 2 {
		t.Fatalf("expected 2 printers, got %d", len(byPoint))
	}
	// Стабильный порядок создания.
	if byPoint[0].ID != kitchen.ID || byPoint[1].ID != client.ID {
		t.Fatalf("unexpected order: %s, %s", byPoint[0].ID, byPoint[1].ID)
	}
}
