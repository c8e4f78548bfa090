package registry_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checks/internal/domain"
	"github.com/vladislavdragonenkov/checks/internal/service/registry"
	"github.com/vladislavdragonenkov/checks/internal/storage/memory"
)

type fixture struct {
	points   domain.MerchantPointRepository
	printers domain.PrinterRepository
	checks   domain.CheckRepository
	svc      *registry.Service
}

func newFixture() *fixture {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	points := memory.NewMerchantPointRepository()
	printers := memory.NewPrinterRepository()
	checks := memory.NewCheckRepository()
	return &fixture{
		points:   points,
		printers: printers,
		checks:   checks,
		svc:      registry.NewService(points, printers, checks, logger.WithField("component", "test")),
	}
}

func (f *fixture) createPoint(t *testing.T) domain.MerchantPoint {
	t.Helper()
	point, err := f.svc.CreateMerchantPoint(registry.MerchantPointInput{Name: "Кафе", Address: "Невский 1"})
	require.NoError(t, err)
	return point
}

func (f *fixture) createPrinter(t *testing.T, pointID string, kind domain.CheckKind) domain.Printer {
	t.Helper()
	printer, err := f.svc.CreatePrinter(registry.PrinterInput{
		Name:            "Printer",
		Kind:            kind,
		MerchantPointID: pointID,
	})
	require.NoError(t, err)
	return printer
}

func orderPayload(pointID string) domain.OrderPayload {
	return domain.OrderPayload{
		UUID:            "order-1",
		MerchantPointID: pointID,
		TotalPrice:      30,
		Items:           []domain.OrderItem{{Name: "Coffee", Price: 15, Count: 2}},
	}
}

func TestCreateMerchantPoint_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateMerchantPoint(registry.MerchantPointInput{Address: "Невский 1"})
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.CreateMerchantPoint(registry.MerchantPointInput{Name: "Кафе"})
	require.True(t, domain.IsValidation(err))
}

func TestUpdateMerchantPoint(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)

	updated, err := f.svc.UpdateMerchantPoint(point.ID, registry.MerchantPointInput{Name: "Бар", Address: "Литейный 5"})
	require.NoError(t, err)
	require.Equal(t, "Бар", updated.Name)
	require.Equal(t, "Литейный 5", updated.Address)

	_, err = f.svc.UpdateMerchantPoint("missing", registry.MerchantPointInput{Name: "X", Address: "Y"})
	require.ErrorIs(t, err, domain.ErrMerchantPointNotFound)
}

func TestDeleteMerchantPoint_ProtectedByPrinters(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindKitchen)

	err := f.svc.DeleteMerchantPoint(point.ID)
	protected, ok := domain.IsProtected(err)
	require.True(t, ok)
	require.Len(t, protected.Refs, 1)
	require.Equal(t, printer.ID, protected.Refs[0].ID)

	// Точка не удалена.
	_, err = f.svc.GetMerchantPoint(point.ID)
	require.NoError(t, err)

	// После удаления принтера точка удаляется свободно.
	require.NoError(t, f.svc.DeletePrinter(printer.ID))
	require.NoError(t, f.svc.DeleteMerchantPoint(point.ID))
	_, err = f.svc.GetMerchantPoint(point.ID)
	require.ErrorIs(t, err, domain.ErrMerchantPointNotFound)
}

func TestCreatePrinter_GeneratesAPIKey(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)

	printer := f.createPrinter(t, point.ID, domain.CheckKindClient)
	require.NotEmpty(t, printer.APIKey)

	other := f.createPrinter(t, point.ID, domain.CheckKindClient)
	require.NotEqual(t, printer.APIKey, other.APIKey)
}

func TestCreatePrinter_UnknownPoint(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreatePrinter(registry.PrinterInput{
		Name:            "Printer",
		Kind:            domain.CheckKindKitchen,
		MerchantPointID: "missing",
	})
	require.ErrorIs(t, err, domain.ErrMerchantPointNotFound)
}

func TestListPrinters_RejectsUnknownKind(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListPrinters(domain.PrinterFilter{Kind: "fiscal"})
	require.True(t, domain.IsValidation(err))
}

func TestDeletePrinter_ProtectedByChecks(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindKitchen)

	check, err := f.svc.CreateCheck(registry.CheckInput{
		PrinterID: printer.ID,
		Order:     orderPayload(point.ID),
	})
	require.NoError(t, err)

	err = f.svc.DeletePrinter(printer.ID)
	protected, ok := domain.IsProtected(err)
	require.True(t, ok)
	require.Len(t, protected.Refs, 1)
	require.Equal(t, check.ID, protected.Refs[0].ID)

	require.NoError(t, f.svc.DeleteCheck(check.ID))
	require.NoError(t, f.svc.DeletePrinter(printer.ID))
}

func TestCreateCheck_InheritsPrinterKind(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindClient)

	check, err := f.svc.CreateCheck(registry.CheckInput{
		PrinterID: printer.ID,
		Order:     orderPayload(point.ID),
	})
	require.NoError(t, err)
	require.Equal(t, domain.CheckKindClient, check.Kind)
	require.Equal(t, domain.CheckStatusNew, check.Status)
}

func TestCreateCheck_RequiresOrderUUID(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindKitchen)

	payload := orderPayload(point.ID)
	payload.UUID = ""
	_, err := f.svc.CreateCheck(registry.CheckInput{PrinterID: printer.ID, Order: payload})
	require.True(t, domain.IsValidation(err))
}

func TestListChecks_RejectsUnknownFilterValues(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListChecks(domain.CheckFilter{Kind: "fiscal"})
	require.True(t, domain.IsValidation(err))

	_, err = f.svc.ListChecks(domain.CheckFilter{Status: "done"})
	require.True(t, domain.IsValidation(err))
}

func TestAdvanceCheckStatus(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindKitchen)
	check, err := f.svc.CreateCheck(registry.CheckInput{PrinterID: printer.ID, Order: orderPayload(point.ID)})
	require.NoError(t, err)
	require.NoError(t, f.checks.MarkRendered(check.ID, "check_order-1_"+printer.ID+".pdf"))

	printed, err := f.svc.AdvanceCheckStatus(check.ID, domain.CheckStatusPrinted)
	require.NoError(t, err)
	require.Equal(t, domain.CheckStatusPrinted, printed.Status)

	// Повтор того же статуса идемпотентен.
	again, err := f.svc.AdvanceCheckStatus(check.ID, domain.CheckStatusPrinted)
	require.NoError(t, err)
	require.Equal(t, domain.CheckStatusPrinted, again.Status)

	// Откат назад запрещён.
	_, err = f.svc.AdvanceCheckStatus(check.ID, domain.CheckStatusNew)
	require.ErrorIs(t, err, domain.ErrCheckStatusRegression)

	// Неизвестный статус — валидация, а не регресс.
	_, err = f.svc.AdvanceCheckStatus(check.ID, "done")
	require.True(t, domain.IsValidation(err))
}

func TestAdvanceCheckStatus_UnrenderedCheck(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindKitchen)
	check, err := f.svc.CreateCheck(registry.CheckInput{PrinterID: printer.ID, Order: orderPayload(point.ID)})
	require.NoError(t, err)

	// Пока артефакта нет, чек нельзя перевести ни в printed, ни в rendered.
	_, err = f.svc.AdvanceCheckStatus(check.ID, domain.CheckStatusPrinted)
	require.ErrorIs(t, err, domain.ErrArtifactStateMismatch)

	_, err = f.svc.AdvanceCheckStatus(check.ID, domain.CheckStatusRendered)
	require.ErrorIs(t, err, domain.ErrArtifactStateMismatch)

	unchanged, err := f.svc.GetCheck(check.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CheckStatusNew, unchanged.Status)
}

func TestListChecksForPrint(t *testing.T) {
	f := newFixture()
	point := f.createPoint(t)
	printer := f.createPrinter(t, point.ID, domain.CheckKindKitchen)

	var rendered []domain.Check
	for i := 0; i < 3; i++ {
		payload := orderPayload(point.ID)
		payload.UUID = "order-" + string(rune('a'+i))
		check, err := f.svc.CreateCheck(registry.CheckInput{PrinterID: printer.ID, Order: payload})
		require.NoError(t, err)
		rendered = append(rendered, check)
		time.Sleep(time.Millisecond)
	}

	// Пока ничего не отрисовано — выборка пуста, но ключ валиден.
	got, err := f.svc.ListChecksForPrint(printer.APIKey, 0, 0)
	require.NoError(t, err)
	require.Empty(t, got)

	for _, check := range rendered {
		require.NoError(t, f.checks.MarkRendered(check.ID, "artifact-"+check.ID+".pdf"))
	}

	got, err = f.svc.ListChecksForPrint(printer.APIKey, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Порядок создания сохраняется.
	for i, check := range got {
		require.Equal(t, rendered[i].ID, check.ID)
	}

	// Пагинация.
	page, err := f.svc.ListChecksForPrint(printer.APIKey, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, rendered[1].ID, page[0].ID)

	// Неизвестный ключ — not found без деталей.
	_, err = f.svc.ListChecksForPrint("bogus", 0, 0)
	require.ErrorIs(t, err, domain.ErrPrinterNotFound)
}
