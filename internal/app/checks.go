package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/audit"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/paths"
)

// AuditChecks returns the health checks run by "wm audit".
func (a *App) AuditChecks() []audit.Check {
	return []audit.Check{
		{Name: "settings", Run: a.checkSettings},
		{Name: "data tree", Run: a.checkTree},
		{Name: "warehouse", Run: a.checkWarehouse},
		{Name: "threshold alerts", Run: a.checkThresholds},
		{Name: "purchase pending", Run: a.checkPending},
		{Name: "products", Run: a.checkProducts},
		{Name: "roster", Run: a.checkRoster},
		{Name: "absence alerts", Run: a.checkAbsence},
	}
}

func (a *App) checkSettings(context.Context) (string, error) {
	if err := a.Settings.Reload(); err != nil {
		return "", err
	}
	if problems := a.Settings.Problems(); len(problems) > 0 {
		return "", fmt.Errorf("%d problem(s): %w", len(problems), errors.Join(problems...))
	}
	return "valid", nil
}

func (a *App) checkTree(context.Context) (string, error) {
	if err := a.Paths.EnsureCoreTree(); err != nil {
		return "", err
	}
	for _, key := range []string{paths.KeyLogsDir, paths.KeyWarehouseDir, paths.KeyProductsDir, paths.KeyOrdersDir} {
		info, err := os.Stat(a.Paths.Resolve(key))
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", a.Paths.Resolve(key))
		}
	}
	return a.Paths.DataRoot(), nil
}

func (a *App) checkWarehouse(context.Context) (string, error) {
	path := a.Paths.Resolve(paths.KeyStockSource)
	_, warning, err := jsonio.Load(path, func() json.RawMessage { return nil })
	if err != nil {
		return "", err
	}
	if warning == jsonio.WarningCorrupt {
		return "", fmt.Errorf("%s is corrupt", path)
	}
	if err := a.Warehouse.Reload(); err != nil {
		return "", err
	}
	if warning == jsonio.WarningMissing {
		return "no stock file yet", nil
	}
	return fmt.Sprintf("%d item(s)", len(a.Warehouse.Items())), nil
}

func (a *App) checkThresholds(context.Context) (string, error) {
	return fmt.Sprintf("%d below threshold", len(a.Warehouse.ThresholdAlerts())), nil
}

func (a *App) checkPending(context.Context) (string, error) {
	rows, err := a.Purchase.Pending()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d pending row(s)", len(rows)), nil
}

func (a *App) checkProducts(context.Context) (string, error) {
	list, err := a.BOM.ListProducts()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d product(s)", len(list)), nil
}

func (a *App) checkRoster(context.Context) (string, error) {
	return fmt.Sprintf("%d active user(s)", len(a.Roster.Active())), nil
}

func (a *App) checkAbsence(context.Context) (string, error) {
	pending, err := a.Absence.Pending()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d pending", len(pending)), nil
}
