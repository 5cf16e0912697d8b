package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/salescope/salescope/internal/schema"
)

const insertSales = `
INSERT INTO sales_data (id, sales_date, product_name, quantity, unit_price, total_cost, sales_type, delivery_fee, delivery_plate, delivery_duration_mins, country, region, city, store_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const insertProduct = `
INSERT INTO product_design (id, product_name, material, product_price, product_cost, total_product_cost, country, region, city)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertVehicle = `
INSERT INTO vehicle_master (id, delivery_plate, vehicle_type, vehicle_model, capacity_kg, country, region, city)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// LoadPostgres replaces the three tables with the dataset in one
// transaction, so a half-finished seed never leaks into queries.
func LoadPostgres(ctx context.Context, db *sql.DB, ds Dataset) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{schema.TableSales, schema.TableProducts, schema.TableVehicles} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear table %s: %w", table, err)
		}
	}

	salesStmt, err := tx.PrepareContext(ctx, insertSales)
	if err != nil {
		return fmt.Errorf("prepare sales insert: %w", err)
	}
	defer func() { _ = salesStmt.Close() }()
	for _, row := range ds.Sales {
		if _, err := salesStmt.ExecContext(ctx,
			row.ID, row.SalesDate, row.ProductName, row.Quantity, row.UnitPrice, row.TotalCost,
			row.SalesType, row.DeliveryFee, row.DeliveryPlate, row.DeliveryDurationMins,
			row.Country, row.Region, row.City, row.StoreName,
		); err != nil {
			return fmt.Errorf("insert sales row %d: %w", row.ID, err)
		}
	}

	productStmt, err := tx.PrepareContext(ctx, insertProduct)
	if err != nil {
		return fmt.Errorf("prepare product insert: %w", err)
	}
	defer func() { _ = productStmt.Close() }()
	for _, row := range ds.Products {
		if _, err := productStmt.ExecContext(ctx,
			row.ID, row.ProductName, row.Material, row.ProductPrice, row.ProductCost, row.TotalProductCost,
			row.Country, row.Region, row.City,
		); err != nil {
			return fmt.Errorf("insert product row %d: %w", row.ID, err)
		}
	}

	vehicleStmt, err := tx.PrepareContext(ctx, insertVehicle)
	if err != nil {
		return fmt.Errorf("prepare vehicle insert: %w", err)
	}
	defer func() { _ = vehicleStmt.Close() }()
	for _, row := range ds.Vehicles {
		if _, err := vehicleStmt.ExecContext(ctx,
			row.ID, row.DeliveryPlate, row.VehicleType, row.VehicleModel, row.CapacityKG,
			row.Country, row.Region, row.City,
		); err != nil {
			return fmt.Errorf("insert vehicle row %d: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
