package schema

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("schema: table not found")

type ColumnType string

const (
	TypeInt     ColumnType = "int"
	TypeText    ColumnType = "text"
	TypeDecimal ColumnType = "decimal"
	TypeDate    ColumnType = "date"
)

type Column struct {
	Name        string
	StorageName string
	Type        ColumnType
	Description string
	Nullable    bool
}

func (c Column) IsNumeric() bool {
	return c.Type == TypeInt || c.Type == TypeDecimal
}

// Internal marks bookkeeping columns that never appear in projections.
func (c Column) Internal() bool {
	switch c.StorageName {
	case "created_at", "updated_at":
		return true
	}
	return false
}

// MatchPhrases returns the lower-cased phrases a free-text question may use
// to refer to this column: the spoken form of the storage name plus the
// description.
func (c Column) MatchPhrases() []string {
	spoken := strings.ReplaceAll(strings.ToLower(c.StorageName), "_", " ")
	desc := strings.ToLower(strings.TrimSpace(c.Description))
	if desc == "" || desc == spoken {
		return []string{spoken}
	}
	return []string{spoken, desc}
}

type Table struct {
	Name        string
	StorageName string
	Alias       string
	Description string
	Columns     []Column
}

func (t Table) Column(storageName string) (Column, bool) {
	for _, col := range t.Columns {
		if col.StorageName == storageName {
			return col, true
		}
	}
	return Column{}, false
}

// DateColumn returns the table's first non-internal date column, if any.
func (t Table) DateColumn() (Column, bool) {
	for _, col := range t.Columns {
		if col.Type == TypeDate && !col.Internal() {
			return col, true
		}
	}
	return Column{}, false
}

func (t Table) PrimaryKey() string {
	return "id"
}

// Qualify renders a table-qualified column reference using the table alias.
func (t Table) Qualify(storageName string) string {
	return t.Alias + "." + storageName
}

type Catalog struct {
	tables []Table
	byName map[string]int
}

func NewCatalog() *Catalog {
	tables := []Table{salesData(), productDesign(), vehicleMaster()}
	byName := make(map[string]int, len(tables))
	for i, table := range tables {
		byName[table.Name] = i
	}
	return &Catalog{tables: tables, byName: byName}
}

func (c *Catalog) Lookup(name string) (Table, error) {
	index, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Table{}, ErrNotFound
	}
	return c.tables[index], nil
}

func (c *Catalog) Tables() []Table {
	out := make([]Table, len(c.tables))
	copy(out, c.tables)
	return out
}

// JoinCondition returns the fixed ON clause for the only two supported join
// pairs. Both joins match on the shared key plus the store location triple.
func JoinCondition(main, join Table) (string, bool) {
	if main.Name != TableSales {
		return "", false
	}
	var key string
	switch join.Name {
	case TableProducts:
		key = "product_name"
	case TableVehicles:
		key = "delivery_plate"
	default:
		return "", false
	}
	parts := []string{
		main.Qualify(key) + " = " + join.Qualify(key),
		main.Qualify("country") + " = " + join.Qualify("country"),
		main.Qualify("region") + " = " + join.Qualify("region"),
		main.Qualify("city") + " = " + join.Qualify("city"),
	}
	return strings.Join(parts, " AND "), true
}

const (
	TableSales    = "sales_data"
	TableProducts = "product_design"
	TableVehicles = "vehicle_master"
)

func salesData() Table {
	return Table{
		Name:        TableSales,
		StorageName: "sales_data",
		Alias:       "s",
		Description: "point-of-sale and delivery sales transactions",
		Columns: []Column{
			{Name: "id", StorageName: "id", Type: TypeInt, Description: "row id"},
			{Name: "sales_date", StorageName: "sales_date", Type: TypeDate, Description: "sales date"},
			{Name: "product_name", StorageName: "product_name", Type: TypeText, Description: "product name"},
			{Name: "quantity", StorageName: "quantity", Type: TypeInt, Description: "quantity sold"},
			{Name: "unit_price", StorageName: "unit_price", Type: TypeDecimal, Description: "unit price"},
			{Name: "total_cost", StorageName: "total_cost", Type: TypeDecimal, Description: "total cost"},
			{Name: "sales_type", StorageName: "sales_type", Type: TypeText, Description: "sales type"},
			{Name: "delivery_fee", StorageName: "delivery_fee", Type: TypeDecimal, Description: "delivery fee", Nullable: true},
			{Name: "delivery_plate", StorageName: "delivery_plate", Type: TypeText, Description: "delivery plate", Nullable: true},
			{Name: "delivery_duration_mins", StorageName: "delivery_duration_mins", Type: TypeInt, Description: "delivery duration", Nullable: true},
			{Name: "country", StorageName: "country", Type: TypeText, Description: "country"},
			{Name: "region", StorageName: "region", Type: TypeText, Description: "region"},
			{Name: "city", StorageName: "city", Type: TypeText, Description: "city"},
			{Name: "store_name", StorageName: "store_name", Type: TypeText, Description: "store name"},
			{Name: "created_at", StorageName: "created_at", Type: TypeDate, Description: "record creation time"},
		},
	}
}

func productDesign() Table {
	return Table{
		Name:        TableProducts,
		StorageName: "product_design",
		Alias:       "p",
		Description: "product catalog with materials and pricing",
		Columns: []Column{
			{Name: "id", StorageName: "id", Type: TypeInt, Description: "row id"},
			{Name: "product_name", StorageName: "product_name", Type: TypeText, Description: "product name"},
			{Name: "material", StorageName: "material", Type: TypeText, Description: "material"},
			{Name: "product_price", StorageName: "product_price", Type: TypeDecimal, Description: "product price"},
			{Name: "product_cost", StorageName: "product_cost", Type: TypeDecimal, Description: "product cost"},
			{Name: "total_product_cost", StorageName: "total_product_cost", Type: TypeDecimal, Description: "total product cost"},
			{Name: "country", StorageName: "country", Type: TypeText, Description: "country"},
			{Name: "region", StorageName: "region", Type: TypeText, Description: "region"},
			{Name: "city", StorageName: "city", Type: TypeText, Description: "city"},
			{Name: "created_at", StorageName: "created_at", Type: TypeDate, Description: "record creation time"},
		},
	}
}

func vehicleMaster() Table {
	return Table{
		Name:        TableVehicles,
		StorageName: "vehicle_master",
		Alias:       "v",
		Description: "delivery vehicle registry",
		Columns: []Column{
			{Name: "id", StorageName: "id", Type: TypeInt, Description: "row id"},
			{Name: "delivery_plate", StorageName: "delivery_plate", Type: TypeText, Description: "delivery plate"},
			{Name: "vehicle_type", StorageName: "vehicle_type", Type: TypeText, Description: "vehicle type"},
			{Name: "vehicle_model", StorageName: "vehicle_model", Type: TypeText, Description: "vehicle model"},
			{Name: "capacity_kg", StorageName: "capacity_kg", Type: TypeDecimal, Description: "capacity"},
			{Name: "country", StorageName: "country", Type: TypeText, Description: "country"},
			{Name: "region", StorageName: "region", Type: TypeText, Description: "region"},
			{Name: "city", StorageName: "city", Type: TypeText, Description: "city"},
			{Name: "created_at", StorageName: "created_at", Type: TypeDate, Description: "record creation time"},
		},
	}
}
