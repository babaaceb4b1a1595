// Package schema defines the staging relations and renders their DDL.
//
// Two key models exist in the wild for this dataset: one deployment stages
// ids as VARCHAR with no database-level referential constraints, another as
// INTEGER with primary and foreign keys. Rather than duplicating schema
// logic, a single table model is parameterized by KeyModel.
//
// Under KeyModelString (the default) the staging relations carry no
// uniqueness or referential constraints; the validation gate is the single
// enforcement point, which lets it report every duplicate and orphan instead
// of the load aborting on the first constraint error. KeyModelIntegerFK adds
// PRIMARY KEY and FOREIGN KEY clauses for deployments with trusted sources.
package schema

import (
	"fmt"

	"github.com/darknuma/restaurant-etl/internal/storage"
)

// KeyModel selects the typed model for entity ids.
type KeyModel int

const (
	// KeyModelString stages ids as text and leaves enforcement to the
	// validation gate.
	KeyModelString KeyModel = iota
	// KeyModelIntegerFK stages ids as integers with PK/FK constraints.
	KeyModelIntegerFK
)

// ParseKeyModel maps a config string onto a KeyModel.
func ParseKeyModel(s string) (KeyModel, error) {
	switch s {
	case "string":
		return KeyModelString, nil
	case "integer":
		return KeyModelIntegerFK, nil
	}
	return 0, fmt.Errorf("schema: unknown key model %q", s)
}

// Column describes one column of a relation.
type Column struct {
	Name       string
	SQLType    string
	NotNull    bool
	PrimaryKey bool
}

// ForeignKey describes a referential constraint.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Index describes a secondary index.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// Table is a full relation definition.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Staging table names.
const (
	TableOrders     = "orders"
	TableMenuItems  = "menu_items"
	TableOrderItems = "order_items"
)

// StagingTables returns the three staging relations for the dialect and key
// model, in creation order (parents before children).
func StagingTables(d storage.Dialect, km KeyModel) []Table {
	keyType := d.TextType
	constrained := km == KeyModelIntegerFK
	if constrained {
		keyType = d.IntType
	}

	orders := Table{
		Name: TableOrders,
		Columns: []Column{
			{Name: "order_id", SQLType: keyType, NotNull: true, PrimaryKey: constrained},
			{Name: "customer_id", SQLType: d.TextType},
			{Name: "order_date", SQLType: d.DateType, NotNull: true},
			{Name: "total_amount", SQLType: d.DecimalType, NotNull: true},
		},
		Indexes: []Index{
			{Name: "idx_orders_order_date", Table: TableOrders, Columns: []string{"order_date"}},
		},
	}

	menuItems := Table{
		Name: TableMenuItems,
		Columns: []Column{
			{Name: "item_id", SQLType: keyType, NotNull: true, PrimaryKey: constrained},
			{Name: "item_name", SQLType: d.TextType, NotNull: true},
			{Name: "category", SQLType: d.TextType, NotNull: true},
			{Name: "description", SQLType: d.TextType},
		},
		Indexes: []Index{
			{Name: "idx_menu_items_item_id", Table: TableMenuItems, Columns: []string{"item_id"}},
			{Name: "idx_menu_items_category", Table: TableMenuItems, Columns: []string{"category"}},
		},
	}

	orderItems := Table{
		Name: TableOrderItems,
		Columns: []Column{
			{Name: "order_id", SQLType: keyType, NotNull: true, PrimaryKey: constrained},
			{Name: "item_id", SQLType: keyType, NotNull: true, PrimaryKey: constrained},
			{Name: "quantity", SQLType: d.IntType, NotNull: true},
			{Name: "unit_price", SQLType: d.DecimalType, NotNull: true},
		},
		Indexes: []Index{
			{Name: "idx_order_items_item_id", Table: TableOrderItems, Columns: []string{"item_id"}},
		},
	}
	if constrained {
		orderItems.ForeignKeys = []ForeignKey{
			{Columns: []string{"order_id"}, RefTable: TableOrders, RefColumns: []string{"order_id"}},
			{Columns: []string{"item_id"}, RefTable: TableMenuItems, RefColumns: []string{"item_id"}},
		}
	}

	return []Table{orders, menuItems, orderItems}
}
