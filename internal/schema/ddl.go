package schema

import (
	"fmt"
	"strings"

	"github.com/darknuma/restaurant-etl/internal/storage"
)

// BuildCreateTableSQL renders a CREATE TABLE statement for t. Each column is
// rendered as
//
//	<name> <type> [NOT NULL]
//
// with PRIMARY KEY and FOREIGN KEY clauses collected at the end of the column
// list. Identifiers are double-quoted, which both supported backends accept.
func BuildCreateTableSQL(t Table) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("schema: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("schema: table %s has no columns", t.Name)
	}

	defs := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("schema: column with empty name in table %s", t.Name)
		}
		if strings.TrimSpace(c.SQLType) == "" {
			return "", fmt.Errorf("schema: column %s.%s missing SQL type", t.Name, c.Name)
		}

		var sb strings.Builder
		sb.WriteString(storage.Ident(c.Name))
		sb.WriteByte(' ')
		sb.WriteString(c.SQLType)
		if c.NotNull {
			sb.WriteString(" NOT NULL")
		}
		defs = append(defs, sb.String())

		if c.PrimaryKey {
			pks = append(pks, storage.Ident(c.Name))
		}
	}

	if len(pks) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			joinIdents(fk.Columns), storage.Ident(fk.RefTable), joinIdents(fk.RefColumns)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", storage.Ident(t.Name), strings.Join(defs, ",\n  ")), nil
}

// BuildCreateIndexSQL renders a CREATE INDEX statement for ix.
func BuildCreateIndexSQL(ix Index) (string, error) {
	if ix.Name == "" || ix.Table == "" || len(ix.Columns) == 0 {
		return "", fmt.Errorf("schema: index needs name, table, and columns (got %+v)", ix)
	}
	unique := ""
	if ix.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, storage.Ident(ix.Name), storage.Ident(ix.Table), joinIdents(ix.Columns)), nil
}

// BuildDropTableSQL renders an idempotent DROP for the named relation.
func BuildDropTableSQL(name string) string {
	return "DROP TABLE IF EXISTS " + storage.Ident(name)
}

func joinIdents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = storage.Ident(c)
	}
	return strings.Join(quoted, ", ")
}
