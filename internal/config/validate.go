// This file adds a lightweight linter for Config values: static checks over a
// loaded Config returning a list of issues (errors and warnings) that the CLI
// and tests can surface before any database work starts.
package config

import (
	"fmt"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// configuration (e.g. "db.postgres_host", "sources.orders_path").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings are fatal.
func Validate(c *Config) []Issue {
	var issues []Issue

	switch c.DB.Driver {
	case "postgres":
		if strings.TrimSpace(c.DB.Host) == "" {
			issues = append(issues, Issue{SeverityError, "db.postgres_host", "host must not be empty"})
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			issues = append(issues, Issue{SeverityError, "db.postgres_port", fmt.Sprintf("port %d out of range", c.DB.Port)})
		}
		if strings.TrimSpace(c.DB.Name) == "" {
			issues = append(issues, Issue{SeverityError, "db.postgres_db", "database name must not be empty"})
		}
	case "sqlite":
		if strings.TrimSpace(c.DB.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "db.db_dsn", "sqlite driver requires db_dsn (file path or :memory:)"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "db.db_driver", fmt.Sprintf("unknown driver %q (want postgres or sqlite)", c.DB.Driver)})
	}

	for path, p := range map[string]string{
		"sources.orders_path":      c.Sources.Orders,
		"sources.menu_items_path":  c.Sources.MenuItems,
		"sources.order_items_path": c.Sources.OrderItems,
	} {
		if strings.TrimSpace(p) == "" {
			issues = append(issues, Issue{SeverityError, path, "source path must not be empty"})
		}
	}

	if c.KeyModel != KeyModelString && c.KeyModel != KeyModelIntegerFK {
		issues = append(issues, Issue{SeverityError, "key_model", fmt.Sprintf("unknown key model %q (want %q or %q)", c.KeyModel, KeyModelString, KeyModelIntegerFK)})
	}
	if c.ValidationMode != ValidationAbort && c.ValidationMode != ValidationWarn {
		issues = append(issues, Issue{SeverityError, "validation_mode", fmt.Sprintf("unknown mode %q (want %q or %q)", c.ValidationMode, ValidationAbort, ValidationWarn)})
	}

	if c.DateLayout == "" {
		issues = append(issues, Issue{SeverityError, "date_layout", "date layout must not be empty"})
	} else {
		// Round-trip a reference date to catch layouts that cannot parse what
		// they format.
		ref := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
		if _, err := time.Parse(c.DateLayout, ref.Format(c.DateLayout)); err != nil {
			issues = append(issues, Issue{SeverityError, "date_layout", fmt.Sprintf("layout %q does not round-trip: %v", c.DateLayout, err)})
		}
	}

	if c.TopItemsLimit < 0 {
		issues = append(issues, Issue{SeverityError, "top_items_limit", "limit must not be negative"})
	}
	if c.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityWarning, "batch_size", fmt.Sprintf("batch_size=%d; non-positive batch sizes fall back to the default", c.BatchSize)})
	}
	if c.RunTimeout <= 0 {
		issues = append(issues, Issue{SeverityWarning, "run_timeout", "no deadline configured; a stuck run will block forever"})
	}
	if c.SkipInvalidRows {
		issues = append(issues, Issue{SeverityWarning, "skip_invalid_rows", "skip-and-log ingestion enabled; uncoercible rows will be dropped and counted"})
	}

	return issues
}

// HasError reports whether any issue in the list has error severity.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
