package database

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

var (
	driverMu     sync.RWMutex
	activeDriver string
)

// SetDriver records the driver chosen at startup so query helpers can
// adapt placeholders without a database handle.
func SetDriver(driver string) {
	driverMu.Lock()
	defer driverMu.Unlock()
	activeDriver = strings.ToLower(strings.TrimSpace(driver))
}

// GetDBDriver returns the active database driver, falling back to the
// DB_DRIVER environment variable and finally sqlite3.
func GetDBDriver() string {
	driverMu.RLock()
	driver := activeDriver
	driverMu.RUnlock()
	if driver == "" {
		driver = strings.ToLower(os.Getenv("DB_DRIVER"))
	}
	if driver == "" {
		driver = "sqlite3"
	}
	return driver
}

// IsMySQL returns true if using MySQL/MariaDB
func IsMySQL() bool {
	driver := GetDBDriver()
	return driver == "mysql" || driver == "mariadb"
}

// IsPostgreSQL returns true if using PostgreSQL
func IsPostgreSQL() bool {
	return GetDBDriver() == "postgres"
}

// IsSQLite returns true if using SQLite
func IsSQLite() bool {
	driver := GetDBDriver()
	return driver == "sqlite3" || driver == "sqlite"
}

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts PostgreSQL placeholders ($1, $2) to ?-style
// placeholders for drivers that need them. Queries are written in
// PostgreSQL form and converted on the way out.
func ConvertPlaceholders(query string) string {
	if IsPostgreSQL() {
		return query
	}

	placeholders := placeholderPattern.FindAllString(query, -1)
	result := query
	for _, placeholder := range placeholders {
		result = strings.Replace(result, placeholder, "?", 1)
	}
	return result
}

var returningPattern = regexp.MustCompile(`(?i)\s+RETURNING\s+.*$`)

// ConvertReturning strips the RETURNING clause for drivers without it.
// The second return value tells the caller to use LastInsertId instead.
func ConvertReturning(query string) (string, bool) {
	hasReturning := strings.Contains(strings.ToUpper(query), "RETURNING")
	if IsPostgreSQL() || !hasReturning {
		return query, false
	}
	return returningPattern.ReplaceAllString(query, ""), true
}
