package connector

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// DatabaseConnector handles database connection and query execution
type DatabaseConnector struct {
	Driver   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	SSLMode  string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// ConnectionParams holds explicitly supplied connection settings; blank fields
// fall back to DB_* environment variables
type ConnectionParams struct {
	Driver   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	SSLMode  string
}

// NewDatabaseConnector creates a new database connector
func NewDatabaseConnector(params ConnectionParams, logger *logrus.Logger) *DatabaseConnector {
	if params.Driver == "" {
		params.Driver = getEnvOrDefault("DB_DRIVER", DriverPostgres)
	}
	if params.Host == "" {
		params.Host = getEnvOrDefault("DB_HOST", "localhost")
	}
	if params.User == "" {
		params.User = getEnvOrDefault("DB_USER", defaultUser(params.Driver))
	}
	if params.Password == "" {
		params.Password = getEnvOrDefault("DB_PASSWORD", "")
	}
	if params.Database == "" {
		params.Database = getEnvOrDefault("DB_NAME", "")
	}
	if params.Port == "" {
		params.Port = getEnvOrDefault("DB_PORT", defaultPort(params.Driver))
	}
	if params.SSLMode == "" {
		params.SSLMode = getEnvOrDefault("DB_SSLMODE", "require")
	}

	return &DatabaseConnector{
		Driver:   params.Driver,
		Host:     params.Host,
		User:     params.User,
		Password: params.Password,
		Database: params.Database,
		Port:     params.Port,
		SSLMode:  params.SSLMode,
		Logger:   logger,
	}
}

// DSN builds the driver-specific data source name
func (dc *DatabaseConnector) DSN() (string, error) {
	switch dc.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", dc.User, dc.Password, dc.Host, dc.Port, dc.Database), nil
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(dc.User, dc.Password),
			Host:     dc.Host + ":" + dc.Port,
			Path:     "/" + dc.Database,
			RawQuery: "sslmode=" + url.QueryEscape(dc.SSLMode),
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported database driver: %q", dc.Driver)
}

// Connect establishes a connection to the database
func (dc *DatabaseConnector) Connect() error {
	if dc.Database == "" {
		return fmt.Errorf("database name must be provided either as an argument or as DB_NAME environment variable")
	}

	dsn, err := dc.DSN()
	if err != nil {
		return err
	}
	db, err := sql.Open(dc.Driver, dsn)
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s database: %v", dc.Driver, err)
		return err
	}

	// Test the connection
	err = db.Ping()
	if err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Driver, err)
		db.Close()
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database: %s", dc.Driver, dc.Database)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Infof("%s connection closed", dc.Driver)
		}
	}
}

// Placeholder returns the bind parameter marker for the n-th (1-based) argument
func (dc *DatabaseConnector) Placeholder(n int) string {
	if dc.Driver == DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count comma-separated markers starting at start
func (dc *DatabaseConnector) Placeholders(start, count int) string {
	marks := make([]string, count)
	for i := range marks {
		marks[i] = dc.Placeholder(start + i)
	}
	return strings.Join(marks, ", ")
}

// QuoteIdent quotes a table or column name; dotted names are quoted per part
func (dc *DatabaseConnector) QuoteIdent(name string) string {
	quote := `"`
	if dc.Driver == DriverMySQL {
		quote = "`"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote + strings.ReplaceAll(p, quote, quote+quote) + quote
	}
	return strings.Join(parts, ".")
}

// ExecuteQuery executes a SQL query and returns the results
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	result, err := dc.DB.Exec(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		dc.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// ExecuteMany executes a SQL statement with multiple parameter sets in one transaction
func (dc *DatabaseConnector) ExecuteMany(query string, paramsList [][]interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	tx, err := dc.DB.Begin()
	if err != nil {
		dc.Logger.Errorf("Error starting transaction: %v", err)
		return 0, err
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		dc.Logger.Errorf("Error preparing statement: %v", err)
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var totalAffected int64

	for _, params := range paramsList {
		result, err := stmt.Exec(params...)
		if err != nil {
			dc.Logger.Errorf("Error executing batch statement: %v", err)
			tx.Rollback()
			return 0, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			dc.Logger.Errorf("Error getting affected rows: %v", err)
			tx.Rollback()
			return 0, err
		}

		totalAffected += affected
	}

	if err := tx.Commit(); err != nil {
		dc.Logger.Errorf("Error committing transaction: %v", err)
		return 0, err
	}

	return totalAffected, nil
}

func defaultPort(driver string) string {
	if driver == DriverMySQL {
		return "3306"
	}
	return "5432"
}

func defaultUser(driver string) string {
	if driver == DriverMySQL {
		return "root"
	}
	return "postgres"
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
