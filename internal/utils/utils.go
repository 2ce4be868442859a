package utils

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dullg/boardgame-migrate/internal/analyzer"
	"github.com/dullg/boardgame-migrate/internal/connector"
	"github.com/dullg/boardgame-migrate/internal/reconcile"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Out receives the printed summaries
var Out io.Writer = os.Stdout

// secretVars are masked when the environment is dumped at debug level
var secretVars = map[string]bool{
	"DB_PASSWORD":        true,
	"STORAGE_SECRET_KEY": true,
	"STORAGE_ACCESS_KEY": true,
}

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	// Create a new logger
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("MIGRATE_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	// Parse log level
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	// Configure logger
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// runHook stamps every entry with the id of the current run
type runHook struct {
	id string
}

func (h runHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h runHook) Fire(entry *logrus.Entry) error {
	entry.Data["run"] = h.id
	return nil
}

// AttachRunID tags every subsequent log entry with a fresh run id and returns it
func AttachRunID(logger *logrus.Logger) string {
	id := uuid.NewString()
	logger.AddHook(runHook{id: id})
	return id
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	// Load environment variables from .env file if it exists
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "DB_") && !strings.HasPrefix(env, "STORAGE_") && !strings.HasPrefix(env, "MIGRATE_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if secretVars[parts[0]] {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}
}

// CheckRequiredEnv reports whether every named variable is set
func CheckRequiredEnv(vars []string, logger *logrus.Logger) bool {
	var missingVars []string
	for _, v := range vars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing required environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}
	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ValidateConnectionParams validates database connection parameters
func ValidateConnectionParams(dc *connector.DatabaseConnector, logger *logrus.Logger) bool {
	if dc.Driver != connector.DriverMySQL && dc.Driver != connector.DriverPostgres {
		logger.Errorf("Unsupported database driver: %s", dc.Driver)
		return false
	}

	if dc.Host == "" {
		logger.Error("Database host is required")
		return false
	}

	if dc.User == "" {
		logger.Error("Database user is required")
		return false
	}

	if dc.Password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if dc.Database == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(dc.Port); err != nil {
		logger.Errorf("Invalid port number: %s", dc.Port)
		return false
	}

	return true
}

func banner(title string) {
	fmt.Fprintln(Out, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(Out, title)
	fmt.Fprintln(Out, strings.Repeat("=", 50))
}

func footer() {
	fmt.Fprintln(Out, strings.Repeat("=", 50))
}

// PrintRenumberSummary prints the outcome of a renumbering run
func PrintRenumberSummary(result *reconcile.RenumberResult) {
	banner("IDENTIFIER RENUMBERING SUMMARY")
	fmt.Fprintf(Out, "Primary rows: %d\n", result.Primary.Rows)
	fmt.Fprintf(Out, "Largest well-formed id: %d\n", result.Primary.MaxValid)
	fmt.Fprintf(Out, "Identifiers fixed: %d\n", result.Primary.Fixed)
	fmt.Fprintf(Out, "Identifiers preserved: %d\n", result.Primary.Preserved)
	if result.Primary.FirstNewID != "" {
		fmt.Fprintf(Out, "First new id: %s\n", result.Primary.FirstNewID)
	}
	if len(result.Primary.Duplicates) > 0 {
		fmt.Fprintf(Out, "Duplicate identifiers: %s\n", strings.Join(result.Primary.Duplicates, ", "))
	}

	if len(result.Dependents) > 0 {
		fmt.Fprintln(Out, "\nDependent tables:")
		for _, d := range result.Dependents {
			if d.Skipped {
				fmt.Fprintf(Out, "  - %s: skipped (not found)\n", d.Table)
				continue
			}
			fmt.Fprintf(Out, "  - %s: %d/%d references updated\n", d.Table, d.Updated, d.Rows)
		}
	}
	footer()
}

// PrintRepairSummary prints the outcome of truncation recovery
func PrintRepairSummary(reports []models.RepairReport) {
	banner("IDENTIFIER SYNC SUMMARY")
	for _, r := range reports {
		if r.Skipped {
			fmt.Fprintf(Out, "%s: skipped (not found)\n", r.Table)
			continue
		}
		fmt.Fprintf(Out, "%s: %d rows, %d valid, %d repaired, %d unresolved\n",
			r.Table, r.Rows, r.Valid, r.Repaired, r.Unresolved)
		if len(r.Missing) > 0 {
			fmt.Fprintf(Out, "  unresolved values: %s\n", strings.Join(r.Missing, ", "))
		}
	}
	footer()
}

// PrintIngestSummary prints the counters of a row-filtering step
func PrintIngestSummary(title string, report models.IngestReport) {
	banner(strings.ToUpper(title) + " SUMMARY")
	fmt.Fprintf(Out, "Rows read: %d\n", report.Read)
	fmt.Fprintf(Out, "Rows written: %d\n", report.Written)
	fmt.Fprintf(Out, "Rows dropped: %d\n", report.Dropped)
	fmt.Fprintf(Out, "Rows filtered: %d\n", report.Filtered)
	footer()
}

// PrintImportPlan prints the insertion order derived from the import plan
func PrintImportPlan(planAnalyzer *analyzer.PlanAnalyzer, ordered []models.ImportTable) {
	banner("IMPORT PLAN")
	fmt.Fprintf(Out, "Total tables: %d\n", len(planAnalyzer.Tables))
	if len(planAnalyzer.External) > 0 {
		fmt.Fprintln(Out, "\nReferences outside this import:")
		for _, t := range planAnalyzer.Tables {
			if refs := planAnalyzer.External[t.Name]; len(refs) > 0 {
				fmt.Fprintf(Out, "  %s -> %s\n", t.Name, strings.Join(refs, ", "))
			}
		}
	}
	fmt.Fprintln(Out, "\nTable insertion order:")
	for i, t := range ordered {
		fmt.Fprintf(Out, "  %3d. %s (%s)\n", i+1, t.Name, t.Path)
	}
	footer()
}

// PrintImportSummary prints a summary of the import process
func PrintImportSummary(result models.ImportResult) {
	banner("TABLE IMPORT SUMMARY")
	fmt.Fprintf(Out, "Total tables processed: %d\n", len(result.SuccessfulTables)+len(result.FailedTables))
	fmt.Fprintf(Out, "Successfully imported tables: %d\n", len(result.SuccessfulTables))
	fmt.Fprintf(Out, "Failed tables: %d\n", len(result.FailedTables))
	fmt.Fprintf(Out, "Total records inserted: %d\n", result.TotalRecords)

	if len(result.FailedTables) > 0 {
		fmt.Fprintln(Out, "\nFailed tables:")
		for _, table := range result.FailedTables {
			fmt.Fprintf(Out, "  - %s\n", table)
		}
	}
	footer()
}

// PrintImageSummary prints the outcome of an image migration
func PrintImageSummary(report models.ImageReport, dryRun bool) {
	banner("IMAGE MIGRATION SUMMARY")
	fmt.Fprintf(Out, "Games checked: %d\n", report.Total)
	if dryRun {
		fmt.Fprintf(Out, "Would migrate: %d\n", len(report.Candidates))
	} else {
		fmt.Fprintf(Out, "Success: %d\n", report.Success)
		fmt.Fprintf(Out, "Failed: %d\n", report.Failed)
	}
	fmt.Fprintf(Out, "Skipped: %d\n", report.Skipped)
	footer()
}

// VerifyTablePopulation checks that every imported table holds at least the
// number of rows read from its file
func VerifyTablePopulation(db *connector.DatabaseConnector, expected map[string]int, logger *logrus.Logger) (bool, map[string]int) {
	logger.Info("Verifying imported row counts...")

	short := make(map[string]int)
	for table, want := range expected {
		query := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", db.QuoteIdent(table))
		result, err := db.ExecuteQuery(query)
		if err != nil || len(result) == 0 {
			logger.Warningf("Could not verify record count for table: %s", table)
			short[table] = 0
			continue
		}

		count, err := strconv.ParseInt(fmt.Sprintf("%v", result[0]["count"]), 10, 64)
		if err != nil {
			logger.Warningf("Could not parse count for table %s: %v", table, err)
			short[table] = 0
			continue
		}

		if count < int64(want) {
			logger.Warningf("Table %s has only %d/%d expected records", table, count, want)
			short[table] = int(count)
		}
	}

	if len(short) == 0 {
		logger.Info("Verification successful: every table holds its imported rows")
		return true, short
	}
	logger.Errorf("Verification failed: %d tables are short of rows", len(short))
	return false, short
}

// PrintVerificationResults prints the results of the row count verification
func PrintVerificationResults(short map[string]int, expected map[string]int) {
	banner("TABLE IMPORT VERIFICATION RESULTS")
	if len(short) == 0 {
		fmt.Fprintln(Out, "✅ All tables hold their imported rows")
		footer()
		return
	}

	fmt.Fprintf(Out, "⚠️  %d tables are short of rows:\n", len(short))
	for table, count := range short {
		fmt.Fprintf(Out, "  - %s: %d/%d records\n", table, count, expected[table])
	}
	footer()
}
