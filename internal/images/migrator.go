package images

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/dullg/boardgame-migrate/internal/connector"
	"github.com/dullg/boardgame-migrate/internal/storage"
	"github.com/dullg/boardgame-migrate/pkg/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// DownloadTimeout bounds a single image download
const DownloadTimeout = 10 * time.Second

// DefaultExtension is used when the content type maps to no known extension
const DefaultExtension = ".jpg"

// Migrator copies externally hosted game images into object storage and
// points the games table at the stored copies
type Migrator struct {
	DB            *connector.DatabaseConnector
	Store         storage.ObjectStore
	HTTPClient    *http.Client
	Table         string
	PublicBaseURL string
	DryRun        bool
	Logger        *logrus.Logger
}

// NewMigrator creates a new image migrator for the games table
func NewMigrator(db *connector.DatabaseConnector, store storage.ObjectStore, publicBaseURL string, logger *logrus.Logger) *Migrator {
	return &Migrator{
		DB:            db,
		Store:         store,
		HTTPClient:    &http.Client{Timeout: DownloadTimeout},
		Table:         "games",
		PublicBaseURL: publicBaseURL,
		Logger:        logger,
	}
}

type gameImage struct {
	ID   string
	Name string
	URL  string
}

// Migrate processes every game row. Failing to list the games is fatal;
// per-row failures are counted and the run continues.
func (m *Migrator) Migrate(ctx context.Context) (models.ImageReport, error) {
	var report models.ImageReport

	games, err := m.listGames()
	if err != nil {
		return report, fmt.Errorf("listing games: %w", err)
	}
	report.Total = len(games)
	m.Logger.Infof("Checking %d games", len(games))

	for _, g := range games {
		if strings.TrimSpace(g.URL) == "" {
			report.Skipped++
			continue
		}
		if m.alreadyStored(g.URL) {
			m.Logger.Debugf("Skipping %s (id %s): already in storage", g.Name, g.ID)
			report.Skipped++
			continue
		}

		if m.DryRun {
			m.Logger.Infof("[dry run] would migrate %s (id %s): %s", g.Name, g.ID, g.URL)
			report.Candidates = append(report.Candidates, g.ID)
			continue
		}

		if err := m.migrateOne(ctx, g); err != nil {
			m.Logger.WithFields(logrus.Fields{"id": g.ID, "name": g.Name}).Warnf("Image migration failed: %v", err)
			report.Failed++
			continue
		}
		report.Success++
	}

	return report, nil
}

func (m *Migrator) listGames() ([]gameImage, error) {
	query := fmt.Sprintf("SELECT id, name, image FROM %s", m.DB.QuoteIdent(m.Table))
	rows, err := m.DB.ExecuteQuery(query)
	if err != nil {
		return nil, err
	}

	games := make([]gameImage, 0, len(rows))
	for _, row := range rows {
		games = append(games, gameImage{
			ID:   stringValue(row["id"]),
			Name: stringValue(row["name"]),
			URL:  stringValue(row["image"]),
		})
	}
	return games, nil
}

func (m *Migrator) alreadyStored(url string) bool {
	return m.PublicBaseURL != "" && strings.HasPrefix(url, strings.TrimRight(m.PublicBaseURL, "/")+"/")
}

func (m *Migrator) migrateOne(ctx context.Context, g gameImage) error {
	m.Logger.Infof("Processing %s (id %s)", g.Name, g.ID)

	data, contentType, err := m.download(ctx, g.URL)
	if err != nil {
		return err
	}

	ext := ExtensionFor(contentType)
	key := g.ID + ext
	newURL, err := m.Store.Upload(ctx, key, contentType, data)
	if err != nil {
		return err
	}

	update := fmt.Sprintf("UPDATE %s SET image = %s WHERE id = %s",
		m.DB.QuoteIdent(m.Table), m.DB.Placeholder(1), m.DB.Placeholder(2))
	affected, err := m.DB.ExecuteStatement(update, newURL, g.ID)
	if err != nil {
		return fmt.Errorf("updating image url: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("updating image url: no row with id %s", g.ID)
	}

	m.Logger.Infof("Migrated %s -> %s", g.Name, newURL)
	return nil
}

// download fetches url and returns its body with a content type, sniffing the
// body when the server sends none
func (m *Migrator) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request: %w", err)
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("downloading: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

// ExtensionFor maps a content type to a file extension, defaulting to .jpg
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return DefaultExtension
	}
	if mt := mimetype.Lookup(mediaType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	return DefaultExtension
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
