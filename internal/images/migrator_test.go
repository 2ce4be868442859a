package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dullg/boardgame-migrate/internal/connector"
	"github.com/dullg/boardgame-migrate/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicBase = "https://cdn.example.com"

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifBytes = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
)

type upload struct {
	Key         string
	ContentType string
	Size        int
}

type fakeStore struct {
	uploads []upload
	fail    map[string]bool
}

func (f *fakeStore) Upload(_ context.Context, key, contentType string, data []byte) (string, error) {
	if f.fail[key] {
		return "", errors.New("bucket is read-only")
	}
	f.uploads = append(f.uploads, upload{Key: key, ContentType: contentType, Size: len(data)})
	return storage.PublicURL(publicBase, "game-images", key), nil
}

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newImageServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/catan.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	})
	mux.HandleFunc("/azul", func(w http.ResponseWriter, r *http.Request) {
		// suppress net/http content sniffing so the migrator has to detect it
		w.Header()["Content-Type"] = nil
		w.Write(gifBytes)
	})
	mux.HandleFunc("/gone.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return httptest.NewServer(mux)
}

func newMigrator(t *testing.T, store storage.ObjectStore) (*Migrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := createTestLogger()
	dc := connector.NewDatabaseConnector(connector.ConnectionParams{Driver: connector.DriverPostgres, Database: "test"}, logger)
	dc.DB = db
	return NewMigrator(dc, store, publicBase, logger), mock
}

func gameRows(server string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "image"}).
		AddRow(int64(1), "Blank", nil).
		AddRow(int64(2), "Stored", publicBase+"/game-images/2.png").
		AddRow(int64(3), "Catan", server+"/catan.png").
		AddRow(int64(4), "Azul", server+"/azul").
		AddRow(int64(5), "Gone", server+"/gone.png")
}

func TestMigrate(t *testing.T) {
	server := newImageServer()
	defer server.Close()

	store := &fakeStore{}
	m, mock := newMigrator(t, store)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, image FROM "games"`)).WillReturnRows(gameRows(server.URL))
	update := regexp.QuoteMeta(`UPDATE "games" SET image = $1 WHERE id = $2`)
	mock.ExpectExec(update).
		WithArgs(publicBase+"/game-images/3.png", "3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).
		WithArgs(publicBase+"/game-images/4.gif", "4").
		WillReturnResult(sqlmock.NewResult(0, 1))

	report, err := m.Migrate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Failed)

	require.Len(t, store.uploads, 2)
	assert.Equal(t, upload{Key: "3.png", ContentType: "image/png", Size: len(pngBytes)}, store.uploads[0])
	assert.Equal(t, "4.gif", store.uploads[1].Key)
	assert.Equal(t, "image/gif", store.uploads[1].ContentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateCountsUploadAndUpdateFailures(t *testing.T) {
	server := newImageServer()
	defer server.Close()

	store := &fakeStore{fail: map[string]bool{"3.png": true}}
	m, mock := newMigrator(t, store)

	rows := sqlmock.NewRows([]string{"id", "name", "image"}).
		AddRow(int64(3), "Catan", server.URL+"/catan.png").
		AddRow(int64(4), "Azul", server.URL+"/azul")
	mock.ExpectQuery("SELECT id, name, image").WillReturnRows(rows)
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))

	report, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 2, report.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateDryRun(t *testing.T) {
	store := &fakeStore{}
	m, mock := newMigrator(t, store)
	m.DryRun = true

	mock.ExpectQuery("SELECT id, name, image").WillReturnRows(gameRows("http://unreachable.invalid"))

	report, err := m.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "5"}, report.Candidates)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Success)
	assert.Empty(t, store.uploads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateQueryFailure(t *testing.T) {
	m, mock := newMigrator(t, &fakeStore{})
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation \"games\" does not exist"))

	_, err := m.Migrate(context.Background())
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/png":                ".png",
		"image/jpeg":               ".jpg",
		"image/webp; charset=none": ".webp",
		"":                         DefaultExtension,
		"application/octet-stream": DefaultExtension,
	}
	for contentType, want := range tests {
		if got := ExtensionFor(contentType); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", contentType, got, want)
		}
	}
}
