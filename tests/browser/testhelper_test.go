package browser_test

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	_ "modernc.org/sqlite"

	web "firesim/internal/adapters/http"
	"firesim/internal/adapters/imagegen"
	"firesim/internal/adapters/realtime"
	"firesim/internal/adapters/storage"
	auditStore "firesim/internal/adapters/storage/audit"
	outboxStore "firesim/internal/adapters/storage/outbox"
	participantStore "firesim/internal/adapters/storage/participant"
	reportStore "firesim/internal/adapters/storage/report"
	sessionStore "firesim/internal/adapters/storage/session"
	"firesim/internal/application/orchestrators"
	"firesim/internal/application/projections"
)

const adminPassword = "TestPass123!"

// testApp is a running FireSim server with a headless Chromium pointed at it.
type testApp struct {
	BaseURL string
	browser playwright.Browser
}

// staticDir resolves the asset directory from this file, independent of the
// working directory go test picks.
func staticDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok, "cannot locate test source")
	return filepath.Join(filepath.Dir(file), "..", "..", "static")
}

// newTestApp wires every store against a throwaway SQLite file, seeds the
// demo session and serves the full middleware chain.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "firesim.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db))

	stores := &web.Stores{
		SessionStore:     sessionStore.NewSQLiteStore(db),
		ParticipantStore: participantStore.NewSQLiteStore(db),
		ReportStore:      reportStore.NewSQLiteStore(db),
		OutboxStore:      outboxStore.NewSQLiteStore(db),
		AuditStore:       auditStore.NewSQLiteStore(db),
	}
	_, err = orchestrators.ExecuteSeedDemoSession(context.Background(), orchestrators.SessionAdminDeps{
		SessionStore: stores.SessionStore,
		Now:          time.Now,
	})
	require.NoError(t, err)

	hash, err := orchestrators.HashAdminPassword(adminPassword, bcrypt.MinCost)
	require.NoError(t, err)

	// The listener must exist before the CSRF layer learns its origin.
	srv := httptest.NewUnstartedServer(nil)
	host := srv.Listener.Addr().String()

	broadcaster := realtime.NewBroadcaster(nil)
	t.Cleanup(broadcaster.Close)
	handler, err := web.NewMux(staticDir(t), stores, &web.Services{
		PasswordHash: hash,
		Generator:    &imagegen.Static{Image: imagegen.Image{Base64: "aW1n", MIMEType: "image/png"}},
		Broadcaster:  broadcaster,
		Notifier: &projections.LiveNotifier{
			Publisher:    broadcaster,
			Sessions:     stores.SessionStore,
			Participants: stores.ParticipantStore,
			Reports:      stores.ReportStore,
			Now:          time.Now,
		},
		TrustedOrigins: []string{host},
	}, nil)
	require.NoError(t, err)
	srv.Config.Handler = handler
	srv.Start()
	t.Cleanup(srv.Close)

	pw, err := playwright.Run()
	require.NoError(t, err, "playwright driver not installed")
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	require.NoError(t, err)
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
	})

	return &testApp{BaseURL: srv.URL, browser: browser}
}

func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.browser.NewPage()
	require.NoError(t, err)
	t.Cleanup(func() { page.Close() })
	return page
}

// login passes the admin password gate and waits for the session list.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	_, err := page.Goto(a.BaseURL + "/admin/login")
	require.NoError(t, err)
	require.NoError(t, page.Locator("input[name=password]").Fill(adminPassword))
	require.NoError(t, page.Locator("button[type=submit]").Click())
	require.NoError(t, page.WaitForURL(a.BaseURL+"/admin", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}), "login did not land on the session list")
}
