//go:build integration && postgres

package httpapi

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	app "github.com/R3E-Network/vybe_engagement/internal/app"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage/postgres"
	"github.com/R3E-Network/vybe_engagement/internal/platform/migrations"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"

	_ "github.com/lib/pq"
)

// Integration test against Postgres to ensure migrations and the HTTP flows
// work with persistence.
func TestIntegrationPostgres(t *testing.T) {
	_ = godotenv.Load("../../../.env")
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration")
	}

	ctx := context.Background()
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := postgres.New(db, nil)
	stores := app.Stores{Ledger: store, Edges: store, Comments: store, Profiles: store}
	application, err := app.New(stores, app.Options{Verifier: testVerifier()}, logger.Discard())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(ctx) })
	h := NewHandler(application, Options{Log: logger.Discard()})

	alice := "it-" + uuid.NewString()
	bob := "it-" + uuid.NewString()
	post := "post-" + uuid.NewString()

	expectStatus(t, do(t, h, http.MethodGet, "/v1/wallet", bob, nil), http.StatusOK)
	expectStatus(t, do(t, h, http.MethodPost, "/v1/admin/wallets/"+alice+"/deposit", "ops", map[string]any{"amount": "20"}), http.StatusOK)

	tip := map[string]any{"to": bob, "amount": "3.25", "post_id": post}
	first := decode(t, do(t, h, http.MethodPost, "/v1/tips", alice, tip, IdempotencyHeader, "it-key"))
	retry := decode(t, do(t, h, http.MethodPost, "/v1/tips", alice, tip, IdempotencyHeader, "it-key"))
	if first["id"] == nil || first["id"] != retry["id"] {
		t.Fatalf("idempotent retry mismatch: %v vs %v", first["id"], retry["id"])
	}

	wal := decode(t, do(t, h, http.MethodGet, "/v1/wallet", alice, nil))
	if wal["balance"] != "16.75" {
		t.Fatalf("alice balance = %v, want 16.75", wal["balance"])
	}

	expectStatus(t, do(t, h, http.MethodPut, "/v1/users/"+bob+"/follow", alice, nil), http.StatusOK)
	expectStatus(t, do(t, h, http.MethodPut, "/v1/posts/"+post+"/like", alice, nil), http.StatusOK)
	expectStatus(t, do(t, h, http.MethodPost, "/v1/posts/"+post+"/comments", bob, map[string]any{"body": "thanks"}), http.StatusCreated)

	profile := decode(t, do(t, h, http.MethodGet, "/v1/users/"+bob+"/counts", alice, nil))
	if profile["followers"] != float64(1) {
		t.Fatalf("followers = %v", profile["followers"])
	}
	counts := decode(t, do(t, h, http.MethodGet, "/v1/posts/"+post+"/counts", alice, nil))
	if counts["likes"] != float64(1) || counts["comments"] != float64(1) {
		t.Fatalf("post counts = %v", counts)
	}
}
