//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	httpapi "github.com/execution-hub/matchflow/internal/api/http"
	"github.com/execution-hub/matchflow/internal/application/match"
	"github.com/execution-hub/matchflow/internal/domain/battle"
	"github.com/execution-hub/matchflow/internal/eventbus"
	"github.com/execution-hub/matchflow/internal/infrastructure/postgres"
	"github.com/execution-hub/matchflow/internal/infrastructure/sse"
	"github.com/execution-hub/matchflow/internal/migrations"
	"github.com/execution-hub/matchflow/internal/scheduler"
)

func TestMatchHistoryIsPersisted(t *testing.T) {
	server, repo, cleanup := newTestServer(t)
	defer cleanup()

	var created struct {
		MatchID uuid.UUID `json:"matchId"`
		State   string    `json:"state"`
	}
	postJSON(t, server.URL+"/v1/matches", map[string]any{"seed": 42, "pointsToWin": 1}, http.StatusCreated, &created)
	if created.State != battle.StateWaitingForMatchStart {
		t.Fatalf("unexpected initial state %q", created.State)
	}
	defer func() {
		_, _ = repo.DeleteMatch(context.Background(), created.MatchID)
	}()

	intents := server.URL + "/v1/matches/" + created.MatchID.String() + "/intents"
	script := []map[string]any{
		{"event": battle.EventStartClicked},
		{"event": battle.EventReady},
		{"event": battle.EventReady},
		{"event": battle.EventCardsRevealed},
		{"event": battle.EventStatSelected},
		{"event": battle.EventOutcome, "payload": map[string]any{"winner": battle.WinnerPlayer, "stat": "power", "playerValue": 9, "opponentValue": 4}},
		{"event": battle.EventContinue},
		{"event": battle.EventFinalize},
	}
	for _, step := range script {
		postJSON(t, intents, step, http.StatusOK, nil)
	}

	resp, err := http.Get(server.URL + "/v1/matches/" + created.MatchID.String() + "/history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status %d", resp.StatusCode)
	}
	var history struct {
		Transitions []battle.TransitionRecord `json:"transitions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Transitions) != len(script) {
		t.Fatalf("expected %d transitions, got %d", len(script), len(history.Transitions))
	}
	for i, rec := range history.Transitions {
		if rec.Seq != int64(i+1) {
			t.Fatalf("transition %d has seq %d", i, rec.Seq)
		}
	}
	last := history.Transitions[len(history.Transitions)-1]
	if last.ToState != battle.StateMatchOver {
		t.Fatalf("expected final state %q, got %q", battle.StateMatchOver, last.ToState)
	}
	if last.Snapshot.Scores.Player != 1 {
		t.Fatalf("expected player score 1, got %+v", last.Snapshot.Scores)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *postgres.TransitionRepository, func()) {
	t.Helper()
	dsn := testDatabaseURL(t)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn, 4)
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}
	if err := postgres.RunMigrations(ctx, pool, migrations.FS, "."); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	if err := resetDatabase(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("reset db: %v", err)
	}

	logger := zerolog.Nop()
	repo := postgres.NewTransitionRepository(pool)
	def, err := battle.DefaultDefinition()
	if err != nil {
		pool.Close()
		t.Fatalf("definition: %v", err)
	}
	manager := match.NewManager(match.Options{Registry: eventbus.NewRegistry()}, logger)
	hub := sse.NewHub(logger)
	api := httpapi.NewServer(manager, hub, httpapi.Options{
		Definition:    def,
		SchedulerMode: scheduler.ModeImmediate,
		Recorder:      repo,
	}, logger)
	server := httptest.NewServer(api.Router())

	return server, repo, func() {
		server.Close()
		hub.Stop()
		manager.DisposeAll()
		pool.Close()
	}
}

func postJSON(t *testing.T, url string, body any, want int, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		t.Fatalf("post %s: status %d, want %d", url, resp.StatusCode, want)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	return ""
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE TABLE match_transitions RESTART IDENTITY`)
	return err
}
