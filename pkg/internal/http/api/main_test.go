package api

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	localCache "git.solsynth.dev/hypernet/nanovote/pkg/internal/cache"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/database"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/models"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/realtime"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

func TestMain(m *testing.M) {
	viper.Set("security.fingerprint_salt", "test-fingerprint-salt")
	if err := localCache.NewStore(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up cache: %v\n", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, "", false)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.RunMigration(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	previous := database.C
	database.C = db
	t.Cleanup(func() {
		database.C = previous
		if raw, err := db.DB(); err == nil {
			_ = raw.Close()
		}
	})

	// Requests come from 0.0.0.0, trusted as a proxy so X-Forwarded-For picks the voter
	app := fiber.New(fiber.Config{
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0"},
		JSONEncoder:             jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:             jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
	})
	MapAPIs(app, "/api", realtime.NewHub(4))
	return app
}

// doRequest sends body as JSON from the given client address and decodes the
// JSON response into a map.
func doRequest(t *testing.T, app *fiber.App, method, path, ip string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := jsoniter.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if len(ip) > 0 {
		req.Header.Set(fiber.HeaderXForwardedFor, ip)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := jsoniter.Unmarshal(raw, &out); err != nil {
			t.Fatalf("Failed to decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func createPollThroughAPI(t *testing.T, app *fiber.App, body map[string]any) string {
	t.Helper()
	status, resp := doRequest(t, app, fiber.MethodPost, "/api/polls", "", body)
	if status != fiber.StatusOK {
		t.Fatalf("Expected poll creation to succeed, got %d %v", status, resp)
	}
	return resp["poll_id"].(string)
}

func TestCreateAndGetPoll(t *testing.T) {
	app := setupTestApp(t)

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/polls", "", map[string]any{
		"title":    "Lunch?",
		"options":  []string{"Pizza", "Sushi"},
		"duration": "1h",
	})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d %v", status, resp)
	}
	pollId, _ := resp["poll_id"].(string)
	if len(pollId) != services.PollIDLength {
		t.Fatalf("Expected an 8 character poll id, got %q", pollId)
	}
	if resp["url"] != "/p/"+pollId {
		t.Errorf("Expected url /p/%s, got %v", pollId, resp["url"])
	}

	status, resp = doRequest(t, app, fiber.MethodGet, "/api/polls/"+pollId, "192.0.2.10", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d %v", status, resp)
	}
	if resp["title"] != "Lunch?" || resp["has_voted"] != false {
		t.Errorf("Unexpected snapshot: %v", resp)
	}
	if options, _ := resp["options"].([]any); len(options) != 2 {
		t.Errorf("Expected 2 options, got %v", resp["options"])
	}
}

func TestCreatePollRejected(t *testing.T) {
	app := setupTestApp(t)

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/polls", "", map[string]any{
		"title":   "Lonely",
		"options": []string{"Only"},
	})
	if status != fiber.StatusBadRequest || resp["code"] != services.CodeInvalidPoll {
		t.Errorf("Expected 400 INVALID_POLL, got %d %v", status, resp)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, "/api/polls", "", map[string]any{
		"options": []string{"A", "B"},
	})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for a missing title, got %d", status)
	}
}

func TestGetPollNotFound(t *testing.T) {
	app := setupTestApp(t)

	status, resp := doRequest(t, app, fiber.MethodGet, "/api/polls/missing1", "", nil)
	if status != fiber.StatusNotFound || resp["code"] != services.CodePollNotFound {
		t.Errorf("Expected 404 POLL_NOT_FOUND, got %d %v", status, resp)
	}
}

func TestVotePoll(t *testing.T) {
	app := setupTestApp(t)
	pollId := createPollThroughAPI(t, app, map[string]any{
		"title":   "Lunch?",
		"options": []string{"Pizza", "Sushi", "Tacos"},
	})
	path := "/api/polls/" + pollId + "/vote"

	status, resp := doRequest(t, app, fiber.MethodPost, path, "192.0.2.1", map[string]any{"option_id": 1})
	if status != fiber.StatusOK || resp["success"] != true {
		t.Fatalf("Expected vote to succeed, got %d %v", status, resp)
	}
	if resp["total_votes"] != float64(1) {
		t.Errorf("Expected total_votes 1, got %v", resp["total_votes"])
	}

	status, resp = doRequest(t, app, fiber.MethodPost, path, "192.0.2.1", map[string]any{"option_id": 2})
	if status != fiber.StatusConflict || resp["code"] != services.CodeAlreadyVoted {
		t.Errorf("Expected 409 ALREADY_VOTED, got %d %v", status, resp)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, path, "192.0.2.2", map[string]any{"option_ids": []uint{2}})
	if status != fiber.StatusOK || resp["total_votes"] != float64(2) {
		t.Errorf("Expected second voter to succeed with total 2, got %d %v", status, resp)
	}

	status, resp = doRequest(t, app, fiber.MethodGet, "/api/polls/"+pollId, "192.0.2.1", nil)
	if status != fiber.StatusOK || resp["has_voted"] != true {
		t.Errorf("Expected has_voted for the first voter, got %d %v", status, resp)
	}
	if votedFor, _ := resp["voted_for"].([]any); len(votedFor) != 1 || votedFor[0] != float64(1) {
		t.Errorf("Expected voted_for [1], got %v", resp["voted_for"])
	}
}

func TestVotePollRejected(t *testing.T) {
	app := setupTestApp(t)
	pollId := createPollThroughAPI(t, app, map[string]any{
		"title":   "Colors",
		"options": []string{"Red", "Green"},
	})
	path := "/api/polls/" + pollId + "/vote"

	status, resp := doRequest(t, app, fiber.MethodPost, path, "192.0.2.3", map[string]any{"option_id": 9})
	if status != fiber.StatusBadRequest || resp["code"] != services.CodeInvalidOption || resp["option_id"] != float64(9) {
		t.Errorf("Expected 400 INVALID_OPTION naming option 9, got %d %v", status, resp)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, path, "192.0.2.3", map[string]any{})
	if status != fiber.StatusBadRequest || resp["code"] != services.CodeMissingOption {
		t.Errorf("Expected 400 MISSING_OPTION, got %d %v", status, resp)
	}

	status, _ = doRequest(t, app, fiber.MethodPost, path, "192.0.2.3", map[string]any{"option_id": 1, "option_ids": []uint{2}})
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 when both option fields are set, got %d", status)
	}

	status, resp = doRequest(t, app, fiber.MethodPost, "/api/polls/missing1/vote", "192.0.2.3", map[string]any{"option_id": 1})
	if status != fiber.StatusNotFound || resp["code"] != services.CodePollNotFound {
		t.Errorf("Expected 404 POLL_NOT_FOUND, got %d %v", status, resp)
	}
}

func TestVoteSelectionBoundsReported(t *testing.T) {
	app := setupTestApp(t)
	pollId := createPollThroughAPI(t, app, map[string]any{
		"title":          "Toppings",
		"options":        []string{"Cheese", "Ham", "Olives"},
		"allow_multiple": true,
		"min_selection":  2,
	})

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/polls/"+pollId+"/vote", "192.0.2.4", map[string]any{"option_ids": []uint{1}})
	if status != fiber.StatusBadRequest || resp["code"] != services.CodeMinSelection || resp["count"] != float64(2) {
		t.Errorf("Expected 400 MIN_SELECTION with count 2, got %d %v", status, resp)
	}
}

func TestVoteExpiredPoll(t *testing.T) {
	app := setupTestApp(t)
	pollId := createPollThroughAPI(t, app, map[string]any{
		"title":    "Quick",
		"options":  []string{"A", "B"},
		"duration": "3m",
	})

	original := services.Now
	services.Now = func() time.Time {
		return original().Add(10 * time.Minute)
	}
	t.Cleanup(func() {
		services.Now = original
	})

	status, resp := doRequest(t, app, fiber.MethodPost, "/api/polls/"+pollId+"/vote", "192.0.2.5", map[string]any{"option_id": 1})
	if status != fiber.StatusGone || resp["code"] != services.CodePollExpired {
		t.Errorf("Expected 410 POLL_EXPIRED, got %d %v", status, resp)
	}

	status, _ = doRequest(t, app, fiber.MethodGet, "/api/polls/"+pollId, "", nil)
	if status != fiber.StatusNotFound {
		t.Errorf("Expected expired poll to be gone, got %d", status)
	}
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)

	status, resp := doRequest(t, app, fiber.MethodGet, "/health", "", nil)
	if status != fiber.StatusOK || resp["status"] != services.HealthStatusHealthy {
		t.Errorf("Expected healthy store, got %d %v", status, resp)
	}
}

func TestListenPollEventsNotFound(t *testing.T) {
	app := setupTestApp(t)

	status, resp := doRequest(t, app, fiber.MethodGet, "/api/polls/missing1/events", "", nil)
	if status != fiber.StatusNotFound || resp["code"] != services.CodePollNotFound {
		t.Errorf("Expected 404 POLL_NOT_FOUND, got %d %v", status, resp)
	}
}

func TestWriteServerEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	err := writeServerEvent(w, realtime.Event{
		Type: models.EventVoteUpdate,
		Data: models.VoteEvent{PollID: "abcd1234", OptionID: 2, Votes: 3, TotalVotes: 5},
	})
	if err != nil {
		t.Fatalf("Failed to write event: %v", err)
	}

	expected := "event: vote_update\ndata: {\"poll_id\":\"abcd1234\",\"option_id\":2,\"votes\":3,\"total_votes\":5}\n\n"
	if buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}
