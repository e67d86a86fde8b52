package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminToken = "test-admin-token"

func startTestServer(test *testing.T) (*httptest.Server, *board.Service) {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	if err := gormstore.Migrate(db); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	service, err := board.NewService(gormstore.New(db), func() time.Time { return time.Now().UTC() })
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	cfg := Config{
		ListenAddr: ":0",
		AdminToken: testAdminToken,
	}
	handler := &httpHandler{
		logger:  zap.NewNop(),
		service: service,
		cfg:     cfg,
	}
	server := httptest.NewServer(setupRouter(cfg, handler))
	test.Cleanup(server.Close)
	return server, service
}

func execJSON(test *testing.T, server *httptest.Server, method string, path string, token string, body interface{}) (int, []byte) {
	test.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			test.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		test.Fatalf("build request: %v", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	response, err := server.Client().Do(request)
	if err != nil {
		test.Fatalf("%s %s: %v", method, path, err)
	}
	defer response.Body.Close()
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		test.Fatalf("read body: %v", err)
	}
	return response.StatusCode, payload
}

func decodeInto(test *testing.T, payload []byte, target interface{}) {
	test.Helper()
	if err := json.Unmarshal(payload, target); err != nil {
		test.Fatalf("decode %s: %v", payload, err)
	}
}

func errorMessage(test *testing.T, payload []byte) string {
	test.Helper()
	var envelope struct {
		Error string `json:"error"`
	}
	decodeInto(test, payload, &envelope)
	return envelope.Error
}

func TestHealthEndpoint(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodGet, "/api/health", "", nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var health struct {
		Status string `json:"status"`
		App    string `json:"app"`
	}
	decodeInto(test, payload, &health)
	if health.Status != "ok" || health.App != "cartowl" {
		test.Fatalf("unexpected health payload: %s", payload)
	}
}

func TestRequestApprovalUnlocksSectionAndDebitsPlayer(test *testing.T) {
	test.Parallel()
	server, service := startTestServer(test)

	playerName, err := board.NewPlayerName("Thorn")
	if err != nil {
		test.Fatalf("player name: %v", err)
	}
	player, err := service.CreatePlayer(context.Background(), playerName, 50)
	if err != nil {
		test.Fatalf("create player: %v", err)
	}

	status, payload := execJSON(test, server, http.MethodPost, "/api/requests", "", map[string]interface{}{
		"player_name": "Thorn",
		"message":     "Found ruins",
		"x":           2,
		"y":           3,
	})
	if status != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", status, payload)
	}
	var created requestPayload
	decodeInto(test, payload, &created)
	if created.Status != "pending" || created.GoldCost != 10 {
		test.Fatalf("unexpected request payload: %s", payload)
	}
	if created.PlayerID == nil || *created.PlayerID != player.ID {
		test.Fatalf("expected request resolved to player %d, got %s", player.ID, payload)
	}

	status, payload = execJSON(test, server, http.MethodPut, "/api/admin/requests/"+created.ID, testAdminToken, map[string]string{"action": "approve"})
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d: %s", status, payload)
	}
	var resolved requestPayload
	decodeInto(test, payload, &resolved)
	if resolved.Status != "approved" {
		test.Fatalf("expected approved, got %s", payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/sections", "", nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var sections []sectionPayload
	decodeInto(test, payload, &sections)
	if len(sections) != 1 || sections[0].X != 2 || sections[0].Y != 3 || !sections[0].IsUnlocked {
		test.Fatalf("expected the approved section unlocked, got %s", payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/admin/players", testAdminToken, nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var players []playerPayload
	decodeInto(test, payload, &players)
	if len(players) != 1 || players[0].GoldBalance != 40 {
		test.Fatalf("expected Thorn debited to 40, got %s", payload)
	}

	status, payload = execJSON(test, server, http.MethodPut, "/api/admin/requests/"+created.ID, testAdminToken, map[string]string{"action": "reject"})
	if status != http.StatusConflict {
		test.Fatalf("expected 409 on re-resolution, got %d: %s", status, payload)
	}
	if errorMessage(test, payload) != "request already resolved" {
		test.Fatalf("unexpected conflict message: %s", payload)
	}
}

func TestRejectLeavesBoardUntouched(test *testing.T) {
	test.Parallel()
	server, service := startTestServer(test)

	playerName, err := board.NewPlayerName("Moss")
	if err != nil {
		test.Fatalf("player name: %v", err)
	}
	if _, err := service.CreatePlayer(context.Background(), playerName, 25); err != nil {
		test.Fatalf("create player: %v", err)
	}

	status, payload := execJSON(test, server, http.MethodPost, "/api/requests", "", map[string]interface{}{
		"player_name": "Moss",
		"x":           1,
		"y":           1,
	})
	if status != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", status, payload)
	}
	var created requestPayload
	decodeInto(test, payload, &created)

	status, payload = execJSON(test, server, http.MethodPut, "/api/admin/requests/"+created.ID, testAdminToken, map[string]string{"action": "reject"})
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d: %s", status, payload)
	}
	var resolved requestPayload
	decodeInto(test, payload, &resolved)
	if resolved.Status != "rejected" {
		test.Fatalf("expected rejected, got %s", payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/sections", "", nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var sections []sectionPayload
	decodeInto(test, payload, &sections)
	if len(sections) != 0 {
		test.Fatalf("expected no unlocked sections, got %s", payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/admin/players", testAdminToken, nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var players []playerPayload
	decodeInto(test, payload, &players)
	if len(players) != 1 || players[0].GoldBalance != 25 {
		test.Fatalf("expected balance untouched at 25, got %s", payload)
	}
}

func TestCreateRequestValidation(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodPost, "/api/requests", "", map[string]interface{}{
		"x": 0,
		"y": 0,
	})
	if status != http.StatusBadRequest || errorMessage(test, payload) != "player_name required" {
		test.Fatalf("expected player_name validation, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodPost, "/api/requests", "", map[string]interface{}{
		"player_name": "Thorn",
	})
	if status != http.StatusBadRequest || errorMessage(test, payload) != "x and y required" {
		test.Fatalf("expected coordinate validation, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/admin/requests", testAdminToken, nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var requests []requestPayload
	decodeInto(test, payload, &requests)
	if len(requests) != 0 {
		test.Fatalf("expected no rows after rejected input, got %s", payload)
	}
}

func TestResolveRejectsUnknownAction(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodPost, "/api/requests", "", map[string]interface{}{
		"player_name": "Thorn",
		"x":           0,
		"y":           0,
	})
	if status != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", status, payload)
	}
	var created requestPayload
	decodeInto(test, payload, &created)

	status, payload = execJSON(test, server, http.MethodPut, "/api/admin/requests/"+created.ID, testAdminToken, map[string]string{"action": "maybe"})
	if status != http.StatusBadRequest || errorMessage(test, payload) != "action must be approve or reject" {
		test.Fatalf("expected action validation, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/admin/requests", testAdminToken, nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var requests []requestPayload
	decodeInto(test, payload, &requests)
	if len(requests) != 1 || requests[0].Status != "pending" {
		test.Fatalf("expected request still pending, got %s", payload)
	}
}

func TestResolveUnknownRequestNotFound(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodPut, "/api/admin/requests/no-such-id", testAdminToken, map[string]string{"action": "approve"})
	if status != http.StatusNotFound || errorMessage(test, payload) != "Not found" {
		test.Fatalf("expected 404, got %d: %s", status, payload)
	}
}

func TestAdminRoutesRequireBearerToken(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodGet, "/api/admin/requests", "", nil)
	if status != http.StatusUnauthorized || errorMessage(test, payload) != "Unauthorized" {
		test.Fatalf("expected 401 without token, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/admin/requests", "wrong-token", nil)
	if status != http.StatusUnauthorized || errorMessage(test, payload) != "Unauthorized" {
		test.Fatalf("expected 401 with wrong token, got %d: %s", status, payload)
	}
}

func TestLoginFlow(test *testing.T) {
	test.Parallel()
	server, service := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodPost, "/api/admin/login", "", map[string]string{})
	if status != http.StatusBadRequest || errorMessage(test, payload) != "Password required" {
		test.Fatalf("expected missing-password validation, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodPost, "/api/admin/login", "", map[string]string{"password": "hunter2"})
	if status != http.StatusInternalServerError || errorMessage(test, payload) != "Admin password not configured" {
		test.Fatalf("expected unconfigured fault, got %d: %s", status, payload)
	}

	if err := service.SetAdminPassword(context.Background(), "correct horse"); err != nil {
		test.Fatalf("set admin password: %v", err)
	}

	status, payload = execJSON(test, server, http.MethodPost, "/api/admin/login", "", map[string]string{"password": "hunter2"})
	if status != http.StatusUnauthorized || errorMessage(test, payload) != "Invalid password" {
		test.Fatalf("expected rejected password, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodPost, "/api/admin/login", "", map[string]string{"password": "correct horse"})
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d: %s", status, payload)
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeInto(test, payload, &login)
	if login.Token != testAdminToken {
		test.Fatalf("expected configured admin token, got %s", payload)
	}
}

func TestAdminUnlockSectionDirectly(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodPost, "/api/admin/sections", testAdminToken, map[string]interface{}{
		"x": 7,
		"y": 8,
	})
	if status != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", status, payload)
	}
	var section sectionPayload
	decodeInto(test, payload, &section)
	if !section.IsUnlocked || section.Width != 1 || section.Height != 1 {
		test.Fatalf("expected 1x1 unlocked section, got %s", payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/sections", "", nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var sections []sectionPayload
	decodeInto(test, payload, &sections)
	if len(sections) != 1 || sections[0].X != 7 || sections[0].Y != 8 {
		test.Fatalf("expected the unlocked section listed, got %s", payload)
	}
}

func TestLegendCRUDOverHTTP(test *testing.T) {
	test.Parallel()
	server, _ := startTestServer(test)

	status, payload := execJSON(test, server, http.MethodPost, "/api/admin/legend", testAdminToken, map[string]string{
		"symbol": "⚔",
		"label":  "Battle site",
	})
	if status != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", status, payload)
	}
	var created legendPayload
	decodeInto(test, payload, &created)

	status, payload = execJSON(test, server, http.MethodPost, "/api/admin/legend", testAdminToken, map[string]string{
		"symbol": "⚔",
	})
	if status != http.StatusBadRequest || errorMessage(test, payload) != "symbol and label required" {
		test.Fatalf("expected legend validation, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodPut, "/api/admin/legend/"+idString(created.ID), testAdminToken, map[string]string{
		"symbol":      "⚔",
		"label":       "Old battle site",
		"description": "Swords still in the ground",
	})
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d: %s", status, payload)
	}

	status, payload = execJSON(test, server, http.MethodGet, "/api/legend", "", nil)
	if status != http.StatusOK {
		test.Fatalf("expected 200, got %d", status)
	}
	var entries []legendPayload
	decodeInto(test, payload, &entries)
	if len(entries) != 1 || entries[0].Label != "Old battle site" {
		test.Fatalf("expected updated legend entry, got %s", payload)
	}

	status, _ = execJSON(test, server, http.MethodDelete, "/api/admin/legend/"+idString(created.ID), testAdminToken, nil)
	if status != http.StatusNoContent {
		test.Fatalf("expected 204, got %d", status)
	}
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
