package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/greenpen-app/worry-service/internal/app"
	"github.com/greenpen-app/worry-service/internal/app/domain/letter"
	"github.com/greenpen-app/worry-service/internal/app/domain/user"
	"github.com/greenpen-app/worry-service/internal/app/services/letters"
	"github.com/greenpen-app/worry-service/internal/app/services/points"
	"github.com/greenpen-app/worry-service/internal/app/storage/memory"
)

func newServer(t *testing.T) (*httptest.Server, *memory.Store, *app.Application) {
	t.Helper()
	store := memory.New()
	application, err := app.New(app.Stores{Users: store, Letters: store, Comments: store}, nil)
	if err != nil {
		t.Fatalf("build application: %v", err)
	}
	srv := httptest.NewServer(NewHandler(application))
	t.Cleanup(srv.Close)
	return srv, store, application
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func getJSON(t *testing.T, url string, dst interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestAutoSignup_IdempotentStatuses(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/autoSignup", map[string]string{"anonId": "anon-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on first signup, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/autoSignup", map[string]string{"anonId": "anon-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on repeat signup, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/autoSignup", map[string]string{"anonId": ""})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on blank id, got %d", resp.StatusCode)
	}
}

func TestWriting_SubmitListAndEmptyNoOp(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/writing", map[string]interface{}{
		"anonId": "alice",
		"letter": "a long week",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created letter.Letter
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created letter: %v", err)
	}
	if created.ID == "" || created.AnonID != "alice" {
		t.Fatalf("unexpected letter %+v", created)
	}

	// Empty body is acknowledged but stored nowhere.
	resp = postJSON(t, srv.URL+"/writing", map[string]interface{}{
		"anonId": "bob",
		"letter": "   ",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 silent no-op, got %d", resp.StatusCode)
	}

	var list []letter.Letter
	if status := getJSON(t, srv.URL+"/listening", &list); status != http.StatusOK {
		t.Fatalf("expected 200 from listening, got %d", status)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 letter, got %d", len(list))
	}
}

func TestWriting_SecondLetterInsideWindowIs429(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/writing", map[string]interface{}{"anonId": "alice", "letter": "one"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first letter: %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/writing", map[string]interface{}{"anonId": "alice", "letter": "two"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside cooldown, got %d", resp.StatusCode)
	}
}

func TestWriting_ColoredLetterWithoutPointsIs403(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/writing", map[string]interface{}{
		"anonId":     "alice",
		"letter":     "colorful",
		"colorIndex": 2,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without points, got %d", resp.StatusCode)
	}
}

func TestWriting_RejectsUnknownFields(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/writing", map[string]interface{}{
		"anonId":  "alice",
		"letter":  "hello",
		"unknown": true,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestCommentFlowWithReactions(t *testing.T) {
	srv, _, application := newServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	l, err := application.Letters.Submit(ctx, letters.SubmitRequest{AnonID: "author", Letter: "a worry"})
	if err != nil {
		t.Fatalf("seed letter: %v", err)
	}

	resp := postJSON(t, srv.URL+"/worry", map[string]interface{}{
		"worryId":       l.ID,
		"anonId":        "commenter",
		"commentWriter": "gentle owl",
		"commentTxt":    "it gets better",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from comment submit, got %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode comment: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected comment id")
	}

	var comments []json.RawMessage
	if status := getJSON(t, srv.URL+"/worry/"+l.ID, &comments); status != http.StatusOK {
		t.Fatalf("expected 200 listing comments, got %d", status)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}

	var toggle struct {
		Added bool     `json:"added"`
		Likes []string `json:"likes"`
	}
	if status := getJSON(t, fmt.Sprintf("%s/worry/like/%s/reader", srv.URL, created.ID), &toggle); status != http.StatusOK {
		t.Fatalf("expected 200 from like toggle, got %d", status)
	}
	if !toggle.Added || len(toggle.Likes) != 1 {
		t.Fatalf("expected like added, got %+v", toggle)
	}
	if status := getJSON(t, fmt.Sprintf("%s/worry/like/%s/reader", srv.URL, created.ID), &toggle); status != http.StatusOK {
		t.Fatalf("expected 200 from like untoggle, got %d", status)
	}
	if toggle.Added || len(toggle.Likes) != 0 {
		t.Fatalf("expected like removed, got %+v", toggle)
	}

	var dislike struct {
		Added    bool     `json:"added"`
		Dislikes []string `json:"dislikes"`
	}
	if status := getJSON(t, fmt.Sprintf("%s/worry/dislike/%s/reader", srv.URL, created.ID), &dislike); status != http.StatusOK {
		t.Fatalf("expected 200 from dislike toggle, got %d", status)
	}
	if !dislike.Added {
		t.Fatalf("expected dislike added, got %+v", dislike)
	}
}

func TestEmpathyToggleEndpoint(t *testing.T) {
	srv, _, application := newServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	l, err := application.Letters.Submit(ctx, letters.SubmitRequest{AnonID: "author", Letter: "a worry"})
	if err != nil {
		t.Fatalf("seed letter: %v", err)
	}

	var toggle struct {
		Added     bool     `json:"added"`
		Attention []string `json:"attentionList"`
	}
	if status := getJSON(t, fmt.Sprintf("%s/worry/%s/reader", srv.URL, l.ID), &toggle); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !toggle.Added || len(toggle.Attention) != 1 {
		t.Fatalf("expected empathy added, got %+v", toggle)
	}

	if status := getJSON(t, srv.URL+"/worry/missing-letter/reader", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for missing letter, got %d", status)
	}
}

func TestPointsLevelsAndLevelUp(t *testing.T) {
	srv, store, _ := newServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	if _, err := store.CreateUser(ctx, user.User{AnonID: "alice", Point: 100, Level: 2}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var pointResp struct {
		Point int `json:"point"`
	}
	if status := getJSON(t, srv.URL+"/points/alice", &pointResp); status != http.StatusOK {
		t.Fatalf("points status %d", status)
	}
	if pointResp.Point != 100 {
		t.Fatalf("expected 100 points, got %d", pointResp.Point)
	}

	var levelResp struct {
		Level int `json:"level"`
	}
	if status := getJSON(t, srv.URL+"/levels/alice", &levelResp); status != http.StatusOK {
		t.Fatalf("levels status %d", status)
	}
	if levelResp.Level != 2 {
		t.Fatalf("expected level 2, got %d", levelResp.Level)
	}

	// Unknown users read as zero rather than erroring.
	if status := getJSON(t, srv.URL+"/points/ghost", &pointResp); status != http.StatusOK {
		t.Fatalf("points for unknown user: %d", status)
	}
	if pointResp.Point != 0 {
		t.Fatalf("expected 0 points for unknown user, got %d", pointResp.Point)
	}

	var levelUp struct {
		Level int `json:"level"`
		Point int `json:"point"`
	}
	if status := getJSON(t, srv.URL+"/levelUp/alice", &levelUp); status != http.StatusOK {
		t.Fatalf("levelUp status %d", status)
	}
	if levelUp.Level != 3 || levelUp.Point != 0 {
		t.Fatalf("expected level 3 with 0 points, got %+v", levelUp)
	}

	// Broke now; insufficient points is a client error.
	if status := getJSON(t, srv.URL+"/levelUp/alice", nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 when short on points, got %d", status)
	}

	if _, err := store.CreateUser(ctx, user.User{AnonID: "capped", Point: 10000, Level: len(points.LevelThresholds) - 1}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if status := getJSON(t, srv.URL+"/levelUp/capped", nil); status != http.StatusOK {
		t.Fatalf("expected 200 terminal message at max level, got %d", status)
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, _, _ := newServer(t)

	if status := getJSON(t, srv.URL+"/healthz", nil); status != http.StatusOK {
		t.Fatalf("healthz status %d", status)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
}

func TestMethodGuards(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/autoSignup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /autoSignup, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/listening", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST /listening, got %d", resp.StatusCode)
	}
}
