package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"pollpulse/internal/domain/room"
	"pollpulse/internal/domain/user"
	jwtpkg "pollpulse/internal/platform/jwt"
	"pollpulse/internal/worker"
)

type testUserRepo struct {
	mu     sync.Mutex
	users  map[string]*user.User
	byMail map[string]string
}

func newTestUserRepo() *testUserRepo {
	return &testUserRepo{
		users:  make(map[string]*user.User),
		byMail: make(map[string]string),
	}
}

func (r *testUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	copyUser := *u
	r.users[u.ID] = &copyUser
	r.byMail[u.Email] = u.ID
	return nil
}

func (r *testUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byMail[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	copyUser := *r.users[id]
	return &copyUser, nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	copyUser := *u
	return &copyUser, nil
}

type testRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*room.Room
}

func newTestRoomRepo() *testRoomRepo {
	return &testRoomRepo{rooms: make(map[string]*room.Room)}
}

func cloneRoom(r *room.Room) *room.Room {
	c := *r
	c.Options = make([]room.Option, len(r.Options))
	for i, o := range r.Options {
		o.Justification = append([]string{}, o.Justification...)
		c.Options[i] = o
	}
	c.Voters = append([]string{}, r.Voters...)
	return &c
}

func (m *testRoomRepo) Create(ctx context.Context, r *room.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = cloneRoom(r)
	return nil
}

func (m *testRoomRepo) GetByID(ctx context.Context, id string) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, room.ErrRoomNotFound
	}
	return cloneRoom(r), nil
}

func (m *testRoomRepo) ListByCreator(ctx context.Context, creatorID string) ([]room.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []room.Summary
	for _, r := range m.rooms {
		if r.CreatorID == creatorID {
			res = append(res, room.Summary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt})
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *testRoomRepo) RecordVote(ctx context.Context, b room.Ballot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[b.RoomID]
	if !ok {
		return room.ErrRoomNotFound
	}
	if !r.Open(b.CastAt) {
		return room.ErrVotingClosed
	}
	if r.HasVoted(b.VoterID) {
		return room.ErrAlreadyVoted
	}
	r.Options[b.OptionIndex].Votes++
	if b.Justification != "" {
		r.Options[b.OptionIndex].Justification = append(r.Options[b.OptionIndex].Justification, b.Justification)
	}
	r.Voters = append(r.Voters, b.VoterID)
	return nil
}

type testEnv struct {
	server *httptest.Server
	voteCh chan worker.VoteEvent
	ready  error
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	userSvc := user.NewService(newTestUserRepo())
	roomSvc := room.NewService(newTestRoomRepo())
	jwtMgr := jwtpkg.NewManager("secret", "test-issuer", time.Hour)
	env := &testEnv{voteCh: make(chan worker.VoteEvent, 100)}

	env.server = httptest.NewServer(NewRouter(userSvc, roomSvc, jwtMgr, env.voteCh, Options{
		CORSOrigins:    []string{"http://localhost:3000"},
		VotesPerMinute: 6000,
		VoteBurst:      100,
		Ready:          func(ctx context.Context) error { return env.ready },
		NewGuestID:     func() string { return "guest-minted" },
	}))
	t.Cleanup(env.server.Close)
	return env
}

func doJSON(t *testing.T, method, url, token string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	raw := new(bytes.Buffer)
	_, _ = raw.ReadFrom(resp.Body)
	if raw.Len() > 0 && strings.HasPrefix(strings.TrimSpace(raw.String()), "{") {
		if err := json.Unmarshal(raw.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, payload
}

func registerAndToken(t *testing.T, serverURL, username, email string) (string, string) {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, serverURL+"/api/v1/auth/register", "",
		registerRequest{Username: username, Email: email, Password: "s3cret"}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("token missing")
	}
	u, _ := payload["user"].(map[string]any)
	id, _ := u["id"].(string)
	if id == "" {
		t.Fatalf("user id missing")
	}
	return token, id
}

func createRoomViaAPI(t *testing.T, serverURL, token string, options ...string) string {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, serverURL+"/api/v1/rooms", token, createRoomRequest{
		Title:       "Lunch",
		Description: "Where should we eat?",
		Options:     options,
		Deadline:    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status: %d (%v)", resp.StatusCode, payload)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatalf("room id missing")
	}
	return id
}

func intPtr(i int) *int { return &i }

func TestHealthAndReady(t *testing.T) {
	env := setupServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		resp, payload := doJSON(t, http.MethodGet, env.server.URL+path, "", nil, nil)
		if resp.StatusCode != http.StatusOK || payload["status"] != "healthy" {
			t.Fatalf("%s: status=%d payload=%v", path, resp.StatusCode, payload)
		}
	}

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/ready", "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready: %d", resp.StatusCode)
	}

	env.ready = errors.New("down")
	resp, payload := doJSON(t, http.MethodGet, env.server.URL+"/ready", "", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable || payload["error"] != "store_unavailable" {
		t.Fatalf("ready when down: %d %v", resp.StatusCode, payload)
	}
}

func TestAuthFlow(t *testing.T) {
	env := setupServer(t)
	token, id := registerAndToken(t, env.server.URL, "ana", "Ana@Example.com")

	resp, payload := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/auth/me", token, nil, nil)
	if resp.StatusCode != http.StatusOK || payload["id"] != id {
		t.Fatalf("me: %d %v", resp.StatusCode, payload)
	}
	if _, leaked := payload["PasswordHash"]; leaked {
		t.Fatalf("password hash exposed")
	}

	resp, _ = doJSON(t, http.MethodPost, env.server.URL+"/api/v1/auth/register", "",
		registerRequest{Username: "ana2", Email: "ana@example.com", Password: "x"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate email: %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, env.server.URL+"/api/v1/auth/login", "",
		loginRequest{Email: "ana@example.com", Password: "wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", resp.StatusCode)
	}

	resp, payload = doJSON(t, http.MethodPost, env.server.URL+"/api/v1/auth/login", "",
		loginRequest{Email: "ana@example.com", Password: "s3cret"}, nil)
	if resp.StatusCode != http.StatusOK || payload["token"] == "" {
		t.Fatalf("login: %d %v", resp.StatusCode, payload)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		code   string
	}{
		{"no token", http.MethodGet, "/api/v1/auth/me", "", "missing_token"},
		{"garbage token", http.MethodGet, "/api/v1/auth/me", "not-a-jwt", "invalid_token"},
		{"create room", http.MethodPost, "/api/v1/rooms", "", "missing_token"},
		{"results", http.MethodGet, "/api/v1/rooms/abc/results", "", "missing_token"},
		{"mine", http.MethodGet, "/api/v1/rooms/mine", "", "missing_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, payload := doJSON(t, tc.method, env.server.URL+tc.path, tc.token, nil, nil)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status: %d", resp.StatusCode)
			}
			if payload["error"] != tc.code {
				t.Fatalf("error code: %v", payload["error"])
			}
		})
	}
}

func TestTokenForDeletedUserIsRejected(t *testing.T) {
	env := setupServer(t)
	jm := jwtpkg.NewManager("secret", "test-issuer", time.Hour)
	token, err := jm.Generate("ghost")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	resp, payload := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/auth/me", token, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized || payload["error"] != "user_not_found" {
		t.Fatalf("unknown user: %d %v", resp.StatusCode, payload)
	}
}

func TestLunchRoomEndToEnd(t *testing.T) {
	env := setupServer(t)
	token, creatorID := registerAndToken(t, env.server.URL, "host", "host@example.com")
	roomID := createRoomViaAPI(t, env.server.URL, token, "Pizza", "Sushi", "Tacos")
	voteURL := env.server.URL + "/api/v1/rooms/" + roomID + "/vote"

	resp, _ := doJSON(t, http.MethodPost, voteURL, "", voteRequest{OptionIndex: intPtr(1), Justification: "fresh"},
		map[string]string{guestIDHeader: "guest-a"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vote a: %d", resp.StatusCode)
	}
	if resp.Header.Get(guestIDHeader) != "" {
		t.Fatalf("stored guest id must not be re-issued")
	}

	resp, _ = doJSON(t, http.MethodPost, voteURL, "", voteRequest{OptionIndex: intPtr(1), VoterID: "guest-b"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vote b: %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, voteURL, token, voteRequest{OptionIndex: intPtr(0), Justification: "classic"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("creator vote: %d", resp.StatusCode)
	}

	resp, payload := doJSON(t, http.MethodPost, voteURL, "", voteRequest{OptionIndex: intPtr(2)},
		map[string]string{guestIDHeader: "guest-a"})
	if resp.StatusCode != http.StatusConflict || payload["error"] != "already_voted" {
		t.Fatalf("repeat vote: %d %v", resp.StatusCode, payload)
	}

	if got := len(env.voteCh); got != 3 {
		t.Fatalf("vote events: %d", got)
	}

	resp, payload = doJSON(t, http.MethodGet, env.server.URL+"/api/v1/rooms/"+roomID, "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get room: %d", resp.StatusCode)
	}
	if payload["creator"] != creatorID {
		t.Fatalf("creator: %v", payload["creator"])
	}
	if voters, _ := payload["voters"].([]any); len(voters) != 3 {
		t.Fatalf("voters: %v", payload["voters"])
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/rooms/"+roomID+"/results", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rawResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	defer rawResp.Body.Close()
	if rawResp.StatusCode != http.StatusOK {
		t.Fatalf("results status: %d", rawResp.StatusCode)
	}
	var results []room.Result
	if err := json.NewDecoder(rawResp.Body).Decode(&results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results len: %d", len(results))
	}
	want := []int64{1, 2, 0}
	for i, r := range results {
		if r.Votes != want[i] {
			t.Fatalf("option %d votes: got %d want %d", i, r.Votes, want[i])
		}
	}
	if results[1].Text != "Sushi" || len(results[1].Justification) != 1 || results[1].Justification[0] != "fresh" {
		t.Fatalf("sushi result: %+v", results[1])
	}
}

func TestVoteMintsGuestID(t *testing.T) {
	env := setupServer(t)
	token, _ := registerAndToken(t, env.server.URL, "host", "host@example.com")
	roomID := createRoomViaAPI(t, env.server.URL, token, "A", "B")

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/rooms/"+roomID+"/vote", "",
		voteRequest{OptionIndex: intPtr(0)}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vote: %d", resp.StatusCode)
	}
	if got := resp.Header.Get(guestIDHeader); got != "guest-minted" {
		t.Fatalf("minted guest id: %q", got)
	}

	resp, _ = doJSON(t, http.MethodPost, env.server.URL+"/api/v1/rooms/"+roomID+"/vote", "",
		voteRequest{OptionIndex: intPtr(1)}, map[string]string{guestIDHeader: "guest-minted"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second vote with minted id: %d", resp.StatusCode)
	}
}

func TestVoteRejections(t *testing.T) {
	env := setupServer(t)
	token, _ := registerAndToken(t, env.server.URL, "host", "host@example.com")
	roomID := createRoomViaAPI(t, env.server.URL, token, "A", "B")

	cases := []struct {
		name   string
		roomID string
		body   voteRequest
		status int
		code   string
	}{
		{"unknown room", "missing", voteRequest{OptionIndex: intPtr(0), VoterID: "g1"}, http.StatusNotFound, "not_found"},
		{"index too high", roomID, voteRequest{OptionIndex: intPtr(2), VoterID: "g1"}, http.StatusBadRequest, "invalid_argument"},
		{"negative index", roomID, voteRequest{OptionIndex: intPtr(-1), VoterID: "g1"}, http.StatusBadRequest, "invalid_argument"},
		{"missing index", roomID, voteRequest{VoterID: "g1"}, http.StatusBadRequest, "invalid_argument"},
		{"accepted vote", roomID, voteRequest{OptionIndex: intPtr(0), VoterID: "g-repeat"}, http.StatusOK, ""},
		{"repeat voter with bad index", roomID, voteRequest{OptionIndex: intPtr(9), VoterID: "g-repeat"}, http.StatusConflict, "already_voted"},
		{"repeat voter without index", roomID, voteRequest{VoterID: "g-repeat"}, http.StatusConflict, "already_voted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, payload := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/rooms/"+tc.roomID+"/vote", "", tc.body, nil)
			if resp.StatusCode != tc.status {
				t.Fatalf("got %d %v", resp.StatusCode, payload)
			}
			if tc.code != "" && payload["error"] != tc.code {
				t.Fatalf("error code: %v", payload["error"])
			}
		})
	}
	if got := len(env.voteCh); got != 1 {
		t.Fatalf("expected only the accepted vote to emit an event, got %d", got)
	}
}

func TestResultsForbiddenForNonCreator(t *testing.T) {
	env := setupServer(t)
	hostToken, _ := registerAndToken(t, env.server.URL, "host", "host@example.com")
	otherToken, _ := registerAndToken(t, env.server.URL, "other", "other@example.com")
	roomID := createRoomViaAPI(t, env.server.URL, hostToken, "A", "B")

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/rooms/"+roomID+"/vote", otherToken,
		voteRequest{OptionIndex: intPtr(0)}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vote: %d", resp.StatusCode)
	}

	resp, payload := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/rooms/"+roomID+"/results", otherToken, nil, nil)
	if resp.StatusCode != http.StatusForbidden || payload["error"] != "forbidden" {
		t.Fatalf("results as voter: %d %v", resp.StatusCode, payload)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	env := setupServer(t)
	token, _ := registerAndToken(t, env.server.URL, "host", "host@example.com")
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	cases := []struct {
		name string
		req  createRoomRequest
		code string
	}{
		{"one option", createRoomRequest{Title: "t", Description: "d", Options: []string{"A"}, Deadline: future}, "too_few_options"},
		{"six options", createRoomRequest{Title: "t", Description: "d", Options: []string{"1", "2", "3", "4", "5", "6"}, Deadline: future}, "too_many_options"},
		{"past deadline", createRoomRequest{Title: "t", Description: "d", Options: []string{"A", "B"}, Deadline: "2000-01-01T00:00:00Z"}, "past_deadline"},
		{"bad deadline", createRoomRequest{Title: "t", Description: "d", Options: []string{"A", "B"}, Deadline: "tomorrow"}, "invalid_deadline"},
		{"no title", createRoomRequest{Description: "d", Options: []string{"A", "B"}, Deadline: future}, "missing_field"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, payload := doJSON(t, http.MethodPost, env.server.URL+"/api/v1/rooms", token, tc.req, nil)
			if resp.StatusCode != http.StatusBadRequest || payload["error"] != tc.code {
				t.Fatalf("got %d %v", resp.StatusCode, payload)
			}
		})
	}
}

func TestListRoomsByCreator(t *testing.T) {
	env := setupServer(t)
	token, id := registerAndToken(t, env.server.URL, "host", "host@example.com")
	createRoomViaAPI(t, env.server.URL, token, "A", "B")
	createRoomViaAPI(t, env.server.URL, token, "C", "D")

	for _, tc := range []struct {
		path  string
		token string
	}{
		{"/api/v1/rooms?userId=" + id, ""},
		{"/api/v1/rooms/mine", token},
	} {
		req, _ := http.NewRequest(http.MethodGet, env.server.URL+tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		var summaries []room.Summary
		err = json.NewDecoder(resp.Body).Decode(&summaries)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", tc.path, err)
		}
		if resp.StatusCode != http.StatusOK || len(summaries) != 2 {
			t.Fatalf("%s: %d %v", tc.path, resp.StatusCode, summaries)
		}
	}

	for _, tok := range []string{"", token} {
		resp, payload := doJSON(t, http.MethodGet, env.server.URL+"/api/v1/rooms", tok, nil, nil)
		if resp.StatusCode != http.StatusBadRequest || payload["error"] != "missing_field" {
			t.Fatalf("list without userId (token=%t): %d %v", tok != "", resp.StatusCode, payload)
		}
	}
}

func TestVoteRateLimited(t *testing.T) {
	userSvc := user.NewService(newTestUserRepo())
	roomSvc := room.NewService(newTestRoomRepo())
	jm := jwtpkg.NewManager("secret", "test-issuer", time.Hour)
	server := httptest.NewServer(NewRouter(userSvc, roomSvc, jm, make(chan worker.VoteEvent, 10), Options{
		VotesPerMinute: 1,
		VoteBurst:      1,
	}))
	defer server.Close()

	url := server.URL + "/api/v1/rooms/none/vote"
	resp, _ := doJSON(t, http.MethodPost, url, "", voteRequest{OptionIndex: intPtr(0), VoterID: "g"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("first: %d", resp.StatusCode)
	}
	resp, payload := doJSON(t, http.MethodPost, url, "", voteRequest{OptionIndex: intPtr(0), VoterID: "g"}, nil)
	if resp.StatusCode != http.StatusTooManyRequests || payload["error"] != "rate_limited" {
		t.Fatalf("second: %d %v", resp.StatusCode, payload)
	}
}

func TestCORSExposesGuestHeader(t *testing.T) {
	env := setupServer(t)
	req, _ := http.NewRequest(http.MethodOptions, env.server.URL+"/api/v1/rooms/x/vote", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", guestIDHeader)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin: %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow credentials: %q", got)
	}
}
