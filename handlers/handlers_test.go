package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-beachwise/auth"
	"go-beachwise/auth/authtest"
	"go-beachwise/classifier"
	"go-beachwise/images"
	"go-beachwise/llm"
	"go-beachwise/location"
	"go-beachwise/processor"
	"go-beachwise/profile"
	"go-beachwise/session"
	"go-beachwise/summarization"
	"go-beachwise/types"
)

var photo = "data:image/png;base64," + base64.StdEncoding.EncodeToString(
	[]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"))

var waikiki = types.Location{Lat: 21.2765, Lng: -157.8271}

// fakeModel answers classification prompts from a queue and summary prompts with summary.
type fakeModel struct {
	mu              sync.Mutex
	classifications []string
	summary         string
	err             error
	calls           int
}

func (m *fakeModel) Generate(_ context.Context, p llm.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if p.Schema.Name == "cleanup_summary" {
		return m.summary, nil
	}
	if len(m.classifications) == 0 {
		return `{"trashType":"Plastic Bottle","confidence":0.82}`, nil
	}
	out := m.classifications[0]
	m.classifications = m.classifications[1:]
	return out, nil
}

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeLocator struct {
	disabled bool
	loc      types.Location
	err      error
}

func (f *fakeLocator) Enabled() bool { return !f.disabled }

func (f *fakeLocator) Locate(context.Context, http.Header) (types.Location, error) {
	return f.loc, f.err
}

// memoryDB stands in for Firestore: profiles, cleanups and the heatmap document.
type memoryDB struct {
	mu       sync.Mutex
	profiles map[string]types.UserProfile
	creates  int
	cleanups []types.Cleanup
	heatmap  *types.Heatmap
}

func newMemoryDB() *memoryDB {
	return &memoryDB{profiles: make(map[string]types.UserProfile)}
}

func (m *memoryDB) GetProfile(_ context.Context, uid string) (*types.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memoryDB) CreateProfile(_ context.Context, uid string, p types.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[uid]; ok {
		return profile.ErrProfileExists
	}
	m.creates++
	m.profiles[uid] = p
	return nil
}

func (m *memoryDB) UpdateProfile(_ context.Context, uid string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[uid]
	if name, ok := fields["displayName"].(string); ok {
		p.DisplayName = name
	}
	m.profiles[uid] = p
	return nil
}

func (m *memoryDB) SaveCleanup(_ context.Context, c types.Cleanup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append([]types.Cleanup{c}, m.cleanups...)
	p := m.profiles[c.UID]
	p.CleanupsLogged++
	p.TrashItemsCollected += len(c.Items)
	m.profiles[c.UID] = p
	return nil
}

func (m *memoryDB) ListCleanups(_ context.Context, uid string, limit int) ([]types.Cleanup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Cleanup
	for _, c := range m.cleanups {
		if c.UID == uid && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryDB) GetHeatmap(context.Context) (*types.Heatmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heatmap, nil
}

type testEnv struct {
	server  *Server
	router  *gin.Engine
	model   *fakeModel
	locator *fakeLocator
	db      *memoryDB
	auth    *authtest.Provider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		model:   &fakeModel{summary: `{"summary":"One plastic bottle."}`},
		locator: &fakeLocator{loc: waikiki},
		db:      newMemoryDB(),
		auth:    authtest.New(),
	}
	profiles := profile.NewService(env.db)
	summarizer := summarization.New(env.model)
	env.server = &Server{
		Auth:       env.auth,
		Sessions:   session.NewRegistry(time.Hour),
		Guard:      session.NewGuard(),
		Location:   env.locator,
		Classifier: classifier.New(env.model),
		Summarizer: summarizer,
		Images:     images.HashStore{},
		Profiles:   profiles,
		Cleanups:   processor.NewCleanupProcessor(env.db, summarizer, profiles, nil),
		History:    env.db,
		Heatmaps:   env.db,
		SessionTTL: time.Hour,
	}

	s := env.server
	r := gin.New()
	r.POST("/signup", s.Signup)
	r.POST("/login", s.Login)
	r.GET("/nav", s.Nav)
	protected := r.Group("")
	protected.Use(auth.RequireSession(s.Auth, s.Sessions))
	protected.POST("/logout", s.Logout)
	protected.GET("/location", s.GetLocation)
	protected.POST("/classify", s.ClassifyTrash)
	protected.GET("/items", s.ListItems)
	protected.POST("/summarize", s.SummarizeCleanup)
	protected.POST("/cleanups", s.SubmitCleanup)
	protected.GET("/cleanups", s.ListCleanups)
	protected.GET("/profile", s.GetProfile)
	protected.PATCH("/profile", s.UpdateProfile)
	protected.GET("/heatmap", s.Heatmap)
	env.router = r
	return env
}

// signIn creates an account directly with the provider and returns its session token.
func (e *testEnv) signIn(t *testing.T, email string) string {
	t.Helper()
	creds, err := e.auth.SignUp(context.Background(), email, "hunter22")
	require.NoError(t, err)
	return creds.SessionToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func items(t *testing.T, resp map[string]any) []map[string]any {
	t.Helper()
	raw, ok := resp["items"].([]any)
	require.True(t, ok, "items missing: %v", resp)
	out := make([]map[string]any, len(raw))
	for i, item := range raw {
		out[i] = item.(map[string]any)
	}
	return out
}

func TestClassifyTrash(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Trash Classified!", resp["title"])
	assert.Equal(t, "Identified as: Plastic Bottle (Confidence: 82%) at 21.2765, -157.8271", resp["message"])

	item := resp["item"].(map[string]any)
	assert.Equal(t, "Plastic Bottle", item["trashType"])
	assert.Equal(t, 0.82, item["confidence"])
	assert.Equal(t, map[string]any{"lat": 21.2765, "lng": -157.8271}, item["location"])
	assert.Regexp(t, "^sha256:[0-9a-f]{64}$", item["imageRef"])
	assert.NotEmpty(t, item["id"])
}

func TestClassifyTrash_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.model.classifications = []string{
		`{"trashType":"Straw","confidence":0.5}`,
		`{"trashType":"Fishing Net","confidence":0.9}`,
	}
	token := env.signIn(t, "kai@example.com")

	for range 2 {
		w, _ := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, resp := env.do(t, http.MethodGet, "/items", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logged := items(t, resp)
	require.Len(t, logged, 2)
	assert.Equal(t, "Fishing Net", logged[0]["trashType"])
	assert.Equal(t, "Straw", logged[1]["trashType"])
	assert.EqualValues(t, 2, resp["pending"])
}

func TestClassifyTrash_ClampsConfidence(t *testing.T) {
	env := newTestEnv(t)
	env.model.classifications = []string{`{"trashType":"Bottle Cap","confidence":1.7}`}
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 1, resp["item"].(map[string]any)["confidence"])
}

func TestClassifyTrash_LocationFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"denied", location.ErrPermissionDenied, http.StatusForbidden},
		{"unavailable", location.ErrPositionUnavailable, http.StatusServiceUnavailable},
		{"timeout", location.ErrTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.locator.err = tt.err
			token := env.signIn(t, "kai@example.com")

			w, resp := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "Location Unknown", resp["error"])
			assert.Zero(t, env.model.Calls(), "nothing is classified without a location")

			_, resp = env.do(t, http.MethodGet, "/items", token, nil)
			assert.Empty(t, items(t, resp))
		})
	}
}

func TestClassifyTrash_WithoutLocationSource(t *testing.T) {
	env := newTestEnv(t)
	env.locator.disabled = true
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, resp["item"], "location")
	assert.Equal(t, "Identified as: Plastic Bottle (Confidence: 82%)", resp["message"])
}

func TestClassifyTrash_BadPhoto(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	for _, body := range []any{nil, gin.H{"photoDataUri": ""}, gin.H{"photoDataUri": "https://example.com/bottle.jpg"}} {
		w, resp := env.do(t, http.MethodPost, "/classify", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No Image", resp["error"])
	}
	assert.Zero(t, env.model.Calls())
}

func TestClassifyTrash_ModelFailure(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"unreachable", &fakeModel{err: errors.New("connection refused")}},
		{"not json", &fakeModel{classifications: []string{"a plastic bottle, probably"}}},
		{"missing confidence", &fakeModel{classifications: []string{`{"trashType":"Bottle"}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.server.Classifier = classifier.New(tt.model)
			token := env.signIn(t, "kai@example.com")

			w, resp := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
			assert.Equal(t, http.StatusBadGateway, w.Code)
			assert.Equal(t, "Classification Failed", resp["error"])

			_, resp = env.do(t, http.MethodGet, "/items", token, nil)
			assert.Empty(t, items(t, resp))
		})
	}
}

func TestClassifyTrash_Busy(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	release, err := env.server.Guard.Acquire(session.Key(session.ID(token), "classify"))
	require.NoError(t, err)

	w, _ := env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
	assert.Equal(t, http.StatusConflict, w.Code)

	release()
	w, _ = env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, env.server.Guard.InFlight())
}

func TestGetLocation(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodGet, "/location", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"lat": 21.2765, "lng": -157.8271}, resp["location"])

	env.locator.err = location.ErrUnsupported
	w, resp = env.do(t, http.MethodGet, "/location", token, nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "Location Error", resp["error"])
	assert.Equal(t, location.ErrUnsupported.Message, resp["details"])
}

func TestProtectedViewsNeedSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/items", "/profile", "/location", "/heatmap"} {
		w, resp := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "/login", resp["redirect"], path)
	}
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/signup", "", gin.H{"email": "kai@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/profile", resp["redirect"])

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 1, env.db.creates)
	assert.Equal(t, 1, env.server.Sessions.Count())

	uid := resp["user"].(map[string]any)["uid"].(string)
	assert.Equal(t, "kai", env.db.profiles[uid].DisplayName)

	w, resp = env.do(t, http.MethodPost, "/signup", "", gin.H{"email": "kai@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Signup Failed", resp["error"])

	w, _ = env.do(t, http.MethodPost, "/signup", "", gin.H{"email": "lani@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, "/signup", "", gin.H{"email": "not-an-email", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPost, "/login", "", gin.H{"email": "kai@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Login Failed", resp["error"])

	w, resp = env.do(t, http.MethodPost, "/login", "", gin.H{"email": "kai@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	token := resp["token"].(string)

	w, _ = env.do(t, http.MethodGet, "/items", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout_DeniesFurtherAccess(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, _ := env.do(t, http.MethodGet, "/items", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged Out Successfully", resp["message"])
	assert.Zero(t, env.server.Sessions.Count())

	w, resp = env.do(t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", resp["redirect"])
}

func TestGetProfile_CreatesOnce(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai.nui@example.com")

	for range 3 {
		w, resp := env.do(t, http.MethodGet, "/profile", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		p := resp["profile"].(map[string]any)
		assert.Equal(t, "kai.nui", p["displayName"])
		assert.EqualValues(t, 0, p["cleanupsLogged"])
		assert.EqualValues(t, 0, p["trashItemsCollected"])
	}
	assert.Equal(t, 1, env.db.creates)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPatch, "/profile", token, gin.H{"displayName": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Display name cannot be empty.", resp["details"])

	w, resp = env.do(t, http.MethodPatch, "/profile", token, gin.H{"displayName": " Kai the Surfer "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Display name updated.", resp["message"])
	assert.Equal(t, "Kai the Surfer", resp["profile"].(map[string]any)["displayName"])
}

func TestSubmitCleanup(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPost, "/cleanups", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Nothing To Submit", resp["error"])

	w, _ = env.do(t, http.MethodPost, "/classify", token, gin.H{"photoDataUri": photo})
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp = env.do(t, http.MethodPost, "/cleanups", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cleanup := resp["cleanup"].(map[string]any)
	assert.Equal(t, "One plastic bottle.", cleanup["summary"])
	assert.Len(t, cleanup["items"], 1)

	w, resp = env.do(t, http.MethodGet, "/cleanups", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["cleanups"], 1)

	w, resp = env.do(t, http.MethodGet, "/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, resp["profile"].(map[string]any)["cleanupsLogged"])
	assert.EqualValues(t, 1, resp["profile"].(map[string]any)["trashItemsCollected"])

	w, _ = env.do(t, http.MethodPost, "/cleanups", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "already submitted")

	w, _ = env.do(t, http.MethodGet, "/cleanups?limit=500", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummarizeCleanup(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodPost, "/summarize", token, gin.H{"imageUrls": []string{photo, "https://example.com/net.jpg"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "One plastic bottle.", resp["summary"])

	w, _ = env.do(t, http.MethodPost, "/summarize", token, gin.H{"imageUrls": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.model.err = errors.New("quota exceeded")
	w, _ = env.do(t, http.MethodPost, "/summarize", token, gin.H{"imageUrls": []string{photo}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHeatmap(t *testing.T) {
	env := newTestEnv(t)
	token := env.signIn(t, "kai@example.com")

	w, resp := env.do(t, http.MethodGet, "/heatmap", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Trash Heatmap", resp["title"])
	assert.Nil(t, resp["heatmap"])

	env.db.heatmap = &types.Heatmap{Resolution: 8, ItemCount: 3, Cells: []types.HeatmapCell{{Cell: "88283082bffffff", Count: 3}}}
	_, resp = env.do(t, http.MethodGet, "/heatmap", token, nil)
	assert.EqualValues(t, 3, resp["heatmap"].(map[string]any)["itemCount"])
}

func TestNavigation(t *testing.T) {
	active := func(items []NavItem) []string {
		var out []string
		for _, item := range items {
			if item.Active {
				out = append(out, item.Href)
			}
		}
		return out
	}

	tests := []struct {
		path string
		want []string
	}{
		{"/location", []string{"/location"}},
		{"/location/history", nil},
		{"/groups", []string{"/groups"}},
		{"/groups/42", []string{"/groups"}},
		{"/profile/edit", []string{"/profile"}},
		{"/heatmap", nil},
		{"/", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, active(Navigation(tt.path)))
		})
	}

	labels := []string{}
	for _, item := range Navigation("/") {
		labels = append(labels, item.Label)
	}
	assert.Equal(t, []string{"Location", "Groups", "Profile"}, labels)
}
