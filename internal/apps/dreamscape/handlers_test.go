package dreamscape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/dream"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/dreamscape-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testApp = "dreamscape"

var alice = uuid.MustParse("7a1c0f3e-58a1-4f7e-9a51-2d7c1b0c9e11")

func testConfig() *config.Config {
	return &config.Config{
		GeminiTextModel:  "text-model",
		GeminiImageModel: "image-model",
		AITimeout:        time.Second,
		SessionCacheSize: 10,
	}
}

// newTestApp mounts the plugin the way routes.Setup does, with a stand-in
// for the JWT middleware that trusts the X-Test-User header.
func newTestApp(t *testing.T, gen Generator, app *tenant.AppConfig) (*fiber.App, *Plugin) {
	t.Helper()
	if app == nil {
		app = tenant.DefaultApp()
	}
	registry := tenant.NewRegistry()
	registry.Register(app)

	plugin := New(services.NewModerationService(nil), registry, gen)
	cfg := testConfig()

	f := fiber.New()
	f.Use(func(c *fiber.Ctx) error {
		c.Locals("app_id", app.AppID)
		if sub := c.Get("X-Test-User"); sub != "" {
			c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"sub": sub}})
		}
		return c.Next()
	})
	api := f.Group("/api")
	plugin.RegisterPublicRoutes(api, nil, cfg)
	plugin.RegisterRoutes(api.Group("/p"), nil, cfg)
	plugin.RegisterAdminRoutes(api.Group("/admin"), nil, cfg)
	return f, plugin
}

func call(t *testing.T, app *fiber.App, method, path string, user uuid.UUID, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func okGenerator() *fakeGenerator {
	return &fakeGenerator{text: "### Summary\nA calm flight.", image: "data:image/png;base64,AAAA"}
}

func TestVisualize_PublicContract(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	resp, data := call(t, app, http.MethodPost, "/api/visualize", uuid.Nil, map[string]any{
		"dream": "I was flying", "style": "Surrealism", "aspectRatio": "1:1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, noStore, resp.Header.Get("Cache-Control"))

	out := decode[VisualizeResponse](t, data)
	assert.Equal(t, "data:image/png;base64,AAAA", out.ImageURL)
	assert.Contains(t, out.AnalysisText, disclaimerMarker)
}

func TestVisualize_PublicErrors(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)
	resp, data := call(t, app, http.MethodPost, "/api/visualize", uuid.Nil, map[string]any{"dream": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing 'dream' or 'style' in request body", decode[VisualizeErrorResponse](t, data).Error)

	unconfigured, _ := newTestApp(t, nil, nil)
	resp, data = call(t, unconfigured, http.MethodPost, "/api/visualize", uuid.Nil, map[string]any{"dream": "x", "style": "Cyberpunk"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server misconfiguration: GOOGLE_API_KEY missing", decode[VisualizeErrorResponse](t, data).Error)

	failing, _ := newTestApp(t, &fakeGenerator{textErr: errors.New("boom")}, nil)
	resp, data = call(t, failing, http.MethodPost, "/api/visualize", uuid.Nil, map[string]any{"dream": "x", "style": "Cyberpunk"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to generate analysis", decode[VisualizeErrorResponse](t, data).Error)
}

func TestSession_RequiresUser(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)
	resp, _ := call(t, app, http.MethodGet, "/api/p/dreams/state", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSession_DefaultState(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)
	resp, data := call(t, app, http.MethodGet, "/api/p/dreams/state", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st := decode[dream.State](t, data)
	assert.Equal(t, dream.DefaultDraft(), st.Draft)
	assert.Equal(t, dream.DefaultSettings(), st.Settings)
	assert.Empty(t, st.History)
	assert.False(t, st.IsLoading)
}

func TestSession_DraftValidation(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	resp, _ := call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{"aspectRatio": "4:3"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{"style": "Baroque"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{"dreamText": strings.Repeat("z", dream.MaxDreamTextLength+1)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{"temperature": 3.5, "style": "Vaporwave"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[dream.State](t, data)
	assert.Equal(t, 1.0, st.Temperature)
	assert.Equal(t, "Vaporwave", st.Style)
}

func TestSession_VisualizeShareAndGallery(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	resp, _ := call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{
		"dreamText": "I was flying over the calm ocean", "style": "Cyberpunk",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, data := call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	out := decode[SessionVisualizeResponse](t, data)
	assert.False(t, out.Failed)
	assert.False(t, out.Stale)
	require.NotNil(t, out.Entry)
	assert.Equal(t, dream.MoodPeaceful, out.Result.Mood)
	assert.Equal(t, dream.CategoryFlying, out.Result.Category)

	_, data = call(t, app, http.MethodGet, "/api/p/dreams/history", alice, nil)
	history := decode[struct {
		Data  []dream.HistoryEntry `json:"data"`
		Total int                  `json:"total"`
	}](t, data)
	assert.Equal(t, 1, history.Total)
	assert.Equal(t, out.Entry.ID, history.Data[0].ID)

	_, data = call(t, app, http.MethodPost, "/api/p/dreams/share/prompt", alice, nil)
	assert.True(t, decode[dream.State](t, data).ShowShareModal)

	resp, data = call(t, app, http.MethodPost, "/api/p/dreams/share", alice, map[string]any{"region": "EU"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	shared := decode[dream.PublicDreamEntry](t, data)
	assert.Equal(t, "someone was flying over the calm ocean", shared.DreamText)
	assert.True(t, shared.IsAnonymous)
	assert.Equal(t, "EU", shared.Region)

	_, data = call(t, app, http.MethodGet, "/api/p/dreams/state", alice, nil)
	assert.False(t, decode[dream.State](t, data).ShowShareModal)

	resp, data = call(t, app, http.MethodGet, "/api/p/dreams/gallery?style=Cyberpunk&mood=peaceful&sort=popular", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gallery := decode[GalleryResponse](t, data)
	require.Equal(t, 1, gallery.Total)
	assert.Equal(t, shared.ID, gallery.Data[0].ID)
	assert.Equal(t, dream.SortPopular, gallery.Sort)
	assert.Equal(t, Styles, gallery.Styles)

	call(t, app, http.MethodPost, "/api/p/dreams/gallery/"+shared.ID+"/like", alice, nil)
	_, data = call(t, app, http.MethodPost, "/api/p/dreams/gallery/"+shared.ID+"/like", alice, nil)
	assert.Equal(t, 2, decode[dream.PublicDreamEntry](t, data).Likes)

	resp, _ = call(t, app, http.MethodPost, "/api/p/dreams/gallery/missing/like", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_GenerationFailureKeepsHistory(t *testing.T) {
	app, _ := newTestApp(t, &fakeGenerator{textErr: errors.New("provider down")}, nil)

	resp, data := call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, map[string]any{
		"dream": "a storm", "style": "Film noir",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[SessionVisualizeResponse](t, data)
	assert.True(t, out.Failed)
	assert.Nil(t, out.Entry)
	assert.Equal(t, dream.GenerationFailedMessage, out.Result.AnalysisText)

	_, data = call(t, app, http.MethodGet, "/api/p/dreams/state", alice, nil)
	st := decode[dream.State](t, data)
	assert.Empty(t, st.History)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "a storm", st.DreamText)
}

func TestSession_VisualizeNeedsDraft(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)
	resp, _ := call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSession_ShareRules(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	resp, _ := call(t, app, http.MethodPost, "/api/p/dreams/share", alice, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, map[string]any{
		"dream": "visit www.example.com for the dream", "style": "Surrealism",
	})
	resp, data := call(t, app, http.MethodPost, "/api/p/dreams/share", alice, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(data))

	_, data = call(t, app, http.MethodGet, "/api/p/dreams/gallery", alice, nil)
	assert.Zero(t, decode[GalleryResponse](t, data).Total)
}

func TestSession_FeatureFlags(t *testing.T) {
	closed := tenant.DefaultApp()
	closed.Features = map[string]bool{}
	app, _ := newTestApp(t, okGenerator(), closed)

	resp, _ := call(t, app, http.MethodPost, "/api/p/dreams/share", alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = call(t, app, http.MethodGet, "/api/p/dreams/gallery", alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSession_GalleryFilterValidation(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)
	resp, _ := call(t, app, http.MethodGet, "/api/p/dreams/gallery?mood=sleepy", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = call(t, app, http.MethodGet, "/api/p/dreams/gallery?category=space", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSession_HistoryRoutes(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	resp, _ := call(t, app, http.MethodPost, "/api/p/dreams/history/nope/load", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = call(t, app, http.MethodDelete, "/api/p/dreams/history/nope", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, data := call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, map[string]any{
		"dream": "a fox in a glass city", "style": "Ukiyo-e", "aspectRatio": "9:16",
	})
	entry := decode[SessionVisualizeResponse](t, data).Entry
	require.NotNil(t, entry)

	_, data = call(t, app, http.MethodPost, "/api/p/dreams/clear", alice, nil)
	cleared := decode[dream.State](t, data)
	assert.Empty(t, cleared.DreamText)
	assert.True(t, cleared.Result.IsEmpty())
	assert.Equal(t, "Ukiyo-e", cleared.Style)

	resp, data = call(t, app, http.MethodPost, "/api/p/dreams/history/"+entry.ID+"/load", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loaded := decode[dream.State](t, data)
	assert.Equal(t, "a fox in a glass city", loaded.DreamText)
	assert.Equal(t, dream.AspectPortrait, loaded.AspectRatio)
	assert.Equal(t, entry.Result, loaded.Result)

	resp, _ = call(t, app, http.MethodDelete, "/api/p/dreams/history/"+entry.ID, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, nil)
	resp, _ = call(t, app, http.MethodDelete, "/api/p/dreams/history", alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, data = call(t, app, http.MethodGet, "/api/p/dreams/state", alice, nil)
	assert.Empty(t, decode[dream.State](t, data).History)
}

func TestSession_SettingsAndSurprise(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	resp, data := call(t, app, http.MethodPut, "/api/p/dreams/settings", alice, dream.UserSettings{SharePublicly: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dream.UserSettings{SharePublicly: true}, decode[dream.UserSettings](t, data))

	_, data = call(t, app, http.MethodPost, "/api/p/dreams/surprise", alice, nil)
	assert.Contains(t, ExampleDreams, decode[dream.State](t, data).DreamText)

	_, data = call(t, app, http.MethodGet, "/api/dreams/examples", uuid.Nil, nil)
	examples := decode[struct {
		Examples []string `json:"examples"`
		Styles   []string `json:"styles"`
	}](t, data)
	assert.Equal(t, ExampleDreams, examples.Examples)
	assert.Equal(t, Styles, examples.Styles)
}

func TestSession_ForgetUser(t *testing.T) {
	app, plugin := newTestApp(t, okGenerator(), nil)

	call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{"dreamText": "remember me"})
	plugin.ForgetUser(testApp, alice)

	_, data := call(t, app, http.MethodGet, "/api/p/dreams/state", alice, nil)
	assert.Empty(t, decode[dream.State](t, data).DreamText)
}

func TestAdmin_RemovePublicDream(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)

	call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, map[string]any{"dream": "a meadow", "style": "Solarpunk"})
	_, data := call(t, app, http.MethodPost, "/api/p/dreams/share", alice, nil)
	shared := decode[dream.PublicDreamEntry](t, data)

	resp, _ := call(t, app, http.MethodDelete, "/api/admin/dreams/gallery/"+shared.ID, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = call(t, app, http.MethodDelete, "/api/admin/dreams/gallery/"+shared.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/p/dreams/gallery/"+shared.ID+"/report", alice, map[string]any{"reason": "spam"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSession_VisualizeRejectsBlankDream(t *testing.T) {
	app, _ := newTestApp(t, okGenerator(), nil)
	resp, data := call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, map[string]any{"dream": "   ", "style": "Surrealism"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))
}

func TestVisualize_PublicSendsWhitespaceThrough(t *testing.T) {
	gen := okGenerator()
	app, _ := newTestApp(t, gen, nil)
	resp, data := call(t, app, http.MethodPost, "/api/visualize", uuid.Nil, map[string]any{"dream": "  falling up  ", "style": "Surrealism"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, gen.prompt, "  falling up  ")
}

func TestPlugin_RemoveContentTakesDreamDown(t *testing.T) {
	app, plugin := newTestApp(t, okGenerator(), nil)

	call(t, app, http.MethodPost, "/api/p/dreams/visualize", alice, map[string]any{"dream": "a meadow", "style": "Solarpunk"})
	_, data := call(t, app, http.MethodPost, "/api/p/dreams/share", alice, nil)
	shared := decode[dream.PublicDreamEntry](t, data)

	assert.Equal(t, []string{services.ContentTypePublicDream}, plugin.ContentTypes())
	assert.False(t, plugin.RemoveContent(testApp, "user", shared.ID))
	assert.True(t, plugin.RemoveContent(testApp, services.ContentTypePublicDream, shared.ID))
	assert.False(t, plugin.RemoveContent(testApp, services.ContentTypePublicDream, shared.ID))

	_, ok := plugin.handler.sessions.Gallery(testApp).Get(shared.ID)
	assert.False(t, ok)
}

func TestPlugin_BootstrapSession(t *testing.T) {
	app, plugin := newTestApp(t, okGenerator(), nil)
	call(t, app, http.MethodPatch, "/api/p/dreams/draft", alice, map[string]any{"dreamText": "a bridge of birds"})

	session, err := plugin.BootstrapSession(context.Background(), testApp, alice)
	require.NoError(t, err)
	st, ok := session.(dream.State)
	require.True(t, ok)
	assert.Equal(t, "a bridge of birds", st.DreamText)

	var idle Plugin
	session, err = idle.BootstrapSession(context.Background(), testApp, alice)
	assert.NoError(t, err)
	assert.Nil(t, session)
}
