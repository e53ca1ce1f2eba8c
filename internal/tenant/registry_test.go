package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile_MissingUsesDefault(t *testing.T) {
	r, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAppIDValue, r.DefaultAppID())
	assert.True(t, r.HasFeature(DefaultAppIDValue, FeatureGallery))
	assert.True(t, r.HasFeature(DefaultAppIDValue, FeatureSharing))
}

func TestLoadFromFile_Parses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	data := `{"apps":[
		{"app_id":"alpha","features":{"gallery":true}},
		{"app_id":"beta","default":true,"ai_config":{"text_model":"m-text"},"styles":["Ukiyo-e"]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	r, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "beta", r.DefaultAppID())
	assert.True(t, r.HasFeature("alpha", FeatureGallery))
	assert.False(t, r.HasFeature("alpha", FeatureSharing))
	assert.False(t, r.HasFeature("missing", FeatureGallery))

	beta := r.Get("beta")
	require.NotNil(t, beta)
	assert.Equal(t, "m-text", beta.TextModel("fallback"))
	assert.Equal(t, "fallback", beta.ImageModel("fallback"))
	assert.Equal(t, []string{"Ukiyo-e"}, beta.Styles)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].AppID)
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.yaml")
	data := `apps:
  - app_id: dreamscape
    features:
      gallery: true
      sharing: false
    styles: [Surrealism, Vaporwave]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	r, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, r.HasFeature("dreamscape", FeatureGallery))
	assert.False(t, r.HasFeature("dreamscape", FeatureSharing))
	assert.Equal(t, []string{"Surrealism", "Vaporwave"}, r.Get("dreamscape").Styles)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"apps":[]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"apps":[{"app_name":"x"}]}`))
	assert.Error(t, err)
}
