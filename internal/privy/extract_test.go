package privy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUserID(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"nested user id", map[string]any{"user": map[string]any{"id": "did:privy:1"}, "userId": "other"}, "did:privy:1"},
		{"top level userId", map[string]any{"userId": "did:privy:2", "id": "other"}, "did:privy:2"},
		{"bare id", map[string]any{"id": "did:privy:3"}, "did:privy:3"},
		{"nested without id falls through", map[string]any{"user": map[string]any{}, "id": "did:privy:4"}, "did:privy:4"},
		{"missing", map[string]any{"token": "abc"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractUserID(tt.payload))
		})
	}
}

func TestUserObject(t *testing.T) {
	nested := map[string]any{"id": "u1"}
	assert.Equal(t, nested, UserObject(map[string]any{"user": nested, "token": "x"}))

	flat := map[string]any{"id": "u2"}
	assert.Equal(t, flat, UserObject(flat))
}

func TestDecode(t *testing.T) {
	assert.Equal(t, map[string]any{"a": "b"}, Decode([]byte(`{"a":"b"}`)))
	assert.Equal(t, map[string]any{"raw": "gateway error"}, Decode([]byte("gateway error")))
	assert.Empty(t, Decode(nil))
}

func TestLoadCandidatesMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	content := `
init:
  - name: staging
    url: https://staging.example.test/init
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := LoadCandidates(path)
	require.NoError(t, err)
	assert.Equal(t, []Endpoint{{Name: "staging", URL: "https://staging.example.test/init"}}, got.Endpoints(OpInit))
	assert.Equal(t, DefaultCandidates().Authenticate, got.Endpoints(OpAuthenticate))
}

func TestLoadCandidatesRejectsEmptyURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wallet:\n  - name: broken\n"), 0o600))

	_, err := LoadCandidates(path)
	assert.Error(t, err)
}
