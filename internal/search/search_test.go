package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, status int, body string, assertRequest func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assertRequest != nil {
			assertRequest(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func imagesPayload(t *testing.T, amount int) string {
	t.Helper()
	images := make([]map[string]string, 0, amount)
	for i := 0; i < amount; i++ {
		images = append(images, map[string]string{
			"title":     fmt.Sprintf("cat %d", i),
			"thumbnail": fmt.Sprintf("https://thumbs.example.com/%d.jpg", i),
			"source":    "example.com",
			"link":      "ignored",
		})
	}
	body, err := json.Marshal(map[string]any{"images_results": images})
	require.NoError(t, err)
	return string(body)
}

func TestSearchImagesForwardsQuery(t *testing.T) {
	srv := newProvider(t, http.StatusOK, imagesPayload(t, 1), func(r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "google_images", r.URL.Query().Get("engine"))
		assert.Equal(t, "cats", r.URL.Query().Get("q"))
		assert.Equal(t, "the-key", r.URL.Query().Get("api_key"))
	})

	results, err := New(srv.URL, "").SearchImages(context.Background(), "cats", "the-key")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.JSONEq(t, `"cat 0"`, string(results[0].Title))
	assert.JSONEq(t, `"https://thumbs.example.com/0.jpg"`, string(results[0].Thumbnail))
	assert.JSONEq(t, `"example.com"`, string(results[0].Source))
}

func TestSearchImagesCapsResults(t *testing.T) {
	srv := newProvider(t, http.StatusOK, imagesPayload(t, 30), nil)

	results, err := New(srv.URL, "").SearchImages(context.Background(), "cats", "the-key")
	require.NoError(t, err)
	require.Len(t, results, MaxResults)
	assert.JSONEq(t, `"cat 11"`, string(results[MaxResults-1].Title))
}

func TestSearchImagesMissingFieldsBecomeNull(t *testing.T) {
	srv := newProvider(t, http.StatusOK, `{"images_results": [{"title": "only a title"}]}`, nil)

	results, err := New(srv.URL, "").SearchImages(context.Background(), "cats", "the-key")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Thumbnail)
	assert.Nil(t, results[0].Source)

	encoded, err := json.Marshal(results[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "only a title", "thumbnail": null, "source": null}`, string(encoded))
}

func TestSearchImagesPassesThroughOddEntries(t *testing.T) {
	images := make([]json.RawMessage, 0, MaxResults+1)
	images = append(images,
		json.RawMessage(`{"title": 42, "thumbnail": ["a", "b"], "source": {"name": "example.com"}}`),
		json.RawMessage(`"not an object"`),
	)
	for i := len(images); i < MaxResults; i++ {
		images = append(images, json.RawMessage(fmt.Sprintf(`{"title": "cat %d"}`, i)))
	}
	images = append(images, json.RawMessage(`{"title": {"a": 1}}`))
	body, err := json.Marshal(map[string]any{"images_results": images})
	require.NoError(t, err)
	srv := newProvider(t, http.StatusOK, string(body), nil)

	results, err := New(srv.URL, "").SearchImages(context.Background(), "cats", "the-key")
	require.NoError(t, err)
	require.Len(t, results, MaxResults)

	encoded, err := json.Marshal(results[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": 42, "thumbnail": ["a", "b"], "source": {"name": "example.com"}}`, string(encoded))

	encoded, err = json.Marshal(results[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": null, "thumbnail": null, "source": null}`, string(encoded))

	assert.JSONEq(t, `"cat 11"`, string(results[MaxResults-1].Title))
}

func TestSearchImagesWithoutImagesResults(t *testing.T) {
	srv := newProvider(t, http.StatusUnauthorized, `{"error": "Invalid API key."}`, nil)

	results, err := New(srv.URL, "").SearchImages(context.Background(), "cats", "bad-key")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearchImagesMalformedBody(t *testing.T) {
	srv := newProvider(t, http.StatusBadGateway, `<html>upstream down</html>`, nil)

	_, err := New(srv.URL, "").SearchImages(context.Background(), "cats", "the-key")
	assert.ErrorIs(t, err, ErrProviderResponse)
}

func TestSearchImagesTransportError(t *testing.T) {
	srv := newProvider(t, http.StatusOK, `{}`, nil)
	endpoint := srv.URL
	srv.Close()

	_, err := New(endpoint, "").SearchImages(context.Background(), "cats", "the-key")
	assert.ErrorIs(t, err, ErrProviderResponse)
}
