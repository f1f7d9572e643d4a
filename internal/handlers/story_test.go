package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

func TestStoryHandler_ListAndGet(t *testing.T) {
	store := storage.NewMockStore()
	store.AddStory("square.json", []byte(testStoryDoc))
	h := NewStoryHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/stories", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var list map[string][]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	assert.Equal(t, []string{"square.json"}, list["stories"])

	req = httptest.NewRequest(http.MethodGet, "/v1/stories/square.json", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var graph story.Graph
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&graph))
	assert.Equal(t, 1, graph.Act)
	require.Len(t, graph.Scenes, 2)
	assert.Equal(t, "start", graph.Scenes[0].ID)
	assert.True(t, graph.Scenes[1].Choices.Terminal)
}

func TestStoryHandler_NotFound(t *testing.T) {
	h := NewStoryHandler(storage.NewMockStore(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/stories/ghost.json", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStoryHandler_MalformedDocument(t *testing.T) {
	store := storage.NewMockStore()
	store.AddStory("bad.json", []byte(`{"title": "not a story"}`))
	h := NewStoryHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/stories/bad.json", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
