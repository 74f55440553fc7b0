package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/phrasebook/pkg/artifact"
	"github.com/japaniel/phrasebook/pkg/schema"
	"github.com/japaniel/phrasebook/pkg/sentences"
	"github.com/japaniel/phrasebook/pkg/store"
)

type testServer struct {
	handler *Handler
	router  http.Handler
	dir     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	d, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, (&schema.Bootstrapper{Driver: d, Workers: 2}).Run(context.Background()))

	dir := t.TempDir()
	disk, err := artifact.NewDiskStore(dir, "/uploads")
	require.NoError(t, err)

	h := NewHandler(sentences.New(d, disk, nil), disk, nil)
	return &testServer{handler: h, router: h.Routes(), dir: dir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func (s *testServer) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func uploadRequest(t *testing.T, target string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("audio", "clip.mp3")
	require.NoError(t, err)
	fw.Write([]byte("ID3 audio"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUploadSentenceAndDuplicate(t *testing.T) {
	s := newTestServer(t)
	fields := map[string]string{"original": "Good morning", "translation": "Buenos días"}

	rec, body := s.do(t, uploadRequest(t, "/api/sentences", fields))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, body["id"])
	audioPath, _ := body["audioPath"].(string)
	assert.True(t, strings.HasPrefix(audioPath, "/uploads/"))
	assert.Equal(t, []string{path.Base(audioPath)}, s.files(t))

	rec, body = s.do(t, uploadRequest(t, "/api/sentences", fields))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "sentence already exists", body["error"])
	assert.Equal(t, []string{path.Base(audioPath)}, s.files(t), "duplicate upload removed")
}

func TestUploadSentenceValidation(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, uploadRequest(t, "/api/sentences", map[string]string{"original": "Hi"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "translation")
	assert.Empty(t, s.files(t), "rejected upload removed")

	req := httptest.NewRequest(http.MethodPost, "/api/sentences", strings.NewReader("original=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, _ = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSentence(t *testing.T) {
	s := newTestServer(t)
	s.do(t, uploadRequest(t, "/api/sentences", map[string]string{"original": "Hi", "translation": "Hola"}))

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Hi", data["original"])
	assert.Equal(t, "unpracticed", data["status"])
	assert.NotEmpty(t, data["audioPath"])
	assert.Nil(t, data["explanation"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestListAndFilter(t *testing.T) {
	s := newTestServer(t)
	for _, o := range []string{"Good morning", "Good night", "Thanks"} {
		rec, _ := s.do(t, uploadRequest(t, "/api/sentences", map[string]string{"original": o, "translation": "t"}))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences?page=abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	pg := body["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pg["page"])
	assert.EqualValues(t, 1, pg["limit"])
	assert.EqualValues(t, 3, pg["totalPages"])
	assert.Equal(t, "Good morning", body["data"].([]any)[0].(map[string]any)["original"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences/filter?search=good", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "Good night", data[0].(map[string]any)["original"])
	pg = body["pagination"].(map[string]any)
	assert.EqualValues(t, 20, pg["limit"])
	assert.EqualValues(t, 2, pg["total"])

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences/filter?isNew=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/speaking/random?page=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	item := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "Thanks", item["original"])
	assert.NotContains(t, item, "translation")
}

func TestPatchAndDelete(t *testing.T) {
	s := newTestServer(t)
	s.do(t, uploadRequest(t, "/api/sentences", map[string]string{"original": "Hi", "translation": "Hola"}))

	rec, _ := s.do(t, jsonRequest(http.MethodPatch, "/api/sentences/1", `{"status":"practiced","isFavorite":1}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences/1", nil))
	data := body["data"].(map[string]any)
	assert.Equal(t, "practiced", data["status"])
	assert.EqualValues(t, 1, data["isFavorite"])
	assert.Equal(t, "Hola", data["translation"])

	rec, body = s.do(t, jsonRequest(http.MethodPatch, "/api/sentences/1", `{"original":"Bye"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "original")

	rec, _ = s.do(t, jsonRequest(http.MethodPatch, "/api/sentences/1", `not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, jsonRequest(http.MethodPatch, "/api/sentences/7", `{"status":"mastered"}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/admin/sentences/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/admin/sentences/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUploadThenCreate(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, uploadRequest(t, "/api/admin/upload-audio", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	audioPath := body["audioPath"].(string)

	payload, _ := json.Marshal(map[string]string{"original": "Hello", "translation": "Hola", "audioPath": audioPath})
	rec, body = s.do(t, jsonRequest(http.MethodPost, "/api/admin/sentences", string(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1, body["id"])

	rec, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/sentences", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
}

func TestAdminMiddleware(t *testing.T) {
	s := newTestServer(t)
	s.handler.AdminMiddleware = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer ok" {
				respondWithError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	s.router = s.handler.Routes()

	rec, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/sentences", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/sentences", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rec, _ = s.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/sentences", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "learner routes stay open")
}

func TestCompare(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, jsonRequest(http.MethodPost, "/api/speaking/compare", `{"originalText":"the cat sat","userText":"the dog sat"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 84, body["score"])
	assert.EqualValues(t, 67, body["accuracy"])
	assert.EqualValues(t, 100, body["fluency"])
	assert.Equal(t, "Good job! Keep practicing.", body["feedback"])

	rec, _ = s.do(t, jsonRequest(http.MethodPost, "/api/speaking/compare", `{"originalText":"hello world","userText":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, jsonRequest(http.MethodPost, "/api/speaking/compare", `{"originalText":"a","userText":"a","lang":"xx"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "lang")
}

func TestInternalErrorsHideDetails(t *testing.T) {
	s := newTestServer(t)
	// Replace the artifact directory with a file so saving fails.
	require.NoError(t, os.RemoveAll(s.dir))
	require.NoError(t, os.WriteFile(s.dir, nil, 0o644))
	t.Cleanup(func() { os.Remove(s.dir) })

	rec, body := s.do(t, uploadRequest(t, "/api/admin/upload-audio", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["error"])
	assert.NotContains(t, rec.Body.String(), filepath.Base(s.dir))
}
