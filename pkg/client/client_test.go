package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godeps/schoolsdk-go/pkg/apierror"
	"github.com/godeps/schoolsdk-go/pkg/session"
)

func newAuthenticated(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore())
	require.NoError(t, m.Login("test-access", "test-refresh"))
	return m
}

func TestDoAttachesAuthHeaderAndBasePrefix(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api", newAuthenticated(t), WithUserAgent("sdk-test"))
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), http.MethodGet, "/students/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "/api/students/", gotPath)
	assert.Equal(t, "Bearer test-access", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestDoAnonymousSendsNoAuthHeader(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	sess := session.NewManager(session.NewMemoryStore())
	c, err := New(srv.URL, sess)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/students/", nil, nil)
	require.NoError(t, err)
	assert.False(t, sawAuth)
}

func TestDoSerializesQueryAndBody(t *testing.T) {
	var gotQuery url.Values
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, newAuthenticated(t))
	require.NoError(t, err)

	query := url.Values{"student": []string{"42"}}
	body := map[string]any{"reason": "meeting"}
	resp, err := c.Do(context.Background(), http.MethodPost, "/parent-visits/", body, query)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "42", gotQuery.Get("student"))
	assert.JSONEq(t, `{"reason":"meeting"}`, gotBody)
}

func TestDoStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   apierror.Kind
	}{
		{http.StatusUnauthorized, apierror.KindAuth},
		{http.StatusNotFound, apierror.KindNotFound},
		{http.StatusConflict, apierror.KindConflict},
		{http.StatusBadRequest, apierror.KindValidation},
		{http.StatusInternalServerError, apierror.KindServer},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"detail":"nope"}`))
		}))
		c, err := New(srv.URL, newAuthenticated(t))
		require.NoError(t, err)

		_, err = c.Do(context.Background(), http.MethodGet, "/students/", nil, nil)
		require.Errorf(t, err, "status %d", tc.status)
		assert.Equalf(t, tc.want, apierror.KindOf(err), "status %d", tc.status)
		srv.Close()
	}
}

func TestDoAuthErrorForcesAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newAuthenticated(t)
	c, err := New(srv.URL, sess)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/students/", nil, nil)
	require.True(t, apierror.IsAuth(err))
	assert.Equal(t, session.Anonymous, sess.State())
	assert.Empty(t, sess.AuthHeader())
}

func TestDoTimeoutIsDistinctFromNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(srv.URL, newAuthenticated(t), WithTimeouts(30*time.Millisecond, time.Second))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/students/", nil, nil)
	assert.Equal(t, apierror.KindTimeout, apierror.KindOf(err))
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(base, newAuthenticated(t))
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "/students/", nil, nil)
	assert.Equal(t, apierror.KindNetwork, apierror.KindOf(err))
}

func TestAuthenticateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token/", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"admin","password":"pass"}`, string(body))
		w.Write([]byte(`{"access":"new-acc","refresh":"new-ref"}`))
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	sess := session.NewManager(store)
	c, err := New(srv.URL, sess)
	require.NoError(t, err)

	require.NoError(t, c.Authenticate(context.Background(), "admin", "pass"))
	assert.Equal(t, session.Authenticated, sess.State())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, session.Tokens{Access: "new-acc", Refresh: "new-ref"}, persisted)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"No active account found"}`))
	}))
	defer srv.Close()

	store := session.NewMemoryStore()
	sess := session.NewManager(store)
	c, err := New(srv.URL, sess)
	require.NoError(t, err)

	err = c.Authenticate(context.Background(), "admin", "wrong")
	require.True(t, apierror.IsAuth(err))
	assert.Equal(t, session.Anonymous, sess.State())

	persisted, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.True(t, persisted.Empty())
}

func TestUploadMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "students.xlsx", header.Filename)
		assert.Equal(t, "sheet-bytes", string(content))
		assert.Equal(t, "1403", r.FormValue("academic_year"))
		w.Write([]byte(`{"success":true,"results":{"success":10,"total":10,"errors":[]}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, newAuthenticated(t))
	require.NoError(t, err)

	resp, err := c.Upload(context.Background(), "/students/import-excel/",
		"file", "students.xlsx", strings.NewReader("sheet-bytes"),
		map[string]string{"academic_year": "1403"})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Payload), `"total":10`)
}

func TestNewValidatesBaseURL(t *testing.T) {
	sess := session.NewManager(session.NewMemoryStore())
	_, err := New("not-a-url", sess)
	assert.Error(t, err)
	_, err = New("http://host.example", nil)
	assert.Error(t, err)
}

func TestDoRejectsUnrootedPath(t *testing.T) {
	c, err := New("http://host.example", session.NewManager(session.NewMemoryStore()))
	require.NoError(t, err)
	_, err = c.Do(context.Background(), http.MethodGet, "students/", nil, nil)
	assert.Error(t, err)
}
