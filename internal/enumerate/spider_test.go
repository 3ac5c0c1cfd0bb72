package enumerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/task"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSpiderTraversesDirectoriesAndEmitsLeaves(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/root/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="sub/">sub</a><a href="a.txt">a</a>`))
	})
	mux.HandleFunc("/root/sub/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="b.txt">b</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var got []task.Task
	err := Spider(context.Background(), srv.Client(), srv.URL+"/root/", func(tk task.Task) error {
		got = append(got, tk)
		return nil
	})
	require.NoError(t, err)

	var paths []string
	for _, tk := range got {
		paths = append(paths, tk.Remote.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, paths)
}

func TestSpiderSkipsLinksOutsideCurrentNode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/root/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/other/escape.txt">escape</a><a href="ok.txt">ok</a>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var got []task.Task
	err := Spider(context.Background(), srv.Client(), srv.URL+"/root/", func(tk task.Task) error {
		got = append(got, tk)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "ok.txt", got[0].Remote.Path)
}

func TestIsStructuralChildRejectsSiblingPrefixCollision(t *testing.T) {
	current := mustParseURL(t, "https://host/a/")
	resolved := mustParseURL(t, "https://host/ab/file.txt")
	assert.False(t, isStructuralChild(current, resolved))
}

func TestIsStructuralChildAcceptsNestedPath(t *testing.T) {
	current := mustParseURL(t, "https://host/a/")
	resolved := mustParseURL(t, "https://host/a/b/file.txt")
	assert.True(t, isStructuralChild(current, resolved))
}
