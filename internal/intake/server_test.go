package intake

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/logging"
)

func testHandler(t *testing.T) (*handler, string) {
	t.Helper()
	root := t.TempDir()
	return &handler{cfg: Config{Root: root, PathTemplate: "%f"}, logger: logging.NewDefaultCLILogger()}, root
}

func TestGetServesUploadForm(t *testing.T) {
	h, _ := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<form")
}

func TestPostMultipartSavesFile(t *testing.T) {
	h, root := testHandler(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "report.txt")
	require.NoError(t, err)
	part.Write([]byte("hello intake"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.handle(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "done.\n", w.Body.String())

	data, err := os.ReadFile(filepath.Join(root, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello intake", string(data))
}

func TestPostMultipartRejectsTraversalFilename(t *testing.T) {
	h, _ := testHandler(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "../../etc/passwd")
	require.NoError(t, err)
	part.Write([]byte("x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.handle(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSavesRawBodyUnderRandomDatFilename(t *testing.T) {
	h, root := testHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/", bytes.NewReader([]byte("raw bytes")))
	w := httptest.NewRecorder()
	h.handle(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Name(), len("xxxxxxxxxxxxxxxx.dat"))
	assert.Regexp(t, `^[a-zA-Z0-9]{16}\.dat$`, entries[0].Name())

	data, err := os.ReadFile(filepath.Join(root, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(data))
}

func TestUnsupportedMethodRejected(t *testing.T) {
	h, _ := testHandler(t)
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	w := httptest.NewRecorder()
	h.handle(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestValidateFilenameRejectsAbsoluteAndInvalidUTF8(t *testing.T) {
	assert.Error(t, validateFilename("/etc/passwd"))
	assert.Error(t, validateFilename("a/../../b"))
	assert.Error(t, validateFilename(string([]byte{0xff, 0xfe})))
	assert.NoError(t, validateFilename("ordinary-name.txt"))
}
