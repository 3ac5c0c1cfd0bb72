package intake

import (
	"crypto/rand"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kpcyrd/brchd/internal/brchderr"
	"github.com/kpcyrd/brchd/internal/destwriter"
	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/pathtemplate"
)

const uploadFormHTML = `<html>
<head><title>Upload File</title></head>
<body>
<form action="/" method="post" enctype="multipart/form-data">
<input type="file" multiple name="file">
<input type="submit" value="Submit">
</form>
</body>
</html>`

const datFilenameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type handler struct {
	cfg    Config
	logger *logging.Logger
}

// handle dispatches by method, per §4.8: GET serves the upload form, POST
// accepts a multipart body, PUT accepts a raw body.
func (h *handler) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleForm(w, r)
	case http.MethodPost:
		h.handleMultipart(w, r)
	case http.MethodPut:
		h.handleRaw(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(uploadFormHTML))
}

// handleMultipart implements §4.8's POST contract: for each part that
// carries a filename, stream it through C2+C3 using context
// (remote_ip, filename, relative_path=filename, full_path=none).
func (h *handler) handleMultipart(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	remote := remoteIP(r)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, "reading multipart body: "+err.Error(), http.StatusBadRequest)
			return
		}

		filename := part.FileName()
		if filename == "" {
			continue // a form field without a filename is not an upload
		}
		if err := validateFilename(filename); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := h.save(remote, filename, filename, part); err != nil {
			h.logger.Error().Err(err).Str("filename", filename).Msg("saving upload failed")
			http.Error(w, "failed to save upload", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("done.\n"))
}

// handleRaw implements §4.8's PUT contract: a raw body saved under a
// random 16-char ".dat" filename.
func (h *handler) handleRaw(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	filename, err := randomDatFilename()
	if err != nil {
		http.Error(w, "failed to allocate filename", http.StatusInternalServerError)
		return
	}

	if err := h.save(remoteIP(r), filename, filename, r.Body); err != nil {
		h.logger.Error().Err(err).Str("filename", filename).Msg("saving upload failed")
		http.Error(w, "failed to save upload", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("done.\n"))
}

func (h *handler) save(remote, filename, relPath string, r io.Reader) error {
	ctx := pathtemplate.NewContext(h.cfg.PathTemplate, remote, filename, relPath, "")
	dest, err := destwriter.Open(h.cfg.Root, ctx)
	if err != nil {
		return err
	}
	return dest.Save(r)
}

// validateFilename rejects directory traversal, absolute paths and
// invalid UTF-8, per §4.8's "Filename validation on multipart parts".
func validateFilename(name string) error {
	if !utf8.ValidString(name) {
		return brchderr.ErrInvalidFilename
	}
	if filepath.IsAbs(filepath.FromSlash(name)) {
		return brchderr.ErrInvalidFilename
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return brchderr.ErrInvalidFilename
		}
	}
	return nil
}

func randomDatFilename() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 16)
	for i, b := range buf {
		out[i] = datFilenameChars[int(b)%len(datFilenameChars)]
	}
	return string(out) + ".dat", nil
}
