// Package testutil holds helpers for exercising Fiber handlers in tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Request describes a test request.
type Request struct {
	Method  string
	Path    string
	Body    any
	Token   string
	Headers map[string]string
}

// Do sends r through app and decodes a JSON object response. Non-object
// bodies are returned raw in the second result under "_raw".
func Do(t *testing.T, app *fiber.App, r Request) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	contentType := fiber.MIMEApplicationJSON
	switch b := r.Body.(type) {
	case nil:
	case *Form:
		reader = bytes.NewReader(b.buf.Bytes())
		contentType = b.contentType
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(r.Method, r.Path, reader)
	if reader != nil {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	if r.Token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+r.Token)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && json.Unmarshal(raw, &out) != nil {
		out["_raw"] = string(raw)
	}
	return resp, out
}

// Form builds a multipart request body.
type Form struct {
	buf         *bytes.Buffer
	w           *multipart.Writer
	contentType string
}

// NewForm starts a multipart body.
func NewForm() *Form {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	return &Form{buf: buf, w: w, contentType: w.FormDataContentType()}
}

// Field adds a text field.
func (f *Form) Field(t *testing.T, name, value string) *Form {
	t.Helper()
	require.NoError(t, f.w.WriteField(name, value))
	return f
}

// JSON adds a text field holding v encoded as JSON.
func (f *Form) JSON(t *testing.T, name string, v any) *Form {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return f.Field(t, name, string(raw))
}

// File adds a file part.
func (f *Form) File(t *testing.T, field, filename, contentType string, content []byte) *Form {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := f.w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	return f
}

// Close finishes the body. It must be called before the form is sent.
func (f *Form) Close(t *testing.T) *Form {
	t.Helper()
	require.NoError(t, f.w.Close())
	return f
}

// Items returns the "items" array of a list response.
func Items(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	raw, ok := body["items"].([]any)
	require.True(t, ok, "response has no items: %v", body)
	out := make([]map[string]any, len(raw))
	for i, item := range raw {
		out[i], ok = item.(map[string]any)
		require.True(t, ok)
	}
	return out
}
