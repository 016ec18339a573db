package testutil

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/auth"
)

// Tokens returns a token manager for tests.
func Tokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	return tm
}

// Token stores an active account with role in admins, reusing it when it
// exists, and signs a session for it.
func Token(t *testing.T, tm *auth.TokenManager, admins database.Store[model.Admin], role string) string {
	t.Helper()
	ctx := context.Background()
	email := role + "@example.com"
	admin, err := admins.FindOne(ctx, map[string]any{"email": email})
	if errors.Is(err, database.ErrNotFound) {
		admin = model.NewAdmin(email, "Test", role)
		admin.PasswordHash = "not-a-real-hash"
		err = admins.Create(ctx, admin)
	}
	require.NoError(t, err)
	token, err := tm.Generate(admin)
	require.NoError(t, err)
	return token
}

// Uploader keeps uploads in memory. It applies the same type and size
// checks as the real backends.
type Uploader struct {
	MaxBytes int64

	mu      sync.Mutex
	Files   map[string][]byte
	Deleted []string
}

// NewUploader returns an empty Uploader with a 1 MiB limit.
func NewUploader() *Uploader {
	return &Uploader{MaxBytes: 1 << 20, Files: map[string][]byte{}}
}

// Upload implements storage.Uploader.
func (u *Uploader) Upload(_ context.Context, in storage.FileInput) (*model.Media, error) {
	p, err := storage.Prepare(in, u.MaxBytes)
	if err != nil {
		return nil, err
	}
	id := path.Join(in.Folder, uuid.NewString())
	u.mu.Lock()
	u.Files[id] = p.Data
	u.mu.Unlock()
	return &model.Media{
		URL:          "https://cdn.example.com/" + id + p.Ext,
		PublicID:     id,
		ResourceType: p.ResourceType,
		Format:       p.Ext[1:],
		Bytes:        int64(len(p.Data)),
		Filename:     path.Base(in.Filename),
	}, nil
}

// Delete implements storage.Uploader.
func (u *Uploader) Delete(_ context.Context, publicID, _ string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if publicID == "" {
		return storage.ErrInvalidID
	}
	delete(u.Files, publicID)
	u.Deleted = append(u.Deleted, publicID)
	return nil
}

// Count returns the number of stored files.
func (u *Uploader) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.Files)
}

// Mailer records notifications instead of sending them.
type Mailer struct {
	mu           sync.Mutex
	OTPs         map[string]string
	Inquiries    []*model.Inquiry
	Applications []*model.JobApplication
	Err          error
}

// NewMailer returns an empty Mailer.
func NewMailer() *Mailer {
	return &Mailer{OTPs: map[string]string{}}
}

// SendOTP implements mailer.Mailer.
func (m *Mailer) SendOTP(_ context.Context, to, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OTPs[to] = code
	return m.Err
}

// SendInquiryNotification implements mailer.Mailer.
func (m *Mailer) SendInquiryNotification(_ context.Context, inquiry *model.Inquiry, _ *model.ContactOffice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inquiries = append(m.Inquiries, inquiry)
	return m.Err
}

// SendApplicationNotification implements mailer.Mailer.
func (m *Mailer) SendApplicationNotification(_ context.Context, app *model.JobApplication, _ *model.Career) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Applications = append(m.Applications, app)
	return m.Err
}

// Sent returns the number of inquiry and application notifications.
func (m *Mailer) Sent() (inquiries, applications int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Inquiries), len(m.Applications)
}
