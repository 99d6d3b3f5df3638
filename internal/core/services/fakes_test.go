package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/models"
	"github.com/PriyalGandhi19/taskmanager/internal/adapters/persistence/repositories"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/googleauth"
	"github.com/PriyalGandhi19/taskmanager/internal/pkg/storage"

	"gorm.io/gorm"
)

// In-memory repository fakes. All of them are safe for concurrent use
// because the services fire notifications and mails from goroutines.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[uint]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return errors.New("duplicate email")
		}
	}
	user.ID = r.nextID
	r.nextID++
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for id := uint(1); id < r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeUserRepo) CountAdmins(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Role == "ADMIN" {
			n++
		}
	}
	return n, nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	nextID uint
	tokens []*models.RefreshToken
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{nextID: 1}
}

func (r *fakeRefreshRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = r.nextID
	r.nextID++
	cp := *token
	r.tokens = append(r.tokens, &cp)
	return nil
}

func (r *fakeRefreshRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRefreshRepo) RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash && t.RevokedAt == nil {
			when := at
			t.RevokedAt = &when
		}
	}
	return nil
}

func (r *fakeRefreshRepo) RevokeAllByUserID(ctx context.Context, userID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			when := at
			t.RevokedAt = &when
		}
	}
	return nil
}

func (r *fakeRefreshRepo) DeleteExpired(ctx context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	for _, t := range r.tokens {
		if !t.ExpiresAt.Before(before) {
			kept = append(kept, t)
		}
	}
	r.tokens = kept
	return nil
}

func (r *fakeRefreshRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

type fakeOneTimeTokenRepo struct {
	mu     sync.Mutex
	nextID uint
	tokens []*models.OneTimeToken
}

func newFakeOneTimeTokenRepo() *fakeOneTimeTokenRepo {
	return &fakeOneTimeTokenRepo{nextID: 1}
}

func (r *fakeOneTimeTokenRepo) Replace(ctx context.Context, token *models.OneTimeToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == token.UserID && t.Kind == token.Kind && !t.Used {
			t.Used = true
		}
	}
	token.ID = r.nextID
	r.nextID++
	cp := *token
	r.tokens = append(r.tokens, &cp)
	return nil
}

func (r *fakeOneTimeTokenRepo) GetValid(ctx context.Context, kind, tokenHash string, now time.Time) (*models.OneTimeToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Kind == kind && t.TokenHash == tokenHash && !t.Used && now.Before(t.ExpiresAt) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOneTimeTokenRepo) MarkUsed(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID == id {
			t.Used = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeOneTimeTokenRepo) countByKind(userID uint, kind string) (total, unused int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID == userID && t.Kind == kind {
			total++
			if !t.Used {
				unused++
			}
		}
	}
	return total, unused
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []*models.AuthActivity
}

func (r *fakeActivityRepo) Create(ctx context.Context, activity *models.AuthActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *activity
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeActivityRepo) List(ctx context.Context, email, event string, offset, limit int) ([]*models.AuthActivity, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuthActivity
	for _, e := range r.entries {
		if email != "" && e.Email != email {
			continue
		}
		if event != "" && e.Event != event {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeActivityRepo) byEvent(event string) []*models.AuthActivity {
	out, _, _ := r.List(context.Background(), "", event, 0, 0)
	return out
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, action, entity string, offset, limit int) ([]*models.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if action != "" && e.Action != action {
			continue
		}
		if entity != "" && e.Entity != entity {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        uint
	notifications []*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	notification.ID = r.nextID
	r.nextID++
	cp := *notification
	r.notifications = append(r.notifications, &cp)
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) ListByRecipient(ctx context.Context, recipientID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, notif := range r.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, recipientID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.ID == id && n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, recipientID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) countByType(recipientID uint, notifType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, notif := range r.notifications {
		if notif.RecipientID == recipientID && notif.Type == notifType {
			n++
		}
	}
	return n
}

func (r *fakeNotificationRepo) lastMessage(recipientID uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].RecipientID == recipientID {
			return r.notifications[i].Message
		}
	}
	return ""
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	nextID      uint
	attachments []*models.TaskAttachment
	tasks       *fakeTaskRepo
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{nextID: 1}
}

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *models.TaskAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attachment.ID = r.nextID
	r.nextID++
	cp := *attachment
	r.attachments = append(r.attachments, &cp)
	return nil
}

func (r *fakeAttachmentRepo) GetByID(ctx context.Context, id uint) (*models.TaskAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attachments {
		if a.ID == id {
			cp := *a
			if r.tasks != nil {
				if task, err := r.tasks.GetByID(context.Background(), a.TaskID); err == nil {
					cp.Task = task
				}
			}
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAttachmentRepo) ListByTask(ctx context.Context, taskID uint) ([]*models.TaskAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TaskAttachment
	for _, a := range r.attachments {
		if a.TaskID == taskID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeAttachmentRepo) deleteByTask(taskID uint) []*models.TaskAttachment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []*models.TaskAttachment
	kept := r.attachments[:0]
	for _, a := range r.attachments {
		if a.TaskID == taskID {
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	r.attachments = kept
	return removed
}

type fakeTaskRepo struct {
	mu          sync.Mutex
	nextID      uint
	tasks       map[uint]*models.Task
	attachments *fakeAttachmentRepo
}

func newFakeTaskRepo(attachments *fakeAttachmentRepo) *fakeTaskRepo {
	r := &fakeTaskRepo{nextID: 1, tasks: make(map[uint]*models.Task), attachments: attachments}
	if attachments != nil {
		attachments.tasks = r
	}
	return r
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *models.Task, attachment *models.TaskAttachment) error {
	r.mu.Lock()
	task.ID = r.nextID
	r.nextID++
	cp := *task
	r.tasks[task.ID] = &cp
	r.mu.Unlock()

	if attachment != nil {
		attachment.TaskID = task.ID
		return r.attachments.Create(ctx, attachment)
	}
	return nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id uint) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTaskRepo) UpdateTx(ctx context.Context, id uint, apply func(task *models.Task) error) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	if err := apply(&cp); err != nil {
		return nil, err
	}
	saved := cp
	r.tasks[id] = &saved
	out := cp
	return &out, nil
}

func (r *fakeTaskRepo) DeleteTx(ctx context.Context, id uint, authorize func(task *models.Task) error) (*models.Task, []*models.TaskAttachment, error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil, gorm.ErrRecordNotFound
	}
	cp := *t
	if err := authorize(&cp); err != nil {
		r.mu.Unlock()
		return nil, nil, err
	}
	delete(r.tasks, id)
	r.mu.Unlock()

	var attachments []*models.TaskAttachment
	if r.attachments != nil {
		attachments = r.attachments.deleteByTask(id)
	}
	return &cp, attachments, nil
}

func (r *fakeTaskRepo) List(ctx context.Context, filter repositories.TaskFilter, offset, limit int) ([]*models.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Task
	for id := uint(1); id < r.nextID; id++ {
		t, ok := r.tasks[id]
		if !ok {
			continue
		}
		if filter.OwnerID != nil && t.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTaskRepo) CountByStatus(ctx context.Context, ownerID *uint) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, t := range r.tasks {
		if ownerID != nil && t.OwnerID != *ownerID {
			continue
		}
		counts[t.Status]++
	}
	return counts, nil
}

func (r *fakeTaskRepo) ListDueBetween(ctx context.Context, from, to time.Time) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Task
	for _, t := range r.tasks {
		if t.DueDate == nil || t.DueDate.Before(from) || t.DueDate.After(to) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	nextID   uint
	comments []*models.TaskComment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{nextID: 1}
}

func (r *fakeCommentRepo) Create(ctx context.Context, comment *models.TaskComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = r.nextID
	r.nextID++
	cp := *comment
	r.comments = append(r.comments, &cp)
	return nil
}

func (r *fakeCommentRepo) GetByID(ctx context.Context, id uint) (*models.TaskComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.comments {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCommentRepo) ListByTask(ctx context.Context, taskID uint, offset, limit int) ([]*models.TaskComment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TaskComment
	for _, c := range r.comments {
		if c.TaskID == taskID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeCommentRepo) Update(ctx context.Context, comment *models.TaskComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.comments {
		if c.ID == comment.ID {
			cp := *comment
			r.comments[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeCommentRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.comments {
		if c.ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeMailer records outgoing mail and optionally fails every send
type fakeMailer struct {
	mu   sync.Mutex
	fail bool
	sent []sentMail
}

type sentMail struct {
	kind  string
	to    string
	token string
}

func (m *fakeMailer) setFail(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = v
}

func (m *fakeMailer) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, token: token})
	return nil
}

func (m *fakeMailer) SendVerificationEmail(to, token string) error {
	return m.record("verification", to, token)
}

func (m *fakeMailer) SendSetPasswordEmail(to, token string) error {
	return m.record("set_password", to, token)
}

func (m *fakeMailer) SendPasswordResetEmail(to, token string) error {
	return m.record("password_reset", to, token)
}

func (m *fakeMailer) SendWelcomeEmail(to, tempPassword string) error {
	return m.record("welcome", to, tempPassword)
}

func (m *fakeMailer) SendTaskAssignedEmail(to, taskTitle string) error {
	return m.record("task_assigned", to, taskTitle)
}

func (m *fakeMailer) SendDueReminderEmail(to, taskTitle string, dueDate time.Time) error {
	return m.record("due_reminder", to, taskTitle)
}

func (m *fakeMailer) SendDocumentEmail(to, subject, body, attachmentPath, attachmentName string) error {
	return m.record("document", to, attachmentName)
}

func (m *fakeMailer) byKind(kind string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// fakeGoogleVerifier accepts tokens of the form "google:<email>"
type fakeGoogleVerifier struct{}

func (fakeGoogleVerifier) VerifyIDToken(ctx context.Context, idToken string) (*googleauth.Profile, error) {
	email, ok := strings.CutPrefix(idToken, "google:")
	if !ok {
		return nil, errors.New("invalid id token")
	}
	return &googleauth.Profile{Email: email}, nil
}

// fakeStore keeps stored files in memory
type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	failSave bool
	files    map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (s *fakeStore) Save(r io.Reader, ext string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return "", 0, errors.New("disk full")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	s.nextID++
	name := fmt.Sprintf("file-%d%s", s.nextID, ext)
	s.files[name] = data
	return name, int64(len(data)), nil
}

func (s *fakeStore) Open(storageName string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[storageName]
	if !ok {
		return nil, storage.ErrFileMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Path(storageName string) string {
	return "/tmp/fake/" + storageName
}

func (s *fakeStore) Remove(storageName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, storageName)
	return nil
}

func (s *fakeStore) has(storageName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[storageName]
	return ok
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
