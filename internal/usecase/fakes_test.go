package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/repository"
)

type memoryUserRepo struct {
	mu        sync.Mutex
	users     map[string]domain.User
	updates   int
	updateErr error
	now       time.Time
}

func newMemoryUserRepo(users ...domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{
		users: make(map[string]domain.User, len(users)),
		now:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryUserRepo) get(id string) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func (r *memoryUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memoryUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) FindByEmailUpdateToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.EmailUpdateToken != nil && *u.EmailUpdateToken == token {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) FindMany(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	// storage order, not request order
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryUserRepo) sorted() []domain.User {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryUserRepo) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	if filter.Offset >= len(all) {
		return []domain.User{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], nil
}

func (r *memoryUserRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *memoryUserRepo) Update(_ context.Context, id string, patch port.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if want := patch.IfEmailUpdateToken; want != nil {
		if user.EmailUpdateToken == nil || *user.EmailUpdateToken != *want {
			return nil, repository.ErrNotFound
		}
	}

	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.Username != nil {
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.PasswordHash != nil {
		user.PasswordHash = *patch.PasswordHash
	}
	switch {
	case patch.ClearPicture:
		user.Picture = nil
	case patch.Picture != nil:
		value := *patch.Picture
		user.Picture = &value
	}
	if stage := patch.EmailUpdate; stage != nil {
		if stage.Token == "" {
			user.ClearEmailUpdate()
		} else {
			user.StageEmailUpdate(stage.Token, stage.Value)
		}
	}

	for otherID, other := range r.users {
		if otherID == id {
			continue
		}
		if other.Username == user.Username || other.Email == user.Email {
			return nil, repository.ErrConflict
		}
	}
	stamp := r.now
	user.UpdateTime = &stamp
	r.users[id] = user
	r.updates++
	return &user, nil
}

func (r *memoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) otherActiveAdmins(exceptID string) int {
	count := 0
	for id, u := range r.users {
		if id != exceptID && u.IsAdmin && u.IsActive {
			count++
		}
	}
	return count
}

func (r *memoryUserRepo) Suspend(_ context.Context, id string, suspend bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if suspend && u.IsAdmin && r.otherActiveAdmins(id) == 0 {
		return nil, repository.ErrSoleAdmin
	}
	u.IsActive = !suspend
	r.users[id] = u
	return &u, nil
}

func (r *memoryUserRepo) MakeAdmin(_ context.Context, id string, makeAdmin bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !makeAdmin && u.IsAdmin && r.otherActiveAdmins(id) == 0 {
		return nil, repository.ErrSoleAdmin
	}
	u.IsAdmin = makeAdmin
	r.users[id] = u
	return &u, nil
}

func (r *memoryUserRepo) EnoughActiveAdmins(_ context.Context, exceptID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.otherActiveAdmins(exceptID) > 0, nil
}

type fakeIndex struct {
	result     *port.SearchResult
	searchErr  error
	writeErr   error
	queries    []string
	pages      [][2]int
	documents  map[string]domain.UserDocument
	deletedIDs []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{documents: map[string]domain.UserDocument{}}
}

func (f *fakeIndex) Search(_ context.Context, query string, page, hitsPerPage int) (*port.SearchResult, error) {
	f.queries = append(f.queries, query)
	f.pages = append(f.pages, [2]int{page, hitsPerPage})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.result == nil {
		return &port.SearchResult{}, nil
	}
	return f.result, nil
}

func (f *fakeIndex) UpdateDocuments(_ context.Context, docs []domain.UserDocument) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	for _, doc := range docs {
		f.documents[doc.ID] = doc
	}
	return nil
}

func (f *fakeIndex) DeleteDocuments(_ context.Context, ids []string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deletedIDs = append(f.deletedIDs, ids...)
	for _, id := range ids {
		delete(f.documents, id)
	}
	return nil
}

type sentMail struct {
	template  string
	recipient string
	vars      map[string]string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, template, recipient string, vars map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{template: template, recipient: recipient, vars: vars})
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

type lengthPolicy struct{ min int }

func (p lengthPolicy) Validate(password string) error {
	if len(password) < p.min {
		return errors.New("password too short")
	}
	return nil
}

type recordingEvents struct {
	err    error
	topics []string
}

func (r *recordingEvents) record(topic string) error {
	r.topics = append(r.topics, topic)
	return r.err
}

func (r *recordingEvents) PublishUserUpdated(context.Context, domain.UserUpdatedEvent) error {
	return r.record("user_updated")
}

func (r *recordingEvents) PublishEmailUpdateRequested(context.Context, domain.EmailUpdateRequestedEvent) error {
	return r.record("email_update_requested")
}

func (r *recordingEvents) PublishEmailUpdated(context.Context, domain.EmailUpdatedEvent) error {
	return r.record("email_updated")
}

func (r *recordingEvents) PublishPasswordChanged(context.Context, domain.PasswordChangedEvent) error {
	return r.record("password_changed")
}

func (r *recordingEvents) PublishUserDeleted(context.Context, domain.UserDeletedEvent) error {
	return r.record("user_deleted")
}

func (r *recordingEvents) PublishSuspensionChanged(context.Context, domain.SuspensionChangedEvent) error {
	return r.record("suspension_changed")
}

func (r *recordingEvents) PublishAdminChanged(context.Context, domain.AdminChangedEvent) error {
	return r.record("admin_changed")
}

type countingMetrics struct {
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: map[string]int{}}
}

func (m *countingMetrics) SearchSyncFailed(op string)   { m.counts["sync:"+op]++ }
func (m *countingMetrics) MailFailed(tpl string)        { m.counts["mail:"+tpl]++ }
func (m *countingMetrics) SoleAdminRejected(op string)  { m.counts["admin:"+op]++ }
func (m *countingMetrics) EventPublishFailed(ev string) { m.counts["event:"+ev]++ }

func testUser(id string) domain.User {
	email := strings.ToLower(id) + "@example.com"
	return domain.User{
		ID:           id,
		FullName:     "User " + id,
		Username:     email,
		Email:        email,
		PasswordHash: "hashed:correct horse",
		IsActive:     true,
		CreateTime:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testAdmin(id string) domain.User {
	u := testUser(id)
	u.IsAdmin = true
	return u
}

type serviceFixture struct {
	svc     *AccountService
	repo    *memoryUserRepo
	index   *fakeIndex
	mail    *fakeMailer
	events  *recordingEvents
	metrics *countingMetrics
}

func newFixture(policy SyncPolicy, users ...domain.User) *serviceFixture {
	f := &serviceFixture{
		repo:    newMemoryUserRepo(users...),
		index:   newFakeIndex(),
		mail:    &fakeMailer{},
		events:  &recordingEvents{},
		metrics: newCountingMetrics(),
	}
	f.svc = NewAccountService(f.repo, f.index, f.mail, plainHasher{}, AccountOptions{
		UIURL:      "https://ui.example.com",
		SyncPolicy: policy,
	}).
		WithPasswordPolicy(lengthPolicy{min: 8}).
		WithEvents(f.events).
		WithMetrics(f.metrics).
		WithTokenSource(func() string { return "tok123" })
	return f
}
