// Package servicestest provides in-memory collaborators for exercising the
// services without MongoDB, Redis or outbound providers.
package servicestest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HSouheill/alumni_backend/models"
	"github.com/HSouheill/alumni_backend/repositories"
)

// Users is an in-memory identifier store.
type Users struct {
	mu      sync.Mutex
	records map[string]*models.User

	// FailUpdate makes UpdateFields return this error.
	FailUpdate error
	Updates    int
}

func NewUsers(users ...*models.User) *Users {
	u := &Users{records: make(map[string]*models.User)}
	for _, user := range users {
		cp := *user
		u.records[user.Email] = &cp
	}
	return u
}

func (u *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	rec, ok := u.records[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (u *Users) Exists(_ context.Context, email string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.records[email]
	return ok, nil
}

func (u *Users) Create(_ context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.records[user.Email]; ok {
		return repositories.ErrDuplicate
	}
	cp := *user
	u.records[user.Email] = &cp
	return nil
}

// UpdateFields applies $set semantics, including dotted socialLinks paths.
func (u *Users) UpdateFields(_ context.Context, email string, set map[string]interface{}) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailUpdate != nil {
		return nil, u.FailUpdate
	}
	rec, ok := u.records[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	for path, value := range set {
		if key, ok := strings.CutPrefix(path, "socialLinks."); ok {
			if rec.SocialLinks == nil {
				rec.SocialLinks = map[string]string{}
			}
			rec.SocialLinks[key] = value.(string)
			continue
		}
		switch path {
		case "name":
			rec.Name = value.(string)
		case "phone":
			rec.Phone = value.(string)
		case "location":
			rec.Location = value.(string)
		case "headline":
			rec.Headline = value.(string)
		case "techStack":
			rec.TechStack = value.([]string)
		case "resumeLink":
			rec.ResumeLink = value.(string)
		case "branch":
			rec.Branch = value.(string)
		case "batch":
			rec.Batch = value.(int)
		case "profileImage":
			rec.ProfileImage = value.(string)
		case "dsaProblems":
			rec.DSAProblems = value.(int)
		case "isPlaced":
			rec.IsPlaced = value.(bool)
		case "company":
			rec.Company = value.(string)
		case "status":
			rec.Status = value.(string)
		default:
			return nil, errors.New("unexpected field " + path)
		}
	}
	rec.UpdatedAt = time.Now()
	u.Updates++

	cp := *rec
	return &cp, nil
}

func (u *Users) List(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := []models.User{}
	for _, rec := range u.records {
		if filter.Role != "" && rec.Role != filter.Role {
			continue
		}
		if filter.Branch != "" && rec.Branch != filter.Branch {
			continue
		}
		if filter.Batch != 0 && rec.Batch != filter.Batch {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (u *Users) SetStatus(ctx context.Context, email, status string) (*models.User, error) {
	return u.UpdateFields(ctx, email, map[string]interface{}{"status": status})
}

// Codes is an in-memory verification store with the same filter semantics
// as the mongo repository.
type Codes struct {
	mu      sync.Mutex
	entries map[string]models.VerificationEntry

	// FailFind makes Find return this error.
	FailFind error
}

func NewCodes() *Codes {
	return &Codes{entries: make(map[string]models.VerificationEntry)}
}

func (c *Codes) Replace(_ context.Context, entry *models.VerificationEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.ID] = *entry
	return nil
}

func (c *Codes) Find(_ context.Context, key string) (*models.VerificationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailFind != nil {
		return nil, c.FailFind
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &e, nil
}

// Get returns the stored entry for assertions.
func (c *Codes) Get(key string) (models.VerificationEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Codes) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Codes) IncrementAttempts(_ context.Context, key, issueID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.IssueID != issueID {
		return 0, repositories.ErrNotFound
	}
	e.Attempts++
	c.entries[key] = e
	return e.Attempts, nil
}

func (c *Codes) MarkVerified(_ context.Context, key, issueID, credentialID string, verifiedAt, expiresAt time.Time) (*models.VerificationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.IssueID != issueID || e.Verified {
		return nil, repositories.ErrNotFound
	}
	e.Verified = true
	e.VerifiedAt = &verifiedAt
	e.CredentialID = credentialID
	e.ExpiresAt = expiresAt
	c.entries[key] = e
	return &e, nil
}

func (c *Codes) Claim(_ context.Context, key, credentialID string, now time.Time) (*models.VerificationEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.Verified || e.CredentialID != credentialID || e.ExpiresAt.Before(now) {
		return nil, repositories.ErrNotFound
	}
	delete(c.entries, key)
	return &e, nil
}

func (c *Codes) Restore(_ context.Context, entry *models.VerificationEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[entry.ID]; ok {
		return nil
	}
	c.entries[entry.ID] = *entry
	return nil
}

func (c *Codes) Delete(_ context.Context, key, issueID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.IssueID == issueID {
		delete(c.entries, key)
	}
	return nil
}

// Sent is one captured delivery.
type Sent struct {
	Channel     models.Channel
	Destination string
	Code        string
}

// Sender captures codes instead of delivering them.
type Sender struct {
	mu   sync.Mutex
	sent []Sent

	// Fail makes SendCode return this error.
	Fail error
}

func (s *Sender) SendCode(_ context.Context, channel models.Channel, destination, code, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.sent = append(s.sent, Sent{Channel: channel, Destination: destination, Code: code})
	return nil
}

// Last returns the most recent delivery.
func (s *Sender) Last() (Sent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return Sent{}, false
	}
	return s.sent[len(s.sent)-1], true
}

func (s *Sender) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// Images is an in-memory image store.
type Images struct {
	mu       sync.Mutex
	stored   map[string][]byte
	Released []string

	// FailRelease makes Release return this error.
	FailRelease error
}

func NewImages() *Images {
	return &Images{stored: make(map[string][]byte)}
}

func (i *Images) Store(_ context.Context, filename string, data []byte) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ref := "/uploads/profiles/" + filename
	i.stored[ref] = data
	return ref, nil
}

func (i *Images) Release(_ context.Context, ref string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Released = append(i.Released, ref)
	if i.FailRelease != nil {
		return i.FailRelease
	}
	delete(i.stored, ref)
	return nil
}

// NoLimit allows every issuance.
type NoLimit struct{}

func (NoLimit) CheckAndIncrement(context.Context, string) error { return nil }

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
