package application

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/logiqbot/keypool/internal/domain"
	"github.com/logiqbot/keypool/internal/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type credKey struct {
	guildID int64
	name    string
}

type memCredentialRepo struct {
	mu    sync.Mutex
	creds map[credKey]domain.Credential
}

func newMemCredentialRepo(creds ...domain.Credential) *memCredentialRepo {
	repo := &memCredentialRepo{creds: make(map[credKey]domain.Credential)}
	for _, cred := range creds {
		repo.creds[credKey{cred.GuildID, cred.Name}] = cred
	}
	return repo
}

func (r *memCredentialRepo) List(_ context.Context, guildID int64) ([]domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Credential
	for key, cred := range r.creds {
		if key.guildID == guildID {
			out = append(out, cred)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCredentialRepo) GetByName(_ context.Context, guildID int64, name string) (domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[credKey{guildID, name}]
	if !ok {
		return domain.Credential{}, domain.ErrCredentialNotFound
	}
	return cred, nil
}

func (r *memCredentialRepo) Create(_ context.Context, cred domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := credKey{cred.GuildID, cred.Name}
	if _, ok := r.creds[key]; ok {
		return domain.ErrCredentialExists
	}
	r.creds[key] = cred
	return nil
}

func (r *memCredentialRepo) Update(_ context.Context, guildID int64, name string, update ports.CredentialUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := credKey{guildID, name}
	cred, ok := r.creds[key]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	update.Apply(&cred)
	r.creds[key] = cred
	return nil
}

func (r *memCredentialRepo) Delete(_ context.Context, guildID int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := credKey{guildID, name}
	if _, ok := r.creds[key]; !ok {
		return domain.ErrCredentialNotFound
	}
	delete(r.creds, key)
	return nil
}

type memSettingsRepo struct {
	mu       sync.Mutex
	settings map[int64]domain.GuildSettings
}

func newMemSettingsRepo(all ...domain.GuildSettings) *memSettingsRepo {
	repo := &memSettingsRepo{settings: make(map[int64]domain.GuildSettings)}
	for _, s := range all {
		repo.settings[s.GuildID] = s
	}
	return repo
}

func (r *memSettingsRepo) Get(_ context.Context, guildID int64) (domain.GuildSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[guildID]
	if !ok {
		return domain.GuildSettings{}, domain.ErrGuildSettingsNotFound
	}
	return s, nil
}

func (r *memSettingsRepo) Upsert(_ context.Context, s domain.GuildSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[s.GuildID] = s
	return nil
}

type sessionKey struct {
	guildID   int64
	userID    int64
	channelID int64
}

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[sessionKey]domain.Session
}

func newMemSessionRepo(all ...domain.Session) *memSessionRepo {
	repo := &memSessionRepo{sessions: make(map[sessionKey]domain.Session)}
	for _, s := range all {
		repo.sessions[sessionKey{s.GuildID, s.UserID, s.ChannelID}] = s
	}
	return repo
}

func (r *memSessionRepo) Get(_ context.Context, guildID, userID, channelID int64) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionKey{guildID, userID, channelID}]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (r *memSessionRepo) GetActive(_ context.Context, guildID, userID int64) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, s := range r.sessions {
		if key.guildID == guildID && key.userID == userID && s.Active {
			return s, nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *memSessionRepo) Upsert(_ context.Context, s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionKey{s.GuildID, s.UserID, s.ChannelID}] = s
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, guildID, userID, channelID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{guildID, userID, channelID}
	_, ok := r.sessions[key]
	delete(r.sessions, key)
	return ok, nil
}

// plainCipher prefixes instead of encrypting so tests can assert on stored
// payloads.
type plainCipher struct {
	encryptErr error
	decryptErr error
}

func (c plainCipher) Encrypt(plaintext string) (string, error) {
	if c.encryptErr != nil {
		return "", c.encryptErr
	}
	return "enc:" + plaintext, nil
}

func (c plainCipher) Decrypt(payload string) (string, error) {
	if c.decryptErr != nil {
		return "", c.decryptErr
	}
	if len(payload) < 4 || payload[:4] != "enc:" {
		return "", ports.ErrCiphertextInvalid
	}
	return payload[4:], nil
}

type sentRequest struct {
	Method string
	Path   string
	APIKey string
}

// scriptedClient returns queued responses in order, then repeats the last.
type scriptedClient struct {
	mu        sync.Mutex
	responses []ports.UpstreamResponse
	errs      []error
	sent      []sentRequest
}

func (c *scriptedClient) queue(resp ports.UpstreamResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, resp)
	c.errs = append(c.errs, nil)
}

func (c *scriptedClient) queueErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, ports.UpstreamResponse{})
	c.errs = append(c.errs, err)
}

func (c *scriptedClient) Send(_ context.Context, method, path, apiKey string, _ any) (ports.UpstreamResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentRequest{Method: method, Path: path, APIKey: apiKey})
	if len(c.responses) == 0 {
		return ports.UpstreamResponse{}, fmt.Errorf("no scripted response")
	}
	idx := len(c.sent) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], c.errs[idx]
}

type recordingNotifier struct {
	mu       sync.Mutex
	disabled []string
}

func (n *recordingNotifier) CredentialDisabled(_ context.Context, _ int64, name string, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disabled = append(n.disabled, name)
}

func okCompletion(text string) ports.UpstreamResponse {
	return ports.UpstreamResponse{
		StatusCode: 200,
		Body:       []byte(`{"choices":[{"message":{"role":"assistant","content":"` + text + `"}}]}`),
		Header:     http.Header{},
	}
}

func errorResponse(status int, message string, header http.Header) ports.UpstreamResponse {
	if header == nil {
		header = http.Header{}
	}
	return ports.UpstreamResponse{
		StatusCode: status,
		Body:       []byte(`{"error":{"message":"` + message + `"}}`),
		Header:     header,
	}
}
