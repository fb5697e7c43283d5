package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"barberbook/database/store"
	"barberbook/models"
	"barberbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// DefaultIdentityProvider keeps accounts in the record store, issues JWT
// session tokens and tracks live tokens by hash in a cache so they can be
// revoked on sign-out.
type DefaultIdentityProvider struct {
	Store     store.RecordStore
	Customers ProfileCreator
	Tokens    utils.Cache
	Signer    *utils.TokenSigner
	TokenTTL  time.Duration
	Logger    *zap.Logger

	mu        sync.Mutex
	observers map[int]func(models.SessionChange)
	nextObs   int
}

func NewDefaultIdentityProvider(s store.RecordStore, customers ProfileCreator, tokens utils.Cache, signer *utils.TokenSigner, ttl time.Duration, logger *zap.Logger) *DefaultIdentityProvider {
	return &DefaultIdentityProvider{
		Store:     s,
		Customers: customers,
		Tokens:    tokens,
		Signer:    signer,
		TokenTTL:  ttl,
		Logger:    logger,
		observers: make(map[int]func(models.SessionChange)),
	}
}

func tokenKey(token string) string {
	return "authToken:" + utils.HashToken(token)
}

func (p *DefaultIdentityProvider) CurrentSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	accountID, err := p.Signer.ExtractIDFromToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAuthFailure, err)
	}

	stored, err := p.Tokens.Get(ctx, tokenKey(token))
	if errors.Is(err, utils.ErrCacheMiss) || (err == nil && stored != accountID) {
		return nil, fmt.Errorf("%w: session revoked or expired", models.ErrAuthFailure)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session token: %w", err)
	}

	doc, err := p.Store.Get(ctx, store.KindAccounts, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: account %s no longer exists", models.ErrAuthFailure, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	return sessionFromAccount(doc), nil
}

func (p *DefaultIdentityProvider) OnSessionChange(fn func(models.SessionChange)) func() {
	p.mu.Lock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, id)
			p.mu.Unlock()
		})
	}
}

func (p *DefaultIdentityProvider) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrInvalidInput)
	}

	doc, err := p.findAccount(ctx, email)
	if err != nil {
		p.Logger.Error("identity: failed to fetch account", zap.Error(err))
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrAuthFailure)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(doc.OptionalString("passwordHash")), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", models.ErrAuthFailure)
	}

	return p.issue(ctx, sessionFromAccount(doc))
}

func (p *DefaultIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)
	if _, err := mail.ParseAddress(email); err != nil || displayName == "" {
		return nil, fmt.Errorf("%w: a valid email and a name are required", models.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrInvalidInput, minPasswordLength)
	}

	existing, err := p.findAccount(ctx, email)
	if err != nil {
		p.Logger.Error("identity: failed to check for existing account", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	id := uuid.New().String()
	account := store.Document{
		"email":        email,
		"passwordHash": string(hash),
		"displayName":  displayName,
		"createdAt":    store.FormatTime(now),
	}
	if err := p.Store.Set(ctx, store.KindAccounts, id, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	// The account is usable without a profile; it resolves as anonymous
	// until one exists.
	profile := models.CustomerProfile{ID: id, Name: displayName, Email: email, CreatedAt: now}
	if err := p.Customers.Create(ctx, profile); err != nil {
		p.Logger.Error("identity: failed to create customer profile", zap.String("accountID", id), zap.Error(err))
	}

	return p.issue(ctx, &models.Session{ID: id, DisplayName: displayName, Email: email})
}

func (p *DefaultIdentityProvider) SignOut(ctx context.Context, token string) error {
	accountID, err := p.Signer.ExtractIDFromToken(token)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrAuthFailure, err)
	}
	if err := p.Tokens.Delete(ctx, tokenKey(token)); err != nil {
		return fmt.Errorf("failed to revoke session token: %w", err)
	}
	p.notify(models.SessionChange{SessionID: accountID})
	return nil
}

func (p *DefaultIdentityProvider) issue(ctx context.Context, session *models.Session) (*AuthResult, error) {
	token, err := p.Signer.GenerateToken(session.ID, session.Email, p.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	if err := p.Tokens.Set(ctx, tokenKey(token), session.ID, p.TokenTTL); err != nil {
		return nil, fmt.Errorf("failed to store session token: %w", err)
	}
	p.notify(models.SessionChange{SessionID: session.ID, Session: session})
	return &AuthResult{Session: *session, Token: token}, nil
}

func (p *DefaultIdentityProvider) notify(change models.SessionChange) {
	p.mu.Lock()
	fns := make([]func(models.SessionChange), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
}

func (p *DefaultIdentityProvider) findAccount(ctx context.Context, email string) (store.Document, error) {
	docs, err := p.Store.Query(ctx, store.KindAccounts, "email", email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

func sessionFromAccount(doc store.Document) *models.Session {
	return &models.Session{
		ID:          doc.ID(),
		DisplayName: doc.OptionalString("displayName"),
		Email:       doc.OptionalString("email"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
