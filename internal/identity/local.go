package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

// DefaultTokenTTL is the credential lifetime when none is configured.
const DefaultTokenTTL = time.Hour

// ErrNoCredential is returned when claims are requested for an identity that
// is not the signed-in one.
var ErrNoCredential = errors.New("no credential for identity")

// ErrStaleCredential is returned for a well-formed credential that does not
// belong to the current sign-in.
var ErrStaleCredential = errors.New("credential does not belong to the current sign-in")

// Local is an identity provider backed by an operator directory. Sign-in
// checks a bcrypt hash and mints an HS256 credential carrying the
// operator's directory claims.
type Local struct {
	secret []byte
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time

	mu          sync.Mutex
	dir         *Directory
	current     *auth.Identity
	sid         string // current sign-in, empty when signed out
	token       string
	subscribers map[int]func(*auth.Identity)
	nextSub     int
}

// NewLocal creates a provider over dir. secret signs the credentials.
func NewLocal(dir *Directory, secret []byte, ttl time.Duration, log logger.Logger) *Local {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if dir == nil {
		dir, _ = NewDirectory(nil)
	}
	return &Local{
		secret:      secret,
		ttl:         ttl,
		logger:      log,
		now:         time.Now,
		dir:         dir,
		subscribers: make(map[int]func(*auth.Identity)),
	}
}

func (p *Local) SignIn(_ context.Context, email, password string) (*auth.Identity, error) {
	p.mu.Lock()
	op, ok := p.dir.ByEmail(email)
	p.mu.Unlock()

	if !ok {
		p.logger.Warn("sign-in rejected: unknown operator", logger.String("email", email))
		return nil, auth.ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		p.logger.Warn("sign-in rejected: bad password", logger.String("uid", op.UID))
		return nil, auth.ErrBadCredentials
	}

	sid := uuid.NewString()
	token, err := mintToken(p.secret, op, sid, p.now(), p.ttl)
	if err != nil {
		return nil, err
	}

	id := &auth.Identity{Subject: op.UID, Email: op.Email}
	p.mu.Lock()
	p.current = id
	p.sid = sid
	p.token = token
	p.mu.Unlock()

	p.logger.Info("operator signed in", logger.String("uid", op.UID))
	p.emit(id)
	return &auth.Identity{Subject: id.Subject, Email: id.Email}, nil
}

func (p *Local) SignOut(context.Context) error {
	p.mu.Lock()
	was := p.current
	p.current = nil
	p.sid = ""
	p.token = ""
	p.mu.Unlock()

	if was != nil {
		p.logger.Info("operator signed out", logger.String("uid", was.Subject))
	}
	p.emit(nil)
	return nil
}

func (p *Local) Subscribe(fn func(*auth.Identity)) func() {
	p.mu.Lock()
	key := p.nextSub
	p.nextSub++
	p.subscribers[key] = fn
	current := p.current
	p.mu.Unlock()

	fn(current)

	return func() {
		p.mu.Lock()
		delete(p.subscribers, key)
		p.mu.Unlock()
	}
}

// RefreshClaims returns the verified claims of the signed-in operator's
// credential. When force is set or the credential expired, a new one is
// minted from the current directory entry first.
func (p *Local) RefreshClaims(_ context.Context, id auth.Identity, force bool) (auth.Claims, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil || p.current.Subject != id.Subject {
		return nil, fmt.Errorf("%w: %s", ErrNoCredential, id.Subject)
	}

	claims, err := parseToken(p.secret, p.token, p.now)
	if force || err != nil {
		op, ok := p.dir.ByUID(id.Subject)
		if !ok {
			return nil, fmt.Errorf("operator %s is no longer in the directory", id.Subject)
		}
		token, err := mintToken(p.secret, op, p.sid, p.now(), p.ttl)
		if err != nil {
			return nil, err
		}
		p.token = token
		if claims, err = parseToken(p.secret, token, p.now); err != nil {
			return nil, err
		}
	}

	out := make(auth.Claims, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return out, nil
}

// ReplaceDirectory swaps the operator directory. A signed-in operator that
// disappeared from the new directory is signed out.
func (p *Local) ReplaceDirectory(dir *Directory) {
	p.mu.Lock()
	p.dir = dir
	var dropped *auth.Identity
	if p.current != nil {
		if _, ok := dir.ByUID(p.current.Subject); !ok {
			dropped = p.current
			p.current = nil
			p.sid = ""
			p.token = ""
		}
	}
	p.mu.Unlock()

	p.logger.Info("operator directory replaced", logger.Int("operators", dir.Len()))
	if dropped != nil {
		p.logger.Warn("signed-in operator removed from directory, signing out",
			logger.String("uid", dropped.Subject))
		p.emit(nil)
	}
}

// Credential returns the credential minted by the current sign-in, empty
// when nobody is signed in.
func (p *Local) Credential() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// VerifyCredential checks signature, issuer and expiry of token and that it
// was minted for the current sign-in. Credentials from an earlier sign-in
// of the same operator are rejected.
func (p *Local) VerifyCredential(token string) (auth.Identity, error) {
	claims, err := parseToken(p.secret, token, p.now)
	if err != nil {
		return auth.Identity{}, err
	}
	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.sid == "" || sid != p.sid || sub != p.current.Subject {
		return auth.Identity{}, ErrStaleCredential
	}
	return *p.current, nil
}

// Operators returns the number of enabled operators.
func (p *Local) Operators() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dir.Len()
}

func (p *Local) emit(id *auth.Identity) {
	p.mu.Lock()
	subs := make([]func(*auth.Identity), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}

// HashPassword returns a bcrypt hash suitable for the directory file.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}
