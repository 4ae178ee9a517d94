package ambassadors

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

const (
	codePrefixLen   = 4
	codeSuffixLen   = 4
	codeAttempts    = 8
	codeFallback    = "PATA"
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeCacheTTL    = 2 * time.Minute
	codeCacheSweep  = 10 * time.Minute
	maxCodeInputLen = 32
)

var accentFolder = strings.NewReplacer(
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ü", "U", "Ñ", "N",
)

// codeCache memoizes public referral-code lookups. Misses are cached too so
// a widget typing a bad code does not hit the database on every keystroke.
type codeCache struct {
	entries *cache.Cache
}

func newCodeCache(ttl time.Duration) *codeCache {
	if ttl <= 0 {
		ttl = codeCacheTTL
	}
	return &codeCache{entries: cache.New(ttl, codeCacheSweep)}
}

func (c *codeCache) get(code string) (CodeLookup, bool) {
	raw, ok := c.entries.Get(code)
	if !ok {
		return CodeLookup{}, false
	}
	lookup, ok := raw.(CodeLookup)
	return lookup, ok
}

func (c *codeCache) set(lookup CodeLookup) {
	c.entries.Set(lookup.Code, lookup, cache.DefaultExpiration)
}

func (c *codeCache) forget(code *string) {
	if code == nil {
		return
	}
	c.entries.Delete(normalizeCode(*code))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// codePrefix takes the first letters of the first name, accents folded.
func codePrefix(firstName string) string {
	folded := accentFolder.Replace(strings.ToUpper(strings.TrimSpace(firstName)))
	var b strings.Builder
	for _, r := range folded {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
		if b.Len() == codePrefixLen {
			break
		}
	}
	if b.Len() < 2 {
		return codeFallback
	}
	return b.String()
}

func randomSuffix() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, codeSuffixLen)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// generateCode returns a referral code not yet used by any ambassador.
func (s *service) generateCode(ctx context.Context, repo Repository, firstName string) (string, error) {
	prefix := codePrefix(firstName)
	for attempt := 0; attempt < codeAttempts; attempt++ {
		suffix, err := s.randomSuffix()
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate referral code")
		}
		code := prefix + suffix
		taken, err := repo.ReferralCodeTaken(ctx, code)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check referral code")
		}
		if !taken {
			return code, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique referral code")
}

// ValidateReferralCode resolves a public code to an approved ambassador.
func (s *service) ValidateReferralCode(ctx context.Context, code string) (*CodeLookup, error) {
	code = normalizeCode(code)
	if code == "" || len(code) > maxCodeInputLen {
		return &CodeLookup{Code: code, Valid: false}, nil
	}
	if cached, ok := s.codes.get(code); ok {
		return &cached, nil
	}
	lookup := CodeLookup{Code: code}
	ambassador, err := s.repo.FindApprovedByCode(ctx, code)
	switch {
	case err == nil:
		lookup.Valid = true
		lookup.AmbassadorName = ambassador.DisplayName()
	case db.IsNotFound(err):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup referral code")
	}
	s.codes.set(lookup)
	return &lookup, nil
}
