package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

const maxSearchRunes = 100

// SearchTerm reads ?search= for the admin list screens. Inner whitespace is
// folded and the result is capped at 100 runes.
func SearchTerm(r *http.Request) string {
	term := strings.Join(strings.Fields(r.URL.Query().Get("search")), " ")
	if runes := []rune(term); len(runes) > maxSearchRunes {
		term = string(runes[:maxSearchRunes])
	}
	return term
}

// QueryInt parses an optional integer query parameter within [lo, hi].
func QueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a whole number").
			WithDetails(map[string]string{key: "must be a whole number"})
	}
	if value < lo || value > hi {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" out of range").
			WithDetails(map[string]string{key: "must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi)})
	}
	return value, nil
}
