// Package users reads the workshop user roster.
package users

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
)

// Options configures Load.
type Options struct {
	Logger zerolog.Logger
}

// Roster is an immutable snapshot of uzytkownicy.json.
type Roster struct {
	users   []models.User
	byLogin map[string]int
}

// Load reads the roster at path. A missing file yields an empty roster.
// Entries failing validation and duplicate logins are skipped with a warning.
func Load(path string, opts Options) (*Roster, error) {
	log := opts.Logger.With().Str("component", "users").Logger()

	raw, warning, err := jsonio.Load(path, func() []models.User { return nil })
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	if warning == jsonio.WarningCorrupt {
		log.Warn().Str("path", path).Msg("roster file is corrupt, no users loaded")
	}

	return build(raw, log), nil
}

// FromUsers builds a roster from in-memory entries, applying the same
// validation as Load.
func FromUsers(list []models.User) *Roster {
	return build(list, zerolog.Nop())
}

func build(list []models.User, log zerolog.Logger) *Roster {
	validate := validator.New()
	r := &Roster{byLogin: map[string]int{}}

	for i, u := range list {
		u.Login = strings.TrimSpace(u.Login)
		if err := validate.Struct(u); err != nil {
			log.Warn().Err(err).Int("index", i).Str("login", u.Login).Msg("skipping invalid roster entry")
			continue
		}
		if _, dup := r.byLogin[u.Login]; dup {
			log.Warn().Str("login", u.Login).Msg("skipping duplicate roster entry")
			continue
		}
		r.byLogin[u.Login] = len(r.users)
		r.users = append(r.users, u)
	}
	return r
}

// All returns every user in file order.
func (r *Roster) All() []models.User {
	return append([]models.User(nil), r.users...)
}

// Active returns active users sorted by display name.
func (r *Roster) Active() []models.User {
	var out []models.User
	for _, u := range r.users {
		if u.IsActive() {
			out = append(out, u)
		}
	}
	SortByName(out)
	return out
}

// Find returns the user with login.
func (r *Roster) Find(login string) (models.User, error) {
	i, ok := r.byLogin[strings.TrimSpace(login)]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", login, models.ErrNotFound)
	}
	return r.users[i], nil
}

// DisplayName returns the user's display name, or login when unknown.
func (r *Roster) DisplayName(login string) string {
	u, err := r.Find(login)
	if err != nil {
		return login
	}
	return u.DisplayName()
}

// CheckPIN reports whether pin matches an active user's PIN.
func (r *Roster) CheckPIN(login, pin string) bool {
	u, err := r.Find(login)
	if err != nil || !u.IsActive() || u.PIN == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.PIN), []byte(pin)) == 1
}

// ============================================================================
// SORTING
// ============================================================================

// SortByName sorts users by display name using Polish collation.
func SortByName(list []models.User) {
	c := collate.New(language.Polish, collate.IgnoreCase)
	sort.SliceStable(list, func(i, j int) bool {
		return c.CompareString(list[i].DisplayName(), list[j].DisplayName()) < 0
	})
}

// SortStrings sorts names using Polish collation.
func SortStrings(names []string) {
	c := collate.New(language.Polish, collate.IgnoreCase)
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}

// File is a roster source that re-reads the file on every call, so long
// running loops see edits made by other processes.
type File struct {
	Path   string
	Logger zerolog.Logger
}

// Active loads the roster and returns its active users. Load errors are
// logged and yield no users.
func (f File) Active() []models.User {
	r, err := Load(f.Path, Options{Logger: f.Logger})
	if err != nil {
		f.Logger.Warn().Err(err).Str("path", f.Path).Msg("roster unavailable")
		return nil
	}
	return r.Active()
}
