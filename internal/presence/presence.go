// Package presence records heartbeats of logged-in users and decides who is
// online.
package presence

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/scheduler"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

const (
	// DefaultWindow is how long a heartbeat keeps a user online.
	DefaultWindow = 120 * time.Second

	// MinInterval is the shortest heartbeat period.
	MinInterval = 5 * time.Second

	heartbeatTask = "presence.heartbeat"
)

// Options configures a Service.
type Options struct {
	Path   string
	Window time.Duration
	Host   string
	Clock  util.Clock
	Logger zerolog.Logger
}

type session struct {
	login, role, machine string
}

// Service reads and writes presence.json.
type Service struct {
	path   string
	window time.Duration
	host   string
	clock  util.Clock
	log    zerolog.Logger

	mu   sync.Mutex
	exit *session
	task *scheduler.Task
}

// New creates a presence service.
func New(opts Options) *Service {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "localhost"
	}

	return &Service{
		path:   opts.Path,
		window: window,
		host:   host,
		clock:  util.OrSystem(opts.Clock),
		log:    opts.Logger.With().Str("component", "presence").Logger(),
	}
}

// Host returns the machine name used when none is given.
func (s *Service) Host() string {
	return s.host
}

// Window returns the online window.
func (s *Service) Window() time.Duration {
	return s.window
}

func emptyFile() map[string]models.PresenceRecord {
	return map[string]models.PresenceRecord{}
}

// Heartbeat writes the record for login@machine. An empty machine means
// this host.
func (s *Service) Heartbeat(login, role, machine string, logout bool) error {
	login = strings.TrimSpace(login)
	if login == "" {
		return fmt.Errorf("%w: login is required", models.ErrValidation)
	}
	if machine == "" {
		machine = s.host
	}

	rec := models.PresenceRecord{
		Login:   login,
		Role:    role,
		Machine: machine,
		TS:      util.FormatISO8601(s.clock.Now()),
		Logout:  logout,
	}

	err := jsonio.Update(s.path, emptyFile, func(m *map[string]models.PresenceRecord, warning string) error {
		if warning == jsonio.WarningCorrupt {
			s.log.Warn().Str("path", s.path).Msg("presence file is corrupt, starting fresh")
		}
		if *m == nil {
			*m = emptyFile()
		}
		(*m)[models.PresenceKey(login, machine)] = rec
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing heartbeat: %w", err)
	}
	return nil
}

// EndSession marks login@machine as logged out.
func (s *Service) EndSession(login, role, machine string) error {
	return s.Heartbeat(login, role, machine, true)
}

// StartHeartbeat beats immediately and then every interval (at least
// MinInterval) on sched. It also registers the exit hook run by Shutdown;
// calling it again replaces both the task and the hook.
func (s *Service) StartHeartbeat(ctx context.Context, sched *scheduler.Scheduler, login, role string, interval time.Duration) (*scheduler.Task, error) {
	if strings.TrimSpace(login) == "" {
		return nil, fmt.Errorf("%w: login is required", models.ErrValidation)
	}
	interval = max(interval, MinInterval)

	task, err := sched.EveryNow(ctx, heartbeatTask, interval, func(context.Context) error {
		return s.Heartbeat(login, role, "", false)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.exit = &session{login: login, role: role, machine: s.host}
	s.task = task
	s.mu.Unlock()

	s.log.Info().Str("login", login).Dur("interval", interval).Msg("heartbeat started")
	return task, nil
}

// Shutdown stops the heartbeat and ends the registered session. Later calls
// do nothing.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	hook, task := s.exit, s.task
	s.exit, s.task = nil, nil
	s.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	if hook == nil {
		return nil
	}
	if err := s.EndSession(hook.login, hook.role, hook.machine); err != nil {
		return err
	}
	s.log.Info().Str("login", hook.login).Msg("session ended")
	return nil
}

// ============================================================================
// READ SIDE
// ============================================================================

// Read returns every record with its liveness. maxAge overrides the online
// window when positive.
func (s *Service) Read(maxAge time.Duration) ([]models.PresenceStatus, error) {
	window := s.window
	if maxAge > 0 {
		window = maxAge
	}

	records, warning, err := jsonio.Load(s.path, emptyFile)
	if err != nil {
		return nil, fmt.Errorf("reading presence: %w", err)
	}
	if warning == jsonio.WarningCorrupt {
		s.log.Warn().Str("path", s.path).Msg("presence file is corrupt")
	}

	now := s.clock.Now()
	out := make([]models.PresenceStatus, 0, len(records))
	for key, rec := range records {
		if rec.Login == "" {
			rec.Login, _, _ = strings.Cut(key, "@")
		}
		st := models.PresenceStatus{
			Login:      rec.Login,
			Role:       rec.Role,
			Machine:    rec.Machine,
			LastTS:     rec.TS,
			SecondsAgo: -1,
			Logout:     rec.Logout,
			Online:     rec.IsOnline(now, window),
		}
		if age, ok := rec.Age(now); ok {
			st.SecondsAgo = max(int(age/time.Second), 0)
		}
		out = append(out, st)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Login != out[j].Login {
			return out[i].Login < out[j].Login
		}
		return out[i].Machine < out[j].Machine
	})
	return out, nil
}

// OnlineLogins returns the set of logins online on any machine.
func (s *Service) OnlineLogins() (map[string]bool, error) {
	statuses, err := s.Read(0)
	if err != nil {
		return nil, err
	}
	online := map[string]bool{}
	for _, st := range statuses {
		if st.Online {
			online[st.Login] = true
		}
	}
	return online, nil
}

// IsOnline reports whether login is online on any machine.
func (s *Service) IsOnline(login string) (bool, error) {
	online, err := s.OnlineLogins()
	if err != nil {
		return false, err
	}
	return online[login], nil
}
