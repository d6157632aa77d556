package lobby

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"partyhub/internal/domain"
	"partyhub/internal/logger"

	"github.com/google/uuid"
)

// codeAlphabet skips 0/O and 1/I so codes survive being read out loud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Manager owns every lobby in the process plus the identity registry
// mapping player ids to lobby codes. All operations are safe for
// concurrent use; each takes the manager lock for its full duration so a
// mutation and its result are observed atomically.
type Manager struct {
	mu          sync.RWMutex
	lobbies     map[string]*domain.Lobby // code -> lobby
	playerLobby map[string]string        // player id -> code
	rng         *rand.Rand
	maxAge      time.Duration
}

// NewManager builds an empty registry. rng drives lobby code generation;
// pass a seeded source in tests for reproducible codes.
func NewManager(maxAge time.Duration, rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		lobbies:     make(map[string]*domain.Lobby),
		playerLobby: make(map[string]string),
		rng:         rng,
		maxAge:      maxAge,
	}
}

// Create makes a new lobby with the caller as its sole, host player.
func (m *Manager) Create(hostName string, gameType domain.GameType, maxPlayers int) (*domain.Lobby, *domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	host := &domain.Player{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(hostName),
		IsHost:    true,
		Ready:     true,
		Connected: true,
		JoinedAt:  time.Now(),
	}

	l := &domain.Lobby{
		ID:         uuid.NewString(),
		Code:       m.newCode(),
		GameType:   gameType,
		Status:     domain.StatusWaiting,
		Players:    []*domain.Player{host},
		MaxPlayers: maxPlayers,
		CreatedAt:  time.Now(),
	}

	m.lobbies[l.Code] = l
	m.playerLobby[host.ID] = l.Code

	logger.Info("lobby created", "code", l.Code, "game", gameType, "host", host.Name)
	return l.Clone(), host.Clone(), nil
}

// Join appends a new player to the lobby identified by code.
func (m *Manager) Join(code, name string) (*domain.Lobby, *domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lobbies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, nil, domain.ErrLobbyNotFound
	}
	if l.Status != domain.StatusWaiting {
		return nil, nil, domain.ErrGameInProgress
	}
	if len(l.Players) >= l.MaxPlayers {
		return nil, nil, domain.ErrLobbyFull
	}

	name = strings.TrimSpace(name)
	for _, p := range l.Players {
		if strings.EqualFold(p.Name, name) {
			return nil, nil, domain.ErrNameTaken
		}
	}

	p := &domain.Player{
		ID:        uuid.NewString(),
		Name:      name,
		Connected: true,
		JoinedAt:  time.Now(),
	}
	l.Players = append(l.Players, p)
	m.playerLobby[p.ID] = l.Code

	logger.Info("player joined", "code", l.Code, "player", p.Name, "count", len(l.Players))
	return l.Clone(), p.Clone(), nil
}

// Leave removes the player from their lobby. It reports whether the
// departing player held the host flag and returns the surviving lobby,
// or nil if the lobby emptied out and was deleted.
func (m *Manager) Leave(playerID string) (*domain.Lobby, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, p := m.locate(playerID)
	if p == nil {
		return nil, false, domain.ErrPlayerNotFound
	}

	wasHost := p.IsHost
	for i, cur := range l.Players {
		if cur.ID == playerID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			break
		}
	}
	delete(m.playerLobby, playerID)

	if len(l.Players) == 0 {
		delete(m.lobbies, l.Code)
		logger.Info("lobby disbanded", "code", l.Code)
		return nil, wasHost, nil
	}

	// Host passes to the earliest remaining joiner, which is the head of
	// the ordered player list.
	if wasHost {
		l.Players[0].IsHost = true
	}
	return l.Clone(), wasHost, nil
}

// UpdatePlayer applies the caller-editable subset of player fields.
func (m *Manager) UpdatePlayer(playerID string, upd domain.PlayerUpdate) (*domain.Lobby, *domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, p := m.locate(playerID)
	if p == nil {
		return nil, nil, domain.ErrPlayerNotFound
	}
	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name != "" {
			p.Name = name
		}
	}
	return l.Clone(), p.Clone(), nil
}

// ToggleReady flips the player's ready flag.
func (m *Manager) ToggleReady(playerID string) (*domain.Lobby, *domain.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, p := m.locate(playerID)
	if p == nil {
		return nil, nil, domain.ErrPlayerNotFound
	}
	p.Ready = !p.Ready
	return l.Clone(), p.Clone(), nil
}

// SetConnection records transport-level connect/disconnect bookkeeping.
// Unknown players are not an error here: the disconnect may race a leave.
func (m *Manager) SetConnection(playerID string, connected bool) *domain.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, p := m.locate(playerID)
	if p == nil {
		return nil
	}
	p.Connected = connected
	return l.Clone()
}

// Start moves the caller's lobby from waiting to starting and stamps the
// start time. Only the host may start, everyone must be ready, and the
// roster must meet the minimum.
func (m *Manager) Start(playerID string) (*domain.Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, p := m.locate(playerID)
	if p == nil {
		return nil, domain.ErrLobbyNotFound
	}
	if !p.IsHost {
		return nil, domain.ErrNotHost
	}
	if l.Status != domain.StatusWaiting {
		return nil, domain.ErrGameInProgress
	}
	if len(l.Players) < domain.MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}
	for _, cur := range l.Players {
		if !cur.Ready {
			return nil, domain.ErrNotAllReady
		}
	}

	now := time.Now()
	l.Status = domain.StatusStarting
	l.StartedAt = &now
	logger.Info("game starting", "code", l.Code, "game", l.GameType, "players", len(l.Players))
	return l.Clone(), nil
}

// SetStatus updates lobby status by code. Used by the router when the
// engine goes live or finishes.
func (m *Manager) SetStatus(code string, status domain.LobbyStatus) *domain.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lobbies[code]
	if !ok {
		return nil
	}
	l.Status = status
	return l.Clone()
}

// ByPlayer resolves a player id to its lobby.
func (m *Manager) ByPlayer(playerID string) (*domain.Lobby, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	code, ok := m.playerLobby[playerID]
	if !ok {
		return nil, false
	}
	l, ok := m.lobbies[code]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// ByCode resolves a lobby code.
func (m *Manager) ByCode(code string) (*domain.Lobby, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lobbies[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Roster returns a deep copy of the lobby's player list, safe to read
// and marshal while other operations mutate the lobby.
func (m *Manager) Roster(code string) []*domain.Player {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.lobbies[code]
	if !ok {
		return nil
	}
	out := make([]*domain.Player, len(l.Players))
	for i, p := range l.Players {
		out[i] = p.Clone()
	}
	return out
}

// PlayerConnected reports the player's connection flag and whether the
// identity is tracked at all.
func (m *Manager) PlayerConnected(playerID string) (connected, tracked bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, p := m.locate(playerID)
	if l == nil || p == nil {
		return false, false
	}
	return p.Connected, true
}

// ReclaimIdle removes lobbies past the configured age or with zero
// connected players, together with their identity registrations. It
// returns the removed lobbies so callers can tear down any attached
// engines and notify stragglers. Running it twice back to back removes
// nothing the second time.
func (m *Manager) ReclaimIdle() []*domain.Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var removed []*domain.Lobby
	for code, l := range m.lobbies {
		if now.Sub(l.CreatedAt) <= m.maxAge && l.ConnectedCount() > 0 {
			continue
		}
		for _, p := range l.Players {
			delete(m.playerLobby, p.ID)
		}
		delete(m.lobbies, code)
		removed = append(removed, l)
		logger.Info("reclaimed idle lobby", "code", code, "age", now.Sub(l.CreatedAt))
	}
	return removed
}

// Count returns the number of live lobbies.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lobbies)
}

// locate finds a player and their lobby; callers hold the lock.
func (m *Manager) locate(playerID string) (*domain.Lobby, *domain.Player) {
	code, ok := m.playerLobby[playerID]
	if !ok {
		return nil, nil
	}
	l, ok := m.lobbies[code]
	if !ok {
		return nil, nil
	}
	return l, l.Player(playerID)
}

func (m *Manager) newCode() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[m.rng.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := m.lobbies[code]; !taken {
			return code
		}
	}
}
