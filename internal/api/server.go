// Package api serves game state over HTTP. GET endpoints are public
// read-only observation; POST endpoints require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gurulost/IsometricEmpires-sub000/internal/entity"
	"github.com/gurulost/IsometricEmpires-sub000/internal/game"
	"github.com/gurulost/IsometricEmpires-sub000/internal/persistence"
	"github.com/gurulost/IsometricEmpires-sub000/internal/telemetry"
	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// Server serves a running game over HTTP.
type Server struct {
	Game *game.Game
	DB   *persistence.DB // nil disables the event journal endpoint
	Port int

	// AdminKey is the bearer token for POST endpoints. Empty = POST
	// disabled.
	AdminKey string

	// Mu serializes handler reads against the turn driver's writes.
	// The driver write-locks around every command it issues.
	Mu *sync.RWMutex
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// The bulk map endpoint serializes every tile; cap how often one
	// client may pull it.
	mapLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/player/", s.handlePlayerDetail)
	mux.HandleFunc("/api/v1/units", s.handleUnits)
	mux.HandleFunc("/api/v1/settlements", s.handleSettlements)
	mux.HandleFunc("/api/v1/settlement/", s.handleSettlementDetail)
	mux.HandleFunc("/api/v1/map", RateLimitMiddleware(mapLimiter, s.handleBulkMap))
	mux.HandleFunc("/api/v1/map/", s.handleTileDetail)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/catalog", s.handleCatalog)

	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "journal", s.DB != nil)

	go func() {
		handler := corsMiddleware(traceMiddleware(mux))
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// traceMiddleware opens one span per request.
func traceMiddleware(next http.Handler) http.Handler {
	tracer := telemetry.Tracer("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "api.request")
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware adds CORS headers for allowed frontend origins. Set
// CORS_ORIGINS to a comma-separated list of extra origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries the admin token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no EMPIRES_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Game
	alive := 0
	for _, p := range g.Store.Players() {
		if !p.Eliminated {
			alive++
		}
	}

	status := map[string]any{
		"turn":          g.Turn,
		"max_turns":     g.MaxTurns,
		"phase":         game.PhaseName(g.Phase),
		"active_player": g.ActivePlayer().ID,
		"over":          g.Over,
		"draw":          g.Draw,
		"players":       len(g.Store.Players()),
		"alive":         alive,
		"units":         len(g.Store.Units()),
		"buildings":     len(g.Store.Buildings()),
		"map_width":     g.Store.Map.Width,
		"map_height":    g.Store.Map.Height,
	}
	if g.WinnerID != nil {
		status["winner"] = *g.WinnerID
	}
	writeJSON(w, status)
}

type playerSummary struct {
	ID               entity.PlayerID `json:"id"`
	Name             string          `json:"name"`
	FactionID        string          `json:"faction_id"`
	Eliminated       bool            `json:"eliminated"`
	Food             int             `json:"food"`
	Production       int             `json:"production"`
	Faith            int             `json:"faith"`
	Income           world.Yield     `json:"income"`
	ActiveResearch   string          `json:"active_research,omitempty"`
	ResearchProgress int             `json:"research_progress,omitempty"`
	ResearchedTechs  int             `json:"researched_techs"`
	Units            int             `json:"units"`
	Settlements      int             `json:"settlements"`
}

func (s *Server) playerSummary(p *entity.Player) playerSummary {
	return playerSummary{
		ID:               p.ID,
		Name:             p.Name,
		FactionID:        p.FactionID,
		Eliminated:       p.Eliminated,
		Food:             p.Food,
		Production:       p.Production,
		Faith:            p.Faith,
		Income:           p.Income,
		ActiveResearch:   p.ActiveResearch,
		ResearchProgress: p.ResearchProgress,
		ResearchedTechs:  len(p.ResearchedTechs),
		Units:            len(s.Game.Store.PlayerUnits(p.ID)),
		Settlements:      len(s.Game.Store.Settlements(p.ID)),
	}
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	players := s.Game.Store.Players()
	out := make([]playerSummary, 0, len(players))
	for _, p := range players {
		out = append(out, s.playerSummary(p))
	}
	writeJSON(w, out)
}

func (s *Server) handlePlayerDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	p := s.Game.Store.Player(id)
	if p == nil {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}

	researched := make([]string, 0, len(p.ResearchedTechs))
	for techID := range p.ResearchedTechs {
		researched = append(researched, techID)
	}

	available := []string{}
	for _, t := range s.Game.Research.Available(p) {
		available = append(available, t.ID)
	}

	unitIDs := []entity.UnitID{}
	for _, u := range s.Game.Store.PlayerUnits(p.ID) {
		unitIDs = append(unitIDs, u.ID)
	}
	settlementIDs := []entity.BuildingID{}
	for _, b := range s.Game.Store.Settlements(p.ID) {
		settlementIDs = append(settlementIDs, b.ID)
	}

	writeJSON(w, map[string]any{
		"player":          s.playerSummary(p),
		"researched":      researched,
		"available_techs": available,
		"unit_ids":        unitIDs,
		"settlement_ids":  settlementIDs,
	})
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	type unitEntry struct {
		ID           entity.UnitID   `json:"id"`
		PlayerID     entity.PlayerID `json:"player_id"`
		TypeID       string          `json:"type_id"`
		Name         string          `json:"name"`
		X            int             `json:"x"`
		Y            int             `json:"y"`
		Health       int             `json:"health"`
		MaxHealth    int             `json:"max_health"`
		MovementLeft int             `json:"movement_left"`
		HasActed     bool            `json:"has_acted"`
		State        string          `json:"state"`
	}

	units := s.Game.Store.Units()
	out := make([]unitEntry, 0, len(units))
	for _, u := range units {
		def := s.Game.Store.UnitDef(u)
		out = append(out, unitEntry{
			ID:           u.ID,
			PlayerID:     u.PlayerID,
			TypeID:       u.TypeID,
			Name:         def.Name,
			X:            u.Position.X,
			Y:            u.Position.Y,
			Health:       u.Health,
			MaxHealth:    def.MaxHealth,
			MovementLeft: u.MovementLeft,
			HasActed:     u.HasActed,
			State:        entity.UnitStateName(u.State),
		})
	}
	writeJSON(w, out)
}

type settlementSummary struct {
	ID         entity.BuildingID `json:"id"`
	PlayerID   entity.PlayerID   `json:"player_id"`
	Name       string            `json:"name"`
	X          int               `json:"x"`
	Y          int               `json:"y"`
	Population int               `json:"population"`
	FoodStock  int               `json:"food_stock"`
	Health     int               `json:"health"`
	State      string            `json:"state"`
	QueueLen   int               `json:"queue_len"`
}

func settlementEntry(b *entity.Building) settlementSummary {
	return settlementSummary{
		ID:         b.ID,
		PlayerID:   b.PlayerID,
		Name:       b.Name,
		X:          b.Base.X,
		Y:          b.Base.Y,
		Population: b.Population,
		FoodStock:  b.FoodStock,
		Health:     b.Health,
		State:      entity.BuildingStateName(b.State),
		QueueLen:   len(b.Queue),
	}
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	out := []settlementSummary{}
	for _, b := range s.Game.Store.Buildings() {
		if b.IsCity && b.Standing() {
			out = append(out, settlementEntry(b))
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleSettlementDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	b := s.Game.Store.Building(id)
	if b == nil || !b.IsCity {
		http.Error(w, "settlement not found", http.StatusNotFound)
		return
	}

	type memberEntry struct {
		ID     entity.BuildingID `json:"id"`
		TypeID string            `json:"type_id"`
		X      int               `json:"x"`
		Y      int               `json:"y"`
		State  string            `json:"state"`
		Health int               `json:"health"`
	}
	members := []memberEntry{}
	for _, m := range s.Game.Store.SettlementMembers(b.ID) {
		members = append(members, memberEntry{
			ID:     m.ID,
			TypeID: m.TypeID,
			X:      m.Base.X,
			Y:      m.Base.Y,
			State:  entity.BuildingStateName(m.State),
			Health: m.Health,
		})
	}

	writeJSON(w, map[string]any{
		"settlement":       settlementEntry(b),
		"income":           s.Game.Economy.Income(b),
		"growth_threshold": b.GrowthThreshold(),
		"max_population":   b.MaxPopulation,
		"queue":            b.Queue,
		"claimed_tiles":    b.ClaimedTiles,
		"worked_tiles":     b.WorkedTiles,
		"buildings":        members,
	})
}

// handleBulkMap returns every tile for a map renderer.
func (s *Server) handleBulkMap(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	type tileEntry struct {
		X              int     `json:"x"`
		Y              int     `json:"y"`
		Terrain        uint8   `json:"terrain"`
		Elevation      float64 `json:"elevation"`
		Resource       uint8   `json:"resource,omitempty"`
		ResourceAmount int     `json:"resource_amount,omitempty"`
		Improvement    uint8   `json:"improvement,omitempty"`
		OwnerID        *uint64 `json:"owner_id,omitempty"`
	}

	m := s.Game.Store.Map
	tiles := make([]tileEntry, 0, len(m.Tiles))
	for _, t := range m.Tiles {
		tiles = append(tiles, tileEntry{
			X:              t.Cell.X,
			Y:              t.Cell.Y,
			Terrain:        uint8(t.Terrain),
			Elevation:      t.Elevation,
			Resource:       uint8(t.Resource),
			ResourceAmount: t.ResourceAmount,
			Improvement:    uint8(t.Improvement),
			OwnerID:        t.OwnerID,
		})
	}

	settlements := []settlementSummary{}
	for _, b := range s.Game.Store.Buildings() {
		if b.IsCity && b.Standing() {
			settlements = append(settlements, settlementEntry(b))
		}
	}

	writeJSON(w, map[string]any{
		"width":       m.Width,
		"height":      m.Height,
		"tiles":       tiles,
		"settlements": settlements,
	})
}

// handleTileDetail serves GET /api/v1/map/:x/:y.
func (s *Server) handleTileDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 6 {
		http.Error(w, "missing tile coordinates", http.StatusBadRequest)
		return
	}
	x, errX := strconv.Atoi(parts[4])
	y, errY := strconv.Atoi(parts[5])
	if errX != nil || errY != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	t := s.Game.Store.Map.TileAt(x, y)
	if t == nil {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}

	detail := map[string]any{
		"tile":    t,
		"terrain": world.TerrainName(t.Terrain),
		"yields":  t.Yields(),
	}
	if u := s.Game.Store.UnitAt(t.Cell); u != nil {
		detail["unit_id"] = u.ID
	}
	if b := s.Game.Store.BuildingAt(t.Cell); b != nil {
		detail["building_id"] = b.ID
	}
	writeJSON(w, detail)
}

// handleEvents serves the persisted event journal, newest first.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "event journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	rows, err := s.DB.RecentEvents(limit)
	if err != nil {
		http.Error(w, "journal read failed", http.StatusInternalServerError)
		return
	}

	type eventEntry struct {
		ID      int64           `json:"id"`
		Turn    int             `json:"turn"`
		Kind    string          `json:"kind"`
		Payload json.RawMessage `json:"payload"`
	}
	out := make([]eventEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventEntry{
			ID:      row.ID,
			Turn:    row.Turn,
			Kind:    row.Kind,
			Payload: json.RawMessage(row.Payload),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c := s.Game.Store.Catalog
	writeJSON(w, map[string]any{
		"units":     c.Units.All(),
		"buildings": c.Buildings.All(),
		"techs":     c.Techs.All(),
		"factions":  c.Factions.All(),
	})
}

// handleSave forces a full save of the running game.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "no save database", http.StatusServiceUnavailable)
		return
	}

	s.Mu.RLock()
	err := s.DB.SaveGame(s.Game)
	turn := s.Game.Turn
	s.Mu.RUnlock()

	if err != nil {
		slog.Error("api save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true, "turn": turn})
}

// pathID extracts the trailing numeric id from /api/v1/<kind>/<id>.
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 5 {
		http.Error(w, "missing id", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
