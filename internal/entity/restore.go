package entity

import "fmt"

// Restore methods rebuild a store from persisted records. They trust
// the caller to feed back exactly what a save wrote, in id order;
// duplicate ids or conflicting cells are defects, not validation
// failures.

// RestorePlayer reinserts a saved player.
func (s *Store) RestorePlayer(p *Player) {
	if s.players[p.ID] != nil {
		panic(fmt.Sprintf("BUG: restoring duplicate player %d", p.ID))
	}
	s.players[p.ID] = p
	s.playerOrder = append(s.playerOrder, p.ID)
	if p.ID > s.nextPlayerID {
		s.nextPlayerID = p.ID
	}
}

// RestoreUnit reinserts a saved unit and reindexes its cell.
func (s *Store) RestoreUnit(u *Unit) {
	if s.units[u.ID] != nil {
		panic(fmt.Sprintf("BUG: restoring duplicate unit %d", u.ID))
	}
	if cur, ok := s.unitByCell[u.Position]; ok {
		panic(fmt.Sprintf("BUG: units %d and %d restored onto (%d,%d)", cur, u.ID, u.Position.X, u.Position.Y))
	}
	s.units[u.ID] = u
	s.unitOrder = append(s.unitOrder, u.ID)
	s.unitByCell[u.Position] = u.ID
	if u.ID > s.nextUnitID {
		s.nextUnitID = u.ID
	}
}

// RestoreBuilding reinserts a saved building and reindexes its
// footprint.
func (s *Store) RestoreBuilding(b *Building) {
	if s.buildings[b.ID] != nil {
		panic(fmt.Sprintf("BUG: restoring duplicate building %d", b.ID))
	}
	s.indexBuilding(b)
	if b.ID > s.nextBuildingID {
		s.nextBuildingID = b.ID
	}
}
