package domain

import "math/rand"

// MinBoardLength is the smallest board that still contains every tile type.
const MinBoardLength = 8

// Tile is a single board cell. Kind is only set on event tiles.
type Tile struct {
	Index int       `json:"index"`
	Type  TileType  `json:"type"`
	Kind  EventKind `json:"kind,omitempty"`
}

// Board is an ordered, fixed-length ring of tiles.
type Board struct {
	Tiles []Tile
}

// Len returns the number of tiles on the board.
func (b *Board) Len() int {
	return len(b.Tiles)
}

// TileAt returns the tile at the given index, wrapping around the ring.
func (b *Board) TileAt(index int) Tile {
	n := len(b.Tiles)
	return b.Tiles[((index%n)+n)%n]
}

// Advance returns the index reached after moving steps tiles forward from index.
func (b *Board) Advance(index, steps int) int {
	n := len(b.Tiles)
	return (((index + steps) % n) + n) % n
}

// NewBoard generates a board of the given length.
// Tile types follow a fixed 8-tile cycle after the start tile; event kinds are
// dealt to event tiles from a shuffled rotation so every kind appears.
func NewBoard(length int, rng *rand.Rand) *Board {
	if length < MinBoardLength {
		length = MinBoardLength
	}

	kinds := append([]EventKind{}, EventKinds...)
	if rng != nil {
		rng.Shuffle(len(kinds), func(i, j int) { kinds[i], kinds[j] = kinds[j], kinds[i] })
	}

	tiles := make([]Tile, length)
	dealt := 0
	for i := range tiles {
		t := Tile{Index: i, Type: tileTypeAt(i)}
		if t.Type == TileEvent {
			t.Kind = kinds[dealt%len(kinds)]
			dealt++
		}
		tiles[i] = t
	}
	return &Board{Tiles: tiles}
}

func tileTypeAt(i int) TileType {
	switch {
	case i == 0:
		return TileStart
	case i%8 == 7:
		return TileChance
	case i%8 == 3:
		return TileDestiny
	case i%4 == 2:
		return TileSafe
	default:
		return TileEvent
	}
}
