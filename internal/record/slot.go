package record

// Slot is the content of one table page: a live row or a tombstone.
type Slot interface {
	TableName() string
	isSlot()
}

// LiveRow is a row owned by Table.
type LiveRow struct {
	Table string
	Row   Row
}

// Tombstone marks a deleted row of Table.
type Tombstone struct {
	Table string
}

func (s LiveRow) TableName() string   { return s.Table }
func (s Tombstone) TableName() string { return s.Table }

func (LiveRow) isSlot()   {}
func (Tombstone) isSlot() {}
