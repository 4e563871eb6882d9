package domain

import "time"

// PollCursor persists the last acknowledged Telegram update offset so that a
// restart resumes where the previous process stopped instead of replaying
// already-handled updates. There is exactly one row per bot identity.
type PollCursor struct {
	Bot       string    `gorm:"type:varchar(64);primaryKey"`
	Offset    int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (PollCursor) TableName() string { return "poll_cursors" }
