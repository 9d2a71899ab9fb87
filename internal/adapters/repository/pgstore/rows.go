package pgstore

import (
	"time"

	"github.com/okian/stride/internal/domain/model"
)

type runRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	AthleteID string    `gorm:"type:varchar(64);index:idx_runs_athlete_status,priority:1;not null"`
	Status    string    `gorm:"type:varchar(16);index:idx_runs_athlete_status,priority:2;not null"`
	Distance  float64   `gorm:"not null;default:0"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (runRow) TableName() string { return "runs" }

func (r runRow) toModel() model.Run {
	return model.Run{
		ID:        r.ID,
		AthleteID: r.AthleteID,
		Status:    model.RunStatus(r.Status),
		Distance:  r.Distance,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

// Seq is a bigserial filled by the database and returned on insert.
type positionRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	RunID     string    `gorm:"type:varchar(64);index;not null"`
	Latitude  float64   `gorm:"not null"`
	Longitude float64   `gorm:"not null"`
	Timestamp time.Time `gorm:"not null"`
	Seq       int64     `gorm:"autoIncrement;uniqueIndex"`
}

func (positionRow) TableName() string { return "positions" }

func (p positionRow) toModel() model.Position {
	return model.Position{
		ID:        p.ID,
		RunID:     p.RunID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
		Seq:       p.Seq,
	}
}

type collectibleRow struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	Name       string `gorm:"not null"`
	UID        string `gorm:"column:uid;type:varchar(128);uniqueIndex;not null"`
	Latitude   float64
	Longitude  float64
	PictureRef string    `gorm:"type:text"`
	Value      int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

func (collectibleRow) TableName() string { return "collectibles" }

func (c collectibleRow) toModel() model.CollectibleItem {
	return model.CollectibleItem{
		ID:         c.ID,
		Name:       c.Name,
		UID:        c.UID,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		PictureRef: c.PictureRef,
		Value:      c.Value,
	}
}

// collectorRow is the item-athlete discovery ledger; the composite primary
// key makes each pair unique.
type collectorRow struct {
	ItemID    string    `gorm:"primaryKey;type:varchar(64)"`
	AthleteID string    `gorm:"primaryKey;type:varchar(64);index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (collectorRow) TableName() string { return "collectible_collectors" }

type challengeRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	AthleteID string    `gorm:"type:varchar(64);not null;index:idx_challenge_athlete_name,unique,priority:1"`
	FullName  string    `gorm:"not null;index:idx_challenge_athlete_name,unique,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (challengeRow) TableName() string { return "challenges" }

func (c challengeRow) toModel() model.Challenge {
	return model.Challenge{ID: c.ID, FullName: c.FullName, AthleteID: c.AthleteID}
}

type athleteRow struct {
	ID       string `gorm:"primaryKey;type:varchar(64)"`
	Username string `gorm:"not null"`
	// UsernameKey is the lower-cased username; uniqueness is case-insensitive.
	UsernameKey string    `gorm:"uniqueIndex;not null"`
	FirstName   string    `gorm:"index"`
	LastName    string    `gorm:"index"`
	IsStaff     bool      `gorm:"not null;default:false"`
	DateJoined  time.Time `gorm:"index"`
}

func (athleteRow) TableName() string { return "athletes" }

func (a athleteRow) toModel() model.Athlete {
	return model.Athlete{
		ID:         a.ID,
		Username:   a.Username,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		IsStaff:    a.IsStaff,
		DateJoined: a.DateJoined,
	}
}

type athleteInfoRow struct {
	AthleteID string `gorm:"primaryKey;type:varchar(64)"`
	Goals     string `gorm:"type:text"`
	Weight    *int
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (athleteInfoRow) TableName() string { return "athlete_infos" }

func (i athleteInfoRow) toModel() model.AthleteInfo {
	return model.AthleteInfo{AthleteID: i.AthleteID, Goals: i.Goals, Weight: i.Weight}
}

// migrated lists every row type, in dependency order.
func migrated() []any {
	return []any{
		&athleteRow{},
		&athleteInfoRow{},
		&runRow{},
		&positionRow{},
		&collectibleRow{},
		&collectorRow{},
		&challengeRow{},
	}
}
