package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Shayennn/ptm-noti/internal/domain/ticket"
	"github.com/Shayennn/ptm-noti/internal/utils"
)

// TicketRepository archives processed tickets in Postgres. The archive
// is a side sink for querying and the status API; the state file stays
// authoritative for de-duplication.
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

type ProcessedTicket struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	TicketNo      string         `gorm:"not null;uniqueIndex" json:"ticket_no"`
	DateHappen    *time.Time     `json:"date_happen,omitempty"`
	FineAmount    *string        `json:"fine_amount,omitempty"`
	LicensePlate  *string        `json:"license_plate,omitempty"`
	Location      *string        `json:"location,omitempty"`
	Offense       *string        `json:"offense,omitempty"`
	PaidStatus    *string        `json:"paid_status,omitempty"`
	LimitSpeed    *string        `json:"limit_speed,omitempty"`
	Speed         *string        `json:"speed,omitempty"`
	Lane          *string        `json:"lane,omitempty"`
	OrderDivision *string        `json:"order_division,omitempty"`
	OrderName     *string        `json:"order_name,omitempty"`
	ImageCount    int            `gorm:"not null" json:"image_count"`
	ImageFiles    datatypes.JSON `gorm:"type:jsonb" json:"image_files,omitempty"`
	RawDetail     datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
}

// SaveProcessed records one processed ticket with its stored image
// filenames and the raw detail payload. A ticket number already
// archived is left untouched.
func (r *TicketRepository) SaveProcessed(ctx context.Context, info ticket.Info, images []string, rawDetail []byte) error {
	var existing ProcessedTicket
	err := r.db.WithContext(ctx).Where("ticket_no = ?", info.TicketNo).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	row := ProcessedTicket{
		TicketNo:      info.TicketNo,
		FineAmount:    info.FineAmount,
		LicensePlate:  info.LicensePlate,
		Location:      info.Location,
		Offense:       info.Offense,
		PaidStatus:    info.PaidStatus,
		LimitSpeed:    info.LimitSpeed,
		Speed:         info.Speed,
		Lane:          info.Lane,
		OrderDivision: info.OrderDivision,
		OrderName:     info.OrderName,
		ImageCount:    len(images),
		RawDetail:     rawDetail,
		CreatedAt:     time.Now(),
	}

	if t, err := utils.ParseDateDMY(info.DateHappen); err == nil {
		row.DateHappen = &t
	}
	if len(images) > 0 {
		if encoded, err := json.Marshal(images); err == nil {
			row.ImageFiles = encoded
		}
	}

	return r.db.WithContext(ctx).Create(&row).Error
}

// ListProcessed returns archived tickets, newest first.
func (r *TicketRepository) ListProcessed(ctx context.Context, limit, offset int) ([]ProcessedTicket, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var rows []ProcessedTicket
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

// CountProcessed returns the number of archived tickets.
func (r *TicketRepository) CountProcessed(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ProcessedTicket{}).Count(&count).Error
	return count, err
}
