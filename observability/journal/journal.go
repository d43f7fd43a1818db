package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vaultchain/core/types"
	"vaultchain/observability"
)

// ErrPathRequired is returned when the journal DSN is missing.
var ErrPathRequired = errors.New("journal path must be configured")

// Record is one journalled event row.
type Record struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Batch      uuid.UUID `gorm:"type:uuid;index"`
	Seq        uint64    `gorm:"uniqueIndex"`
	Type       string    `gorm:"size:64;index"`
	VaultID    uint64    `gorm:"index"`
	Owner      string    `gorm:"size:128;index"`
	Attributes string    `gorm:"type:text"`
	RecordedAt time.Time `gorm:"index"`
}

// Entry is a decoded journal row.
type Entry struct {
	ID         uuid.UUID
	Batch      uuid.UUID
	Seq        uint64
	Event      *types.Event
	RecordedAt time.Time
}

// Filter narrows History results. Zero fields match everything.
type Filter struct {
	Type    string
	VaultID uint64
	Owner   string
	// Limit keeps only the most recent entries when positive.
	Limit int
}

// Journal appends committed engine events to a sqlite database. Each
// Publish call is written as one batch. Sequence numbers are assigned inside
// the insert transaction, so several handles on one file stay ordered.
type Journal struct {
	db      *gorm.DB
	mu      sync.Mutex
	now     func() time.Time
	logger  *slog.Logger
	metrics *observability.EventMetrics
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := gorm.Open(sqlite.Open(trimmed), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle, migrating the schema if needed.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: database required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{
		db:     db,
		now:    time.Now,
		logger: slog.Default(),
	}, nil
}

// SetLogger replaces the logger used for write failures.
func (j *Journal) SetLogger(l *slog.Logger) {
	if j == nil || l == nil {
		return
	}
	j.logger = l
}

// SetMetrics attaches event counters.
func (j *Journal) SetMetrics(m *observability.EventMetrics) {
	if j == nil {
		return
	}
	j.metrics = m
}

// SetClock overrides the wall clock used to stamp rows.
func (j *Journal) SetClock(now func() time.Time) {
	if j == nil || now == nil {
		return
	}
	j.now = now
}

// Close releases the underlying connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Publish records evts. Failures are logged and counted; the engine has
// already committed by the time events arrive here.
func (j *Journal) Publish(evts []*types.Event) {
	if err := j.Append(context.Background(), evts); err != nil {
		j.logger.Error("journal append failed", slog.Int("events", len(evts)), slog.Any("error", err))
		j.metrics.RecordFailure()
	}
}

// Append writes evts as a single batch.
func (j *Journal) Append(ctx context.Context, evts []*types.Event) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal not configured")
	}
	if len(evts) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	batch := uuid.New()
	recordedAt := j.now().UTC()
	rows := make([]Record, 0, len(evts))
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		attrs, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("encode %s attributes: %w", evt.Type, err)
		}
		rows = append(rows, Record{
			ID:         uuid.New(),
			Batch:      batch,
			Type:       evt.Type,
			VaultID:    parseVaultID(evt.Attributes["vaultId"]),
			Owner:      evt.Attributes["owner"],
			Attributes: string(attrs),
			RecordedAt: recordedAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := lastSeq(tx)
		if err != nil {
			return err
		}
		for i := range rows {
			rows[i].Seq = last + uint64(i) + 1
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("insert journal batch: %w", err)
	}
	for _, row := range rows {
		j.metrics.RecordEvent(row.Type)
	}
	return nil
}

func lastSeq(tx *gorm.DB) (uint64, error) {
	var last int64
	if err := tx.Model(&Record{}).Select("COALESCE(MAX(seq), 0)").Row().Scan(&last); err != nil {
		return 0, fmt.Errorf("load journal sequence: %w", err)
	}
	return uint64(last), nil
}

// History returns matching entries in append order.
func (j *Journal) History(ctx context.Context, filter Filter) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal not configured")
	}
	query := j.db.WithContext(ctx).Model(&Record{})
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if filter.VaultID != 0 {
		query = query.Where("vault_id = ?", filter.VaultID)
	}
	if owner := strings.TrimSpace(filter.Owner); owner != "" {
		query = query.Where("owner = ?", owner)
	}
	query = query.Order("seq DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var rows []Record
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	entries := make([]Entry, len(rows))
	for i, row := range rows {
		attrs := map[string]string{}
		if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("decode journal row %d: %w", row.Seq, err)
		}
		entries[len(rows)-1-i] = Entry{
			ID:         row.ID,
			Batch:      row.Batch,
			Seq:        row.Seq,
			Event:      &types.Event{Type: row.Type, Attributes: attrs},
			RecordedAt: row.RecordedAt,
		}
	}
	return entries, nil
}

func parseVaultID(raw string) uint64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
