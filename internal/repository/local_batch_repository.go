package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wisgen/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type batchRow struct {
	ID         string `gorm:"primaryKey"`
	Kind       string `gorm:"index"`
	Status     string
	Message    string
	ReportFile string
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time
	Entries    []batchEntryRow `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE"`
}

func (batchRow) TableName() string { return "ingest_batch" }

type batchEntryRow struct {
	ID                int64  `gorm:"primaryKey"`
	BatchID           string `gorm:"index"`
	Filename          string
	ProcessedFilename string
	Status            string
	Error             string
	Fallback          bool
}

func (batchEntryRow) TableName() string { return "ingest_batch_entry" }

// LocalBatchRepository stores batches in a SQLite file inside the workspace.
type LocalBatchRepository struct {
	db *gorm.DB
}

func OpenLocalBatchRepository(path string) (*LocalBatchRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}

	if err := db.AutoMigrate(&batchRow{}, &batchEntryRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate manifest: %w", err)
	}

	return &LocalBatchRepository{db: db}, nil
}

func (r *LocalBatchRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *LocalBatchRepository) SaveBatch(ctx context.Context, batch *model.Batch) error {
	row := toBatchRow(batch)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&batchRow{
			ID:         row.ID,
			Kind:       row.Kind,
			Status:     row.Status,
			Message:    row.Message,
			ReportFile: row.ReportFile,
			StartedAt:  row.StartedAt,
			FinishedAt: row.FinishedAt,
		}).Error; err != nil {
			return err
		}
		if len(row.Entries) == 0 {
			return nil
		}
		return tx.Create(&row.Entries).Error
	})
	if err != nil {
		return err
	}

	for i := range batch.Entries {
		batch.Entries[i].ID = row.Entries[i].ID
		batch.Entries[i].BatchID = batch.ID
	}
	return nil
}

func (r *LocalBatchRepository) GetBatches(ctx context.Context, limit, offset int) ([]model.Batch, error) {
	var rows []batchRow
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	batches := make([]model.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, *fromBatchRow(&row))
	}
	return batches, nil
}

func (r *LocalBatchRepository) GetBatchTotal(ctx context.Context) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&batchRow{}).Count(&total).Error
	return int(total), err
}

func (r *LocalBatchRepository) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	var row batchRow
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBatchRow(&row), nil
}

func toBatchRow(b *model.Batch) *batchRow {
	row := &batchRow{
		ID:         b.ID,
		Kind:       b.Kind,
		Status:     b.Status,
		Message:    b.Message,
		ReportFile: b.ReportFile,
		StartedAt:  b.StartedAt,
		FinishedAt: b.FinishedAt,
	}
	for _, e := range b.Entries {
		row.Entries = append(row.Entries, batchEntryRow{
			BatchID:           b.ID,
			Filename:          e.Filename,
			ProcessedFilename: e.ProcessedFilename,
			Status:            e.Status,
			Error:             e.Error,
			Fallback:          e.Fallback,
		})
	}
	return row
}

func fromBatchRow(row *batchRow) *model.Batch {
	b := &model.Batch{
		ID:         row.ID,
		Kind:       row.Kind,
		Status:     row.Status,
		Message:    row.Message,
		ReportFile: row.ReportFile,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
	}
	for _, e := range row.Entries {
		b.Entries = append(b.Entries, model.BatchEntry{
			ID:                e.ID,
			BatchID:           e.BatchID,
			Filename:          e.Filename,
			ProcessedFilename: e.ProcessedFilename,
			Status:            e.Status,
			Error:             e.Error,
			Fallback:          e.Fallback,
		})
	}
	return b
}
