package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ExchangeRateModel is one stored rate; (currency, rate_date) is the key and rows are write-once
type ExchangeRateModel struct {
	Currency  valueobject.Currency `gorm:"type:varchar(3);primaryKey"`
	RateDate  time.Time            `gorm:"type:date;primaryKey;index"`
	Rate      decimal.Decimal      `gorm:"type:decimal(18,8);not null"`
	Source    string               `gorm:"type:varchar(50);not null"`
	FetchedAt time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate
func (m *ExchangeRateModel) ToDomain() *settlement.ExchangeRate {
	return &settlement.ExchangeRate{
		Currency:  m.Currency,
		Date:      valueobject.BusinessDate(m.RateDate),
		Rate:      m.Rate,
		Source:    m.Source,
		FetchedAt: m.FetchedAt,
	}
}

// ExchangeRateModelFromDomain creates a persistence model from a domain ExchangeRate
func ExchangeRateModelFromDomain(r *settlement.ExchangeRate) *ExchangeRateModel {
	return &ExchangeRateModel{
		Currency:  r.Currency,
		RateDate:  r.Date,
		Rate:      r.Rate,
		Source:    r.Source,
		FetchedAt: r.FetchedAt,
	}
}

// RateSyncJobStatus is the state of a synchronizer run record
type RateSyncJobStatus string

const (
	RateSyncJobRunning   RateSyncJobStatus = "RUNNING"
	RateSyncJobSucceeded RateSyncJobStatus = "SUCCEEDED"
	RateSyncJobFailed    RateSyncJobStatus = "FAILED"
)

// RateSyncJobModel records one synchronizer run that reached the provider
type RateSyncJobModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primary_key"`
	SyncDate     time.Time         `gorm:"type:date;not null;index"`
	Status       RateSyncJobStatus `gorm:"type:varchar(20);not null"`
	Provider     string            `gorm:"type:varchar(50);not null"`
	RatesWritten int               `gorm:"not null;default:0"`
	Error        string            `gorm:"type:text"`
	StartedAt    time.Time         `gorm:"not null"`
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (RateSyncJobModel) TableName() string {
	return "rate_sync_jobs"
}
