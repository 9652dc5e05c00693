package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"funding_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists collection runs, opportunities and spread samples
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at path. An empty
// path falls back to the per-OS default under the user config dir.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(
		&domain.FundingSnapshot{},
		&domain.OpportunityRecord{},
		&domain.SpreadPoint{},
		&domain.InstrumentInfo{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// defaultDBPath resolves the database file path based on OS
func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "FundingGo", "data", "funding.db"), nil
}

// ======================================================================================
// Funding Operations
// ======================================================================================

// SaveFundingRates persists one collection run's normalized rates.
func (s *Storage) SaveFundingRates(runID string, rates []domain.FundingRate) error {
	if len(rates) == 0 {
		return nil
	}

	snapshots := make([]domain.FundingSnapshot, 0, len(rates))
	for _, r := range rates {
		snapshots = append(snapshots, domain.FundingSnapshot{
			RunID:         runID,
			Exchange:      r.Exchange,
			Symbol:        r.Symbol,
			Rate:          r.Rate,
			IntervalHours: r.IntervalHours,
			HourlyRate:    r.HourlyRate(),
			Volume24h:     r.Volume24h,
			NextFunding:   r.NextFundingTime,
			Timestamp:     r.Timestamp,
		})
	}
	return s.db.CreateInBatches(snapshots, 200).Error
}

// SaveOpportunities persists the analyzer output for a run.
func (s *Storage) SaveOpportunities(runID string, opps []domain.ArbitrageOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	records := make([]domain.OpportunityRecord, 0, len(opps))
	for _, o := range opps {
		records = append(records, domain.OpportunityRecord{
			RunID:              runID,
			Symbol:             o.Symbol,
			LongExchange:       o.LongExchange,
			LongRateHourly:     o.LongRateHourly,
			LongIntervalHours:  o.LongIntervalHours,
			ShortExchange:      o.ShortExchange,
			ShortRateHourly:    o.ShortRateHourly,
			ShortIntervalHours: o.ShortIntervalHours,
			RateDifference:     o.RateDifference,
			AnnualReturn:       o.AnnualReturn(),
			Timestamp:          o.Timestamp,
		})
	}
	return s.db.CreateInBatches(records, 200).Error
}

// LatestRunID returns the run ID of the most recent funding snapshot,
// or empty when the database holds none.
func (s *Storage) LatestRunID() (string, error) {
	var snapshot domain.FundingSnapshot
	err := s.db.Order("created_at DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return snapshot.RunID, nil
}

// FundingRatesByRun loads all snapshots of one run.
func (s *Storage) FundingRatesByRun(runID string) ([]domain.FundingSnapshot, error) {
	var snapshots []domain.FundingSnapshot
	err := s.db.Where("run_id = ?", runID).
		Order("symbol, exchange").
		Find(&snapshots).Error
	return snapshots, err
}

// OpportunitiesByRun loads all opportunity records of one run.
func (s *Storage) OpportunitiesByRun(runID string) ([]domain.OpportunityRecord, error) {
	var records []domain.OpportunityRecord
	err := s.db.Where("run_id = ?", runID).
		Order("rate_difference DESC").
		Find(&records).Error
	return records, err
}

// ======================================================================================
// Spread Operations
// ======================================================================================

// SaveSpreadPoint appends one spread sample.
func (s *Storage) SaveSpreadPoint(point *domain.SpreadPoint) error {
	return s.db.Create(point).Error
}

// SpreadPoints returns samples for a symbol since the given time.
func (s *Storage) SpreadPoints(symbol string, since time.Time) ([]domain.SpreadPoint, error) {
	var points []domain.SpreadPoint
	err := s.db.Where("symbol = ? AND timestamp >= ?", symbol, since).
		Order("timestamp").
		Find(&points).Error
	return points, err
}

// ======================================================================================
// Instrument Operations
// ======================================================================================

// UpsertInstrument creates or updates instrument metadata
func (s *Storage) UpsertInstrument(inst *domain.InstrumentInfo) error {
	return s.db.Save(inst).Error
}

// GetInstrument retrieves instrument metadata by symbol
func (s *Storage) GetInstrument(symbol string) (*domain.InstrumentInfo, error) {
	var inst domain.InstrumentInfo
	err := s.db.First(&inst, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &inst, err
}

// GetAllInstruments retrieves all instruments
func (s *Storage) GetAllInstruments() ([]domain.InstrumentInfo, error) {
	var insts []domain.InstrumentInfo
	err := s.db.Find(&insts).Error
	return insts, err
}

// InstrumentsOnExchange filters instruments listed on a given exchange.
func (s *Storage) InstrumentsOnExchange(exchange string) ([]domain.InstrumentInfo, error) {
	all, err := s.GetAllInstruments()
	if err != nil {
		return nil, err
	}

	var out []domain.InstrumentInfo
	for _, inst := range all {
		for _, ex := range strings.Split(inst.Exchanges, ",") {
			if strings.TrimSpace(ex) == exchange {
				out = append(out, inst)
				break
			}
		}
	}
	return out, nil
}

// DeleteInstrument removes an instrument from the database
func (s *Storage) DeleteInstrument(symbol string) error {
	return s.db.Where("symbol = ?", symbol).Delete(&domain.InstrumentInfo{}).Error
}
