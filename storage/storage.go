package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeu5/pricing-rl/config"
	"github.com/zeu5/pricing-rl/metrics"
	"github.com/zeu5/pricing-rl/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const batchSize = 500

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  logrus.FieldLogger
}

// New opens the database described by cfg and checks the connection
func New(cfg config.DatabaseConfig, log logrus.FieldLogger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connection established")
	return &DB{conn: conn, log: log}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(
		&ComparisonRecord{},
		&EpisodeRecord{},
	)
}

// SaveComparison inserts the record and fills in its ID
func (db *DB) SaveComparison(ctx context.Context, record *ComparisonRecord) error {
	if record.CreatedTS == 0 {
		record.CreatedTS = time.Now().Unix()
	}
	return db.conn.WithContext(ctx).Create(record).Error
}

// SaveEpisodes inserts the summaries of one experiment in batches
func (db *DB) SaveEpisodes(ctx context.Context, comparisonID uint64, summaries []types.EpisodeSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	records, err := EpisodeRecordsFrom(comparisonID, summaries)
	if err != nil {
		return err
	}
	if err := db.conn.WithContext(ctx).CreateInBatches(records, batchSize).Error; err != nil {
		return fmt.Errorf("save episodes: %w", err)
	}
	metrics.EpisodesStored.Add(float64(len(records)))
	db.log.WithFields(logrus.Fields{
		"comparison": comparisonID,
		"episodes":   len(records),
	}).Debug("stored episode summaries")
	return nil
}

// EpisodeSaver persists episode summaries
type EpisodeSaver interface {
	SaveEpisodes(ctx context.Context, comparisonID uint64, summaries []types.EpisodeSummary) error
}

// Comparator stores the EpisodeSummaryAnalyzer datasets of every experiment
func Comparator(ctx context.Context, saver EpisodeSaver, comparisonID uint64) types.Comparator {
	return func(run, _ int, names []string, ds []types.DataSet) error {
		for i, d := range ds {
			summaries, ok := d.([]types.EpisodeSummary)
			if !ok {
				return fmt.Errorf("experiment %s: unexpected dataset %T", names[i], d)
			}
			if err := saver.SaveEpisodes(ctx, comparisonID, summaries); err != nil {
				return fmt.Errorf("run %d, experiment %s: %w", run, names[i], err)
			}
		}
		return nil
	}
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log logrus.FieldLogger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
