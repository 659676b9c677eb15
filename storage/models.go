package storage

import (
	"encoding/json"

	"github.com/zeu5/pricing-rl/types"
	"gonum.org/v1/gonum/floats"
)

// ComparisonRecord describes one comparison of experiments
type ComparisonRecord struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null;index"`
	Market    string `gorm:"size:32;not null;index"`
	Runs      int    `gorm:"not null"`
	Episodes  int    `gorm:"not null"`
	Horizon   int    `gorm:"not null"`
	Config    string `gorm:"type:text"`
	CreatedTS int64  `gorm:"not null;index"`
}

func (ComparisonRecord) TableName() string {
	return "comparisons"
}

// EpisodeRecord is the summary of one episode of one experiment
type EpisodeRecord struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`
	ComparisonID uint64  `gorm:"not null;index:idx_episode,priority:1"`
	Experiment   string  `gorm:"size:128;not null;index:idx_episode,priority:2"`
	Run          int     `gorm:"not null;index:idx_episode,priority:3"`
	Episode      int     `gorm:"not null;index:idx_episode,priority:4"`
	Steps        int     `gorm:"not null"`
	MeanProfit   float64 `gorm:"not null"`
	MeanRewards  string  `gorm:"type:text;not null"`
	MeanActions  string  `gorm:"type:text;not null"`
}

func (EpisodeRecord) TableName() string {
	return "episodes"
}

// EpisodeRecordsFrom converts summaries to rows, MeanProfit averages over firms
func EpisodeRecordsFrom(comparisonID uint64, summaries []types.EpisodeSummary) ([]EpisodeRecord, error) {
	records := make([]EpisodeRecord, len(summaries))
	for i, s := range summaries {
		rewards, err := json.Marshal(s.MeanRewards)
		if err != nil {
			return nil, err
		}
		actions, err := json.Marshal(s.MeanActions)
		if err != nil {
			return nil, err
		}
		mean := 0.0
		if len(s.MeanRewards) > 0 {
			mean = floats.Sum(s.MeanRewards) / float64(len(s.MeanRewards))
		}
		records[i] = EpisodeRecord{
			ComparisonID: comparisonID,
			Experiment:   s.Experiment,
			Run:          s.Run,
			Episode:      s.Episode,
			Steps:        s.Steps,
			MeanProfit:   mean,
			MeanRewards:  string(rewards),
			MeanActions:  string(actions),
		}
	}
	return records, nil
}
