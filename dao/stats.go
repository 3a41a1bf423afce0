package dao

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/dilshat/wa-sender/model"
)

type StatsDao interface {
	//Get returns the accumulated counters, zeroes when nothing is stored
	Get() (model.Stats, error)
	//Add accumulates one run's outcome into the historical counters
	Add(sent, failed int, lastSession time.Time) error
	//Reset zeroes the counters
	Reset() error
}

func NewStatsDao(db Db) StatsDao {
	return &statsDao{db: db}
}

type statsDao struct {
	db Db
}

func (d statsDao) Get() (model.Stats, error) {
	var stats model.Stats
	err := d.db.One("Id", 1, &stats)
	if err == storm.ErrNotFound {
		return model.Stats{Id: 1}, nil
	}
	if err != nil {
		return model.Stats{}, err
	}
	return stats, nil
}

func (d statsDao) Add(sent, failed int, lastSession time.Time) error {
	stats, err := d.Get()
	if err != nil {
		return err
	}

	stats.TotalSent += sent
	stats.TotalFailed += failed
	stats.LastSession = lastSession

	return d.put(stats)
}

func (d statsDao) Reset() error {
	return d.put(model.Stats{Id: 1})
}

func (d statsDao) put(stats model.Stats) error {
	stats.Id = 1
	err := d.db.Save(&stats)
	if err == storm.ErrAlreadyExists {
		if err := d.db.DeleteStruct(&model.Stats{Id: 1}); err != nil {
			return err
		}
		return d.db.Save(&stats)
	}
	return err
}
