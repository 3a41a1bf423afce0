package dao

import (
	"github.com/asdine/storm/v3"
	"github.com/dilshat/wa-sender/model"
)

type SettingsDao interface {
	//Get returns the stored settings, or defaults when nothing is stored yet
	Get() (model.Settings, error)
	//Save stores the settings record
	Save(settings model.Settings) error
}

func NewSettingsDao(db Db) SettingsDao {
	return &settingsDao{db: db}
}

type settingsDao struct {
	db Db
}

func (d settingsDao) Get() (model.Settings, error) {
	var settings model.Settings
	err := d.db.One("Id", 1, &settings)
	if err == storm.ErrNotFound {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	return settings, nil
}

func (d settingsDao) Save(settings model.Settings) error {
	settings.Id = 1
	err := d.db.Save(&settings)
	if err == storm.ErrAlreadyExists {
		//storm's Update skips zero-valued fields, so replace the record
		//to let booleans toggle back off
		if err := d.db.DeleteStruct(&model.Settings{Id: 1}); err != nil {
			return err
		}
		return d.db.Save(&settings)
	}
	return err
}
