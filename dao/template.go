package dao

import (
	"github.com/asdine/storm/v3"
	"github.com/dilshat/wa-sender/model"
)

type TemplateDao interface {
	//Save creates or overwrites the template with the given name
	Save(name, text string) error
	//GetAll returns all saved templates
	GetAll() ([]model.Template, error)
	//Remove deletes the template with the given name
	Remove(name string) error
}

func NewTemplateDao(db Db) TemplateDao {
	return &templateDao{db: db}
}

type templateDao struct {
	db Db
}

func (d templateDao) Save(name, text string) error {
	template := &model.Template{Name: name, Text: text}
	err := d.db.Save(template)
	if err == storm.ErrAlreadyExists {
		if err := d.db.DeleteStruct(&model.Template{Name: name}); err != nil {
			return err
		}
		return d.db.Save(template)
	}
	return err
}

func (d templateDao) GetAll() (templates []model.Template, err error) {
	err = d.db.All(&templates)
	if err != nil && err.Error() == "not found" {
		err = nil
	}
	return
}

func (d templateDao) Remove(name string) error {
	return d.db.DeleteStruct(&model.Template{Name: name})
}
