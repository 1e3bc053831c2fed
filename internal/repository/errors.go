package repository

import (
	"errors"

	"github.com/mbeoliero/buildingchat/pkg/errcode"
	"gorm.io/gorm"
)

// translateCreateErr maps a unique key violation to errcode.ErrConflict
func translateCreateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errcode.ErrConflict.Wrap(err)
	}
	return err
}
