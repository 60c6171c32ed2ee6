package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	dberrors "govetachun/go-page-db/pkg/errors"
)

func TestValidatePageID(t *testing.T) {
	assert.NoError(t, ValidatePageID(CatalogPageID))
	assert.NoError(t, ValidatePageID(MaxPageID))

	err := ValidatePageID(-1)
	assert.True(t, errors.Is(err, dberrors.ErrInvalidPageID))
	assert.True(t, errors.Is(ValidatePageID(MaxPageID+1), dberrors.ErrInvalidPageID))
}

func TestCheckPayload(t *testing.T) {
	assert.NoError(t, CheckPayload(make([]byte, PageSize)))
	assert.True(t, errors.Is(CheckPayload(make([]byte, PageSize+1)), dberrors.ErrRowTooLarge))
	assert.True(t, errors.Is(CheckPayload(make([]byte, PageSize+1)), dberrors.ErrStorage))
}
