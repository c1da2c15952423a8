package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestFromClassifiesStoreErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   Kind
		status int
	}{
		{"not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), KindNotFound, http.StatusNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, KindConflict, http.StatusConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, KindBadRequest, http.StatusBadRequest},
		{"other", errors.New("connection reset"), KindInternal, http.StatusInternalServerError},
		{"typed", fmt.Errorf("wrap: %w", BadRequest("bad photo")), KindBadRequest, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := From(tc.err)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.status, e.Status())
		})
	}
}

func TestInternalPassesMessageThrough(t *testing.T) {
	e := Internal(errors.New("relation \"resumes\" does not exist"))
	assert.Equal(t, "relation \"resumes\" does not exist", e.Message)
	assert.Nil(t, From(nil))
}
