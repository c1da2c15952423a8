package api

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"careerDesk/internal/database"
)

var registerOnce sync.Once

// registerValidators 把自定义 binding 标签挂到 gin 的 validator 上。
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected validator engine %T", binding.Validator.Engine()))
		}
		if err := v.RegisterValidation("jobstatus", jobStatusValid); err != nil {
			panic(fmt.Sprintf("register jobstatus validator: %v", err))
		}
	})
}

func jobStatusValid(fl validator.FieldLevel) bool {
	return database.JobStatus(fl.Field().String()).Valid()
}
