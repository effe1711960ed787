package controllers

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Telegram usernames are 5-32 characters of letters, digits and underscores. A
// leading "@" is tolerated because users paste handles that way.
var telegramHandle = regexp.MustCompile(`^@?[A-Za-z0-9_]{5,32}$`)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom binding rules used by the request structs to
// gin's validator. Binding a struct with an unregistered tag panics, so startup must
// fail when this does.
func RegisterValidators() error {
	registerOnce.Do(func() {
		registerErr = registerValidators(binding.Validator.Engine())
	})
	return registerErr
}

func registerValidators(engine interface{}) error {
	v, ok := engine.(*validator.Validate)
	if !ok {
		return fmt.Errorf("controllers: binding engine is %T, want *validator.Validate", engine)
	}
	if err := v.RegisterValidation("tghandle", func(fl validator.FieldLevel) bool {
		return telegramHandle.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("controllers: register tghandle: %w", err)
	}
	return nil
}
