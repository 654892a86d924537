package app

import (
	"errors"
	"fmt"
	"go/token"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Run modes.
const (
	ModeRun      = "run"
	ModeGenerate = "generate"
	ModeBuild    = "build"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPath string `validate:"required"` // .hcl file or directory
	Mode      string `validate:"oneof=run generate build"`

	// Event is triggered on every graph in run mode.
	Event string `validate:"required_if=Mode run"`
	// Ticks bounds how many host ticks run after the event.
	Ticks       int    `validate:"gte=0"`
	ErrorPolicy string `validate:"oneof=return log"`

	OutDir     string `validate:"required_if=Mode generate"`
	ArtifactDB string
	Package    string `validate:"omitempty,goident"`
	Force      bool
	// Exec runs the built entry points in build mode.
	Exec bool

	DiagnosticsURL  string `validate:"omitempty,url"`
	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`
	WorkerCount     int    `validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("goident", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return token.IsIdentifier(s) && s != "_"
	})
	return v
}

// NewConfig fills in defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeRun
	}
	if cfg.ErrorPolicy == "" {
		cfg.ErrorPolicy = "return"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validate.Struct(cfg); err != nil {
		return nil, configError(err)
	}
	return &cfg, nil
}

func configError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", fe.Field(), strings.Replace(fe.Param(), " ", " is ", 1))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a URL, got %q", fe.Field(), fe.Value())
	case "goident":
		return fmt.Sprintf("%s must be a Go identifier, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
	}
}
