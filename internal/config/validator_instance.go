package config

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	resourceIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	fileModePattern   = regexp.MustCompile(`^0?[0-7]{3,4}$`)
	cronFieldPattern  = regexp.MustCompile(`^(\*|[0-9A-Za-z]+)([-/,][0-9A-Za-z*]+)*$`)
	sshGitPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9._/~-]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("resource_id", func(fl validator.FieldLevel) bool {
			return resourceIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("file_mode", func(fl validator.FieldLevel) bool {
			return fileModePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("cron_field", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			if value == "" {
				return true
			}
			return cronFieldPattern.MatchString(value)
		})

		_ = v.RegisterValidation("git_url", func(fl validator.FieldLevel) bool {
			return isGitURL(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ParseMode converts an octal mode string such as "0755" into a permission value.
func ParseMode(mode string) (uint32, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(mode), 8, 32)
	if err != nil {
		return 0, err
	}
	return uint32(value), nil
}

func isGitURL(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}

	if parsed, err := url.Parse(raw); err == nil {
		switch strings.ToLower(parsed.Scheme) {
		case "http", "https", "ssh", "git":
			return parsed.Host != ""
		case "file":
			return parsed.Path != ""
		}
	}

	if sshGitPattern.MatchString(raw) {
		return true
	}

	if strings.Contains(raw, "\x00") {
		return false
	}
	return strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../")
}
