package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// options are the command line settings of one upload.
type options struct {
	URL       string        `validate:"required,http_url"`
	Field     string        `validate:"required"`
	Fields    fieldFlag
	Files     []string      `validate:"dive,required"`
	Timeout   time.Duration `validate:"gte=0"`
	LogFormat string        `validate:"oneof=console json"`
	LogLevel  string        `validate:"oneof=debug info warn error"`
	NoReload  bool
}

// fieldFlag collects repeated -field key=value flags.
type fieldFlag map[string]string

func (f fieldFlag) String() string {
	pairs := make([]string, 0, len(f))
	for k, v := range f {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (f fieldFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	f[key] = value
	return nil
}

// Values converts the fields into form values.
func (f fieldFlag) Values() url.Values {
	values := url.Values{}
	for k, v := range f {
		values.Set(k, v)
	}
	return values
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// parseOptions reads args (without the program name) into options.
func parseOptions(args []string, stderr io.Writer) (*options, error) {
	opts := &options{Fields: fieldFlag{}}

	fs := flag.NewFlagSet("uploader", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: uploader -url <directory url> [-field key=value]... file...")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.URL, "url", "", "URL of the target directory, e.g. http://localhost:8080/photos/")
	fs.StringVar(&opts.Field, "file-field", "files[]", "multipart field the files are sent under")
	fs.Var(opts.Fields, "field", "extra form field as key=value, repeatable")
	fs.DurationVar(&opts.Timeout, "timeout", 0, "overall request timeout, 0 for none")
	fs.StringVar(&opts.LogFormat, "log-format", "console", "log output: console or json")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level")
	fs.BoolVar(&opts.NoReload, "no-reload", false, "skip printing the directory after a successful upload")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.Files = fs.Args()

	if err := validate.Struct(opts); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid %s: failed %q check", strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return nil, err
	}
	return opts, nil
}
