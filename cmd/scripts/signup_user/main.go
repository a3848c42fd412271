package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/lrblog/internal/client"
	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

func main() {
	var form forms.SignUpForm
	flag.StringVar(&form.FirstName, "first", "", "first name")
	flag.StringVar(&form.LastName, "last", "", "last name")
	flag.StringVar(&form.Email, "email", "", "email address")
	flag.StringVar(&form.Password, "password", "", "password")
	flag.Parse()
	form.ConfirmPassword = form.Password

	if err := godotenv.Load(); err != nil {
		utils.Sugar().Debugf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		utils.Sugar().Fatalf("load config: %v", err)
	}

	utils.MustNewLogger(cfg.Logging)
	logger := utils.Sugar()
	defer func() { _ = logger.Sync() }()

	c := client.New(cfg.Client.BaseURL, client.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout)
	defer cancel()

	note, err := c.SignUp(ctx, form)
	if err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
			}
			os.Exit(2)
		}
		logger.Fatalf("signup: %v", err)
	}

	fmt.Printf("[%s] %s\n", note.Kind, note.Message)
	if note.Kind != client.NotificationSuccess {
		os.Exit(1)
	}
}
