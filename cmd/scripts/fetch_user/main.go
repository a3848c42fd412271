package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/wuwenbin0122/lrblog/internal/client"
	"github.com/wuwenbin0122/lrblog/internal/forms"
	"github.com/wuwenbin0122/lrblog/internal/utils"
)

func main() {
	email := flag.String("email", "", "email of the account to fetch")
	password := flag.String("password", "", "password used to sign in when API_TOKEN is empty")
	flag.Parse()

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

	c := client.New(cfg.Client.BaseURL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Client.Timeout}),
		client.WithToken(cfg.Client.Token),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Client.Timeout)
	defer cancel()

	if c.Token() == "" {
		if err := c.SignIn(ctx, forms.SignInForm{Email: *email, Password: *password}); err != nil {
			logger.Fatalf("signin: %v", err)
		}
	}

	profile, err := c.GetUserData(ctx, *email)
	if err != nil {
		logger.Fatalf("fetch user: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(profile); err != nil {
		logger.Fatalf("encode profile: %v", err)
	}
}
