// Command faithconnect is a small terminal front-end for the FaithConnect
// session layer: OTP login, session inspection, logout, and a directory
// browse for smoke-testing an environment.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	apiadapter "github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/api"
	sqliteadapter "github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/sqlite"
	"github.com/faith-connect-biz/faithconnect-go/internal/application"
	"github.com/faith-connect-biz/faithconnect-go/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func usage() error {
	fmt.Fprintln(os.Stderr, "usage: faithconnect <login|whoami|logout|browse>")
	return errors.New("no command given")
}

func run() error {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		return usage()
	}
	command := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"api_base_url", cfg.APIBaseURL,
		"db_path", cfg.DBPath,
		"request_timeout", cfg.RequestTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	creds, err := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	if err != nil {
		return err
	}
	demos := sqliteadapter.NewDemoSessionRepo(db)

	client := apiadapter.NewClient(cfg.APIBaseURL, creds, cfg.RequestTimeout)
	session := application.NewSessionService(creds, client, cfg.LogoutTimeout)
	session.OnSignedOut(func(context.Context) {
		fmt.Println("Signed out. Please log in again.")
	})
	auth := application.NewAuthService(client, session, demos)
	directory := application.NewDirectoryService(client)

	switch command {
	case "login":
		return login(ctx, auth)
	case "whoami":
		return whoami(ctx, session)
	case "logout":
		return session.Logout(ctx)
	case "browse":
		return browse(ctx, directory)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		return usage()
	}
}

func login(ctx context.Context, auth *application.AuthService) error {
	in := bufio.NewReader(os.Stdin)

	contact, err := prompt(in, "Email or phone: ")
	if err != nil {
		return err
	}
	method := "email"
	if !strings.Contains(contact, "@") {
		method = "sms"
	}

	sent, err := auth.SendCode(ctx, contact, method)
	if err != nil {
		return err
	}
	if sent.Demo {
		fmt.Println("Backend unreachable; running in offline demo mode.")
	}

	code, err := prompt(in, "Verification code: ")
	if err != nil {
		return err
	}

	result, err := auth.VerifyCode(ctx, contact, method, code)
	if err != nil {
		return err
	}

	if result.Demo {
		fmt.Printf("Logged in (demo session) as %s\n", result.Identity.ID)
		return nil
	}
	fmt.Printf("Logged in as %s\n", result.Identity.ID)
	if result.NewUser {
		fmt.Println("New account: complete your profile in the app to finish onboarding.")
	}
	return nil
}

func whoami(ctx context.Context, session *application.SessionService) error {
	if !session.IsAuthenticated(ctx) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err := session.Validate(ctx); err != nil {
		return err
	}
	fmt.Println("Logged in; session is valid.")
	return nil
}

func browse(ctx context.Context, directory *application.DirectoryService) error {
	businesses, err := directory.ListBusinesses(ctx)
	if err != nil {
		return err
	}
	if len(businesses) == 0 {
		fmt.Println("No listings.")
		return nil
	}
	for _, b := range businesses {
		fmt.Printf("%-30s %-20s %.1f (%d reviews)\n", b.Name, b.Category, b.Rating, b.ReviewCount)
	}
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
