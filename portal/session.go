// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\portal\session.go
package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decopress/prefs"
	"decopress/prompt"

	"go.uber.org/zap"
)

// ErrLoginCancelled はユーザーがログイン入力を取り消したことを表します。
var ErrLoginCancelled = errors.New("login cancelled by user")

const (
	selUsername    = "#txt_Username"
	selPassword    = "#txt_Password"
	selLoginButton = "#btn_Login"
	selLoggedIn    = "#jobStatusListResults"
	SelListTable   = "table.data-results"

	loginFormTimeout = 60 * time.Second
	loginTimeout     = 10 * time.Second
)

// Session はポータルへのログインを担当します。
type Session struct {
	Page         Page
	Credentials  *prefs.CredentialCache
	Input        prompt.Provider
	LoginURL     string
	DashboardURL string
	Timeout      time.Duration
	Logger       *zap.Logger
}

func (s *Session) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// ResolveCredentials は保存済みの資格情報を使うか、ユーザーに入力を求めます。
func (s *Session) ResolveCredentials(ctx context.Context) (prefs.Credentials, error) {
	log := s.logger()

	if s.Credentials != nil {
		saved, ok, err := s.Credentials.Load()
		if err != nil {
			log.Warn("failed to load saved credentials", zap.Error(err))
		}
		if ok {
			log.Info("found saved credentials", zap.String("user", saved.Username))
			use, err := prompt.Confirm(ctx, s.Input, "use_saved_login",
				fmt.Sprintf("Use saved login for user '%s'?", saved.Username))
			if err != nil {
				return prefs.Credentials{}, err
			}
			if use {
				return saved, nil
			}
		}
	}

	user, ok, err := s.Input.Ask(ctx, prompt.Request{Key: "username", Label: "Enter your username"})
	if err != nil {
		return prefs.Credentials{}, err
	}
	if !ok || user == "" {
		return prefs.Credentials{}, ErrLoginCancelled
	}
	pass, ok, err := s.Input.Ask(ctx, prompt.Request{Key: "password", Label: "Enter your password", Secret: true})
	if err != nil {
		return prefs.Credentials{}, err
	}
	if !ok || pass == "" {
		return prefs.Credentials{}, ErrLoginCancelled
	}
	cred := prefs.Credentials{Username: user, Password: pass}

	if s.Credentials != nil {
		remember, err := prompt.Confirm(ctx, s.Input, "remember_login",
			"Would you like to save your login credentials for next time?")
		if err != nil {
			return prefs.Credentials{}, err
		}
		if remember {
			if err := s.Credentials.Save(cred); err != nil {
				log.Warn("failed to save credentials", zap.Error(err))
			} else {
				log.Info("credentials saved", zap.String("user", user))
			}
		}
	}
	return cred, nil
}

// Login はログインしてジョブ一覧ページを開きます。
func (s *Session) Login(ctx context.Context) error {
	log := s.logger()

	// 1. ログイン画面へ
	log.Info("opening login page", zap.String("url", s.LoginURL))
	if err := s.Page.Navigate(ctx, s.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := s.Page.WaitIdle(ctx); err != nil {
		return fmt.Errorf("login page did not settle: %w", err)
	}

	// 2. 資格情報
	cred, err := s.ResolveCredentials(ctx)
	if err != nil {
		return err
	}

	// 3. ログイン操作
	if err := s.Page.WaitVisible(ctx, selUsername, loginFormTimeout); err != nil {
		return fmt.Errorf("username field not found: %w", err)
	}
	if err := s.Page.Fill(ctx, selUsername, cred.Username); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	if err := s.Page.Fill(ctx, selPassword, cred.Password); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}
	clicked, err := s.Page.Click(ctx, selLoginButton)
	if err != nil {
		return fmt.Errorf("failed to click login: %w", err)
	}
	if !clicked {
		return fmt.Errorf("login button %s not found", selLoginButton)
	}
	if err := s.Page.WaitVisible(ctx, selLoggedIn, loginTimeout); err != nil {
		return fmt.Errorf("login failed (job status list did not appear): %w", err)
	}
	log.Info("logged in", zap.String("user", cred.Username))

	// 4. ジョブ一覧へ
	return s.OpenJobList(ctx)
}

// OpenJobList はジョブ一覧ページを開き、表が表示されるまで待ちます。
func (s *Session) OpenJobList(ctx context.Context) error {
	if err := s.Page.Navigate(ctx, s.DashboardURL); err != nil {
		return fmt.Errorf("failed to open job status list: %w", err)
	}
	if err := s.Page.WaitVisible(ctx, SelListTable, s.timeout()); err != nil {
		return fmt.Errorf("job status table not visible: %w", err)
	}
	return nil
}

func (s *Session) timeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return s.Timeout
}
